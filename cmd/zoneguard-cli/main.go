// Command zoneguard-cli drives the detection pipeline headlessly: select a
// source, draw the zone from the command line and stream frames until
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"zoneguard/internal/config"
	"zoneguard/internal/monitor"
	"zoneguard/internal/session"
)

func main() {
	var (
		hostF    = flag.String("host", config.ModeLocal, "Host mode (valid values: local, deployed)")
		backendF = flag.String("backend", "", "Inference backend base URL (deployed mode)")
		sourceF  = flag.String("source", "camera", "Video source (valid values: camera, file, remote)")
		deviceF  = flag.String("device", "/dev/video0", "Camera device for -source camera")
		videoF   = flag.String("video", "", "Video path for -source file")
		commandF = flag.String("command", "webcam", "Backend source for -source remote (webcam or file)")
		zoneF    = flag.String("zone", "", `Zone vertices as "x,y;x,y;..." (at least 3)`)
	)
	flag.Parse()

	var (
		logger *log.Logger
	)
	{
		logger = log.New(os.Stderr, "[zoneguard-cli] ", log.Ltime)
	}

	cfg, err := config.Resolve(*hostF, *backendF)
	if err != nil {
		logger.Fatalf("config: %s", err)
	}

	zone, err := parseZone(*zoneF)
	if err != nil {
		logger.Fatalf("zone: %s", err)
	}

	// Intrusion transitions are the CLI's output.
	var intruding bool
	m := monitor.New(monitor.Config{
		BackendHTTP:  cfg.BackendHTTP,
		BackendWS:    cfg.BackendWS,
		CameraDevice: *deviceF,
		Session: session.Config{
			Events: session.Events{
				OnFrame: func(_ []byte, intruder bool) {
					if intruder != intruding {
						intruding = intruder
						if intruder {
							logger.Println("INTRUSION detected in zone")
						} else {
							logger.Println("zone clear")
						}
					}
				},
				OnState: func(from, to session.State) {
					logger.Printf("session %s -> %s", from, to)
				},
				OnError: func(err error) {
					logger.Printf("session error: %s", err)
				},
			},
		},
	})
	defer m.Close()

	ctx := context.Background()
	switch *sourceF {
	case "camera":
		err = m.StartWebcam(ctx)
	case "file":
		if *videoF == "" {
			logger.Fatal("-source file requires -video")
		}
		err = m.UploadVideo(ctx, *videoF)
	case "remote":
		err = m.UseRemote(ctx, *commandF)
	default:
		logger.Fatalf("invalid source argument: %q (valid sources: camera|file|remote)", *sourceF)
	}
	if err != nil {
		logger.Fatalf("source: %s", err)
	}

	// Draw the zone as the widget would: one click per vertex, then a
	// closing click on the first.
	for _, p := range zone {
		m.Click(p[0], p[1], 0, 0)
	}
	m.Click(zone[0][0], zone[0][1], 0, 0)

	if err := m.StartDetection(); err != nil {
		logger.Fatalf("detection: %s", err)
	}
	logger.Printf("detection running against %s, Ctrl-C to stop", cfg.BackendWS)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	m.StopDetection()
	logger.Println("exited")
}

// parseZone parses "x,y;x,y;..." into vertex pairs.
func parseZone(s string) ([][2]float64, error) {
	if s == "" {
		return nil, fmt.Errorf("a zone is required, e.g. -zone \"100,100;300,100;300,300\"")
	}
	var zone [][2]float64
	for _, part := range strings.Split(s, ";") {
		coords := strings.Split(strings.TrimSpace(part), ",")
		if len(coords) != 2 {
			return nil, fmt.Errorf("invalid vertex %q", part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vertex %q: %w", part, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vertex %q: %w", part, err)
		}
		zone = append(zone, [2]float64{x, y})
	}
	if len(zone) < 3 {
		return nil, fmt.Errorf("a zone needs at least 3 vertices, got %d", len(zone))
	}
	return zone, nil
}
