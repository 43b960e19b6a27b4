package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"zoneguard/internal/config"
	"zoneguard/internal/metrics"
	"zoneguard/internal/relay"
	"zoneguard/internal/store"
)

func main() {
	var (
		hostF    = flag.String("host", config.ModeLocal, "Host mode (valid values: local, deployed)")
		backendF = flag.String("backend", "", "Inference backend base URL (deployed mode)")
		portF    = flag.Int("port", 0, "Listen port (overrides PORT env and default 5000)")
		dbF      = flag.String("db", "", "SQLite database path (overrides default zoneguard.db)")
	)
	flag.Parse()

	var (
		logger *log.Logger
	)
	{
		logger = log.New(os.Stderr, "[zoneguard] ", log.Ltime)
	}

	cfg, err := config.Resolve(*hostF, *backendF)
	if err != nil {
		logger.Fatalf("config: %s", err)
	}
	if *portF != 0 {
		cfg.Port = *portF
	}
	if *dbF != "" {
		cfg.DBPath = *dbF
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalf("store: %s", err)
	}
	defer st.Close()
	if err := st.Migrate(); err != nil {
		logger.Fatalf("store: %s", err)
	}

	m := metrics.New()
	mailer := relay.NewSMTPMailer(relay.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/request-demo", relay.NewHandler(mailer, st, m))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Channel used by both the signal handler and the server goroutine to
	// notify the main goroutine when to stop.
	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Printf("HTTP server listening on %s (backend %s)", srv.Addr, cfg.BackendHTTP)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %s", err)
		}
	}()

	logger.Printf("exiting (%v)", <-errc)

	cancel()

	wg.Wait()
	logger.Println("exited")
}
