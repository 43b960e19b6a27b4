// Package config resolves runtime settings for the zoneguard binaries.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Host modes. Local talks to a backend on localhost:8000; deployed uses
// the configured domain.
const (
	ModeLocal    = "local"
	ModeDeployed = "deployed"
)

const localBackend = "http://localhost:8000"

// Config carries everything the binaries need.
type Config struct {
	// BackendHTTP is the inference backend base URL.
	BackendHTTP string
	// BackendWS is the detection socket URL, derived from BackendHTTP.
	BackendWS string
	// Port is the relay server listen port.
	Port int
	// DBPath is the SQLite file.
	DBPath string

	// SMTP settings, from the environment.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// Resolve builds a Config for the given host mode. deployedBackend is the
// backend base URL used in deployed mode and ignored otherwise.
func Resolve(mode, deployedBackend string) (*Config, error) {
	var backend string
	switch mode {
	case ModeLocal, "":
		backend = localBackend
	case ModeDeployed:
		if deployedBackend == "" {
			return nil, fmt.Errorf("deployed mode requires a backend URL")
		}
		backend = deployedBackend
	default:
		return nil, fmt.Errorf("unknown host mode %q", mode)
	}

	ws, err := SocketURL(backend)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BackendHTTP:  backend,
		BackendWS:    ws,
		Port:         5000,
		DBPath:       "zoneguard.db",
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("EMAIL_USER"),
		SMTPPassword: os.Getenv("EMAIL_PASS"),
		SMTPPort:     587,
	}
	if p := os.Getenv("SMTP_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", p, err)
		}
		cfg.SMTPPort = port
	}
	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// SocketURL derives the detection socket URL from an HTTP base:
// http becomes ws, https becomes wss, path /ws/intrusion.
func SocketURL(backendHTTP string) (string, error) {
	u, err := url.Parse(backendHTTP)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL %q: %w", backendHTTP, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("backend URL %q must be http or https", backendHTTP)
	}
	u.Path = "/ws/intrusion"
	return u.String(), nil
}
