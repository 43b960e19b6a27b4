package config

import "testing"

func TestResolveLocal(t *testing.T) {
	cfg, err := Resolve(ModeLocal, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BackendHTTP != "http://localhost:8000" {
		t.Fatalf("backend = %q", cfg.BackendHTTP)
	}
	if cfg.BackendWS != "ws://localhost:8000/ws/intrusion" {
		t.Fatalf("socket = %q", cfg.BackendWS)
	}
}

func TestResolveDeployed(t *testing.T) {
	cfg, err := Resolve(ModeDeployed, "https://api.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BackendWS != "wss://api.example.com/ws/intrusion" {
		t.Fatalf("socket = %q", cfg.BackendWS)
	}

	if _, err := Resolve(ModeDeployed, ""); err == nil {
		t.Fatal("deployed mode without a backend URL must fail")
	}
}

func TestResolveUnknownMode(t *testing.T) {
	if _, err := Resolve("staging", ""); err == nil {
		t.Fatal("unknown mode must fail")
	}
}

func TestSocketURLRejectsNonHTTP(t *testing.T) {
	if _, err := SocketURL("ftp://example.com"); err == nil {
		t.Fatal("non-http scheme must fail")
	}
}
