// Package metrics exposes session and relay counters over Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application counters. Counters are atomics so the
// session hot path never takes a lock; Prometheus reads them lazily.
type Metrics struct {
	FramesSent      atomic.Uint64
	FramesReceived  atomic.Uint64
	Intrusions      atomic.Uint64
	SessionsStarted atomic.Uint64
	SessionActive   atomic.Uint64 // 0 or 1
	ConnectionsLost atomic.Uint64
	DemoRequests    atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"zoneguard_frames_sent_total", "Frames pushed to the detection backend", m.FramesSent.Load},
		{"zoneguard_frames_received_total", "Annotated frames received from the backend", m.FramesReceived.Load},
		{"zoneguard_intrusions_total", "Frames flagged with an intruder", m.Intrusions.Load},
		{"zoneguard_sessions_started_total", "Detection sessions started", m.SessionsStarted.Load},
		{"zoneguard_session_active", "Whether a detection session is live (0/1)", m.SessionActive.Load},
		{"zoneguard_connections_lost_total", "Sessions ended by unexpected disconnect", m.ConnectionsLost.Load},
		{"zoneguard_demo_requests_total", "Accepted demo requests", m.DemoRequests.Load},
	}
	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
