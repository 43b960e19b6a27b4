// Package monitor ties the capture manager, zone editor, renderer and
// detection session together and enforces the rules that span them:
// drawing needs a source, drawing is locked while detection runs, and
// detection needs a committed zone.
package monitor

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	"zoneguard/internal/capture"
	"zoneguard/internal/editor"
	"zoneguard/internal/faults"
	"zoneguard/internal/geometry"
	"zoneguard/internal/metrics"
	"zoneguard/internal/render"
	"zoneguard/internal/session"
)

// Config wires a monitor.
type Config struct {
	// BackendHTTP is the backend base URL for HTTP calls, e.g.
	// http://localhost:8000.
	BackendHTTP string
	// BackendWS is the detection socket URL, e.g.
	// ws://localhost:8000/ws/intrusion.
	BackendWS string
	// CameraDevice is the v4l2 device for StartWebcam, /dev/video0 by
	// default.
	CameraDevice string

	Metrics *metrics.Metrics
	// Session overrides parts of the session wiring; URL is always taken
	// from BackendWS. Tests use it to inject dialers and clocks.
	Session session.Config
}

// Monitor owns one capture source, one editor and at most one running
// detection session.
type Monitor struct {
	cfg      Config
	manager  *capture.Manager
	editor   *editor.Editor
	renderer *render.Renderer
	session  *session.Session

	mu sync.Mutex
}

// New builds an idle monitor with an empty editor and no source.
func New(cfg Config) *Monitor {
	if cfg.CameraDevice == "" {
		cfg.CameraDevice = "/dev/video0"
	}
	m := &Monitor{
		cfg:      cfg,
		manager:  capture.NewManager(),
		editor:   editor.New(),
		renderer: render.New(),
	}

	scfg := cfg.Session
	scfg.URL = cfg.BackendWS
	if scfg.Metrics == nil {
		scfg.Metrics = cfg.Metrics
	}
	// The editor stays locked for exactly as long as a session exists.
	userOnState := scfg.Events.OnState
	scfg.Events.OnState = func(from, to session.State) {
		if to == session.StateIdle {
			m.mu.Lock()
			m.editor.Unlock()
			m.mu.Unlock()
		}
		if userOnState != nil {
			userOnState(from, to)
		}
	}
	m.session = session.New(scfg)
	return m
}

// StartWebcam switches to the local camera and makes its first frame the
// drawing background.
func (m *Monitor) StartWebcam(ctx context.Context) error {
	return m.switchSource(ctx, capture.NewCameraSource(m.cfg.CameraDevice))
}

// UploadVideo switches to a video file; its first frame becomes the
// drawing background.
func (m *Monitor) UploadVideo(ctx context.Context, path string) error {
	return m.switchSource(ctx, capture.NewFileSource(path))
}

// UseRemote asks the backend for its own snapshot. command selects the
// backend's source, "webcam" or "file".
func (m *Monitor) UseRemote(ctx context.Context, command string) error {
	return m.switchSource(ctx, capture.NewRemoteSource(m.cfg.BackendHTTP, command))
}

func (m *Monitor) switchSource(ctx context.Context, src capture.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editor.Locked() {
		return &faults.ValidationError{Reason: "cannot change source while detection is running"}
	}
	bg, err := m.manager.Switch(ctx, src)
	if err != nil {
		return err
	}
	// A fresh background restarts the drawing; the committed zone is kept.
	m.editor.Clear()
	m.editor.SetBackground(bg)
	log.Printf("[Monitor] source %s active", src.Kind())
	return nil
}

// ClearAll drops the drawing, the background and the held source. The
// committed zone survives so detection can still be restarted.
func (m *Monitor) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editor.Locked() {
		return &faults.ValidationError{Reason: "cannot clear while detection is running"}
	}
	m.editor.Clear()
	return m.manager.Release()
}

// UndoPoint removes the last drawn point, or reopens a closed zone.
func (m *Monitor) UndoPoint() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editor.Undo()
}

// PointerDown maps displayed coordinates onto the canvas and forwards them.
// displayW/displayH describe the on-screen size of the canvas element.
func (m *Monitor) PointerDown(clientX, clientY, displayW, displayH float64) {
	x, y := geometry.ToCanvas(clientX, clientY, displayW, displayH)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editor.PointerDown(x, y)
}

// PointerMove forwards a pointer move in display coordinates.
func (m *Monitor) PointerMove(clientX, clientY, displayW, displayH float64) {
	x, y := geometry.ToCanvas(clientX, clientY, displayW, displayH)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editor.PointerMove(x, y)
}

// PointerUp forwards a pointer release in display coordinates.
func (m *Monitor) PointerUp(clientX, clientY, displayW, displayH float64) {
	x, y := geometry.ToCanvas(clientX, clientY, displayW, displayH)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editor.PointerUp(x, y)
}

// Click forwards a click in display coordinates. Near the first vertex it
// closes the zone.
func (m *Monitor) Click(clientX, clientY, displayW, displayH float64) {
	x, y := geometry.ToCanvas(clientX, clientY, displayW, displayH)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editor.Click(x, y)
}

// StartDetection opens a detection session for the committed zone. It
// requires a committed zone and a held source, locks the editor, and
// replaces any running session.
func (m *Monitor) StartDetection() error {
	m.mu.Lock()
	zone := m.editor.Committed()
	if len(zone) < 3 {
		m.mu.Unlock()
		return &faults.ValidationError{Reason: "draw and close a zone before starting detection"}
	}
	src := m.manager.Current()
	if src == nil {
		m.mu.Unlock()
		return &faults.ValidationError{Reason: "select a video source before starting detection"}
	}
	grabber := m.manager.Grabber()
	m.mu.Unlock()

	// Start tears down any previous session, which unlocks the editor
	// through the state hook; lock only once the new session exists.
	if err := m.session.Start(zone, grabber); err != nil {
		return fmt.Errorf("start detection: %w", err)
	}
	m.mu.Lock()
	m.editor.Lock()
	m.mu.Unlock()
	if m.session.State() == session.StateIdle {
		// The session already failed; do not leave the editor locked.
		m.mu.Lock()
		m.editor.Unlock()
		m.mu.Unlock()
	}
	return nil
}

// StopDetection ends the session on the user's initiative and unlocks the
// editor.
func (m *Monitor) StopDetection() {
	m.session.Stop()
	m.mu.Lock()
	m.editor.Unlock()
	m.mu.Unlock()
}

// Detecting reports whether a session currently exists.
func (m *Monitor) Detecting() bool {
	return m.session.State() != session.StateIdle
}

// SessionState exposes the session lifecycle state.
func (m *Monitor) SessionState() session.State {
	return m.session.State()
}

// Snapshot renders the current drawing: background, zone edges and
// vertices.
func (m *Monitor) Snapshot() *image.RGBA {
	m.mu.Lock()
	bg := m.editor.Background()
	pts := m.editor.Points()
	closed := m.editor.Phase() == editor.PhaseClosed
	m.mu.Unlock()
	return m.renderer.Render(bg, pts, closed)
}

// LatestFrame returns the newest annotated frame from the backend and its
// intrusion flag, nil when detection is not streaming.
func (m *Monitor) LatestFrame() ([]byte, bool) {
	return m.session.LatestFrame()
}

// IntruderDetected reports the intrusion flag of the latest frame.
func (m *Monitor) IntruderDetected() bool {
	_, intruder := m.session.LatestFrame()
	return intruder
}

// Editor exposes the zone editor for direct canvas-coordinate input.
func (m *Monitor) Editor() *editor.Editor { return m.editor }

// Close stops detection and releases the held source.
func (m *Monitor) Close() error {
	m.session.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editor.Unlock()
	return m.manager.Release()
}
