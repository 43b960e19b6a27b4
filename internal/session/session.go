// Package session manages the socket exchange with the detection backend:
// one handshake carrying the committed zone, then annotated frames inbound
// and, for camera sources, live frames outbound. A session owns its socket
// and its frame ticker exclusively; every exit path releases both.
package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"zoneguard/internal/capture"
	"zoneguard/internal/faults"
	"zoneguard/internal/geometry"
	"zoneguard/internal/metrics"
	"zoneguard/internal/protocol"
)

// State is the lifecycle state of a session.
type State int

const (
	// StateIdle means no socket exists.
	StateIdle State = iota
	// StateConnecting means the dial is in flight.
	StateConnecting
	// StateOpen means the socket is up and the handshake has been sent.
	StateOpen
	// StateStreaming means at least one annotated frame has arrived.
	StateStreaming
	// StateClosed is the transient window while resources are released.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	// FrameRate is the camera push-loop rate in frames per second.
	FrameRate = 10
	// connectTimeout bounds the dial; elapsing forces the socket closed.
	connectTimeout = 10 * time.Second
	// grabTimeout bounds a single push-loop frame grab.
	grabTimeout = 5 * time.Second
)

// Dialer abstracts the websocket dial so tests can block or fail it.
// *websocket.Dialer satisfies it.
type Dialer interface {
	Dial(urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Events are the caller's hooks. All hooks are optional and are invoked
// outside the session lock.
type Events struct {
	// OnFrame receives each decoded annotated frame with its intrusion
	// flag, in arrival order.
	OnFrame func(frame []byte, intruder bool)
	// OnState observes every state transition.
	OnState func(from, to State)
	// OnError receives the single surfaced error of a failed session.
	// User-initiated stops never produce one.
	OnError func(err error)
}

// Config wires a session.
type Config struct {
	// URL is the backend detection socket, e.g. ws://host/ws/intrusion.
	URL string
	// Dialer defaults to websocket.DefaultDialer.
	Dialer Dialer
	// Clock defaults to the real clock; tests inject a mock.
	Clock clock.Clock
	// Metrics is optional.
	Metrics *metrics.Metrics
	Events  Events
}

// Session is a single-owner detection stream. Zero or one socket and zero
// or one ticker exist at any instant.
type Session struct {
	url     string
	dialer  Dialer
	clk     clock.Clock
	metrics *metrics.Metrics
	events  Events

	mu       sync.Mutex
	writeMu  sync.Mutex // serializes socket writes (push loop vs close)
	id       string
	state    State
	conn     *websocket.Conn
	ticker   *clock.Ticker
	stopCh   chan struct{}
	stopped  bool // user-initiated stop for the current run
	frame    []byte
	intruder bool
	pending  []transition
}

type transition struct {
	from, to State
}

type dialResult struct {
	conn *websocket.Conn
	err  error
}

// setStateLocked records a transition for later delivery; OnState runs
// outside the lock via flushTransitions.
func (s *Session) setStateLocked(to State) {
	if s.state == to {
		return
	}
	s.pending = append(s.pending, transition{from: s.state, to: to})
	s.state = to
}

// flushTransitions delivers queued OnState callbacks in order.
func (s *Session) flushTransitions() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	cb := s.events.OnState
	s.mu.Unlock()
	if cb == nil {
		return
	}
	for _, t := range pending {
		cb(t.from, t.to)
	}
}

// New returns an idle session.
func New(cfg Config) *Session {
	s := &Session{
		url:     cfg.URL,
		dialer:  cfg.Dialer,
		clk:     cfg.Clock,
		metrics: cfg.Metrics,
		events:  cfg.Events,
		state:   StateIdle,
	}
	if s.dialer == nil {
		s.dialer = websocket.DefaultDialer
	}
	if s.clk == nil {
		s.clk = clock.New()
	}
	return s
}

// Start opens a session for the committed polygon. A prior session is fully
// torn down first. When grabber is non-nil the session pushes live frames
// at FrameRate; otherwise frames arrive solely from the backend.
func (s *Session) Start(polygon []geometry.Point, grabber capture.FrameGrabber) error {
	if len(polygon) < 3 {
		return &faults.ValidationError{Reason: "a closed polygon with at least 3 points is required"}
	}

	s.Stop()

	s.mu.Lock()
	s.id = uuid.NewString()
	s.stopped = false
	s.stopCh = make(chan struct{})
	s.setStateLocked(StateConnecting)
	id, stopCh := s.id, s.stopCh
	s.mu.Unlock()
	s.flushTransitions()

	if s.metrics != nil {
		s.metrics.SessionsStarted.Add(1)
		s.metrics.SessionActive.Store(1)
	}
	log.Printf("[Session] %s connecting to %s (%d zone points)", id, s.url, len(polygon))

	handshake := protocol.NewHandshake(polygon)
	go s.run(handshake, grabber, stopCh)
	return nil
}

// run dials, handshakes and drives the frame loops. stopCh belongs to this
// run; a newer run never shares it.
func (s *Session) run(handshake protocol.Handshake, grabber capture.FrameGrabber, stopCh chan struct{}) {
	timeout := s.clk.Timer(connectTimeout)
	defer timeout.Stop()

	dialed := make(chan dialResult, 1)
	go func() {
		conn, _, err := s.dialer.Dial(s.url, nil)
		dialed <- dialResult{conn: conn, err: err}
	}()

	var conn *websocket.Conn
	select {
	case <-stopCh:
		// Aborting a connecting socket: reap the dial whenever it lands.
		go discardDial(dialed)
		return
	case <-timeout.C:
		go discardDial(dialed)
		s.teardownRun(stopCh, &faults.TimeoutError{What: "connection handshake exceeded 10s"})
		return
	case r := <-dialed:
		if r.err != nil {
			s.teardownRun(stopCh, &faults.ConnectionLost{Reason: r.err.Error()})
			return
		}
		conn = r.conn
	}

	s.mu.Lock()
	if s.stopped || s.stopCh != stopCh {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	// The zone handshake is the first message on the wire, always before
	// any frame.
	if err := s.writeJSON(conn, handshake); err != nil {
		s.teardownRun(stopCh, &faults.ConnectionLost{Reason: fmt.Sprintf("handshake send: %v", err)})
		return
	}

	var ticker *clock.Ticker
	if grabber != nil {
		ticker = s.clk.Ticker(time.Second / FrameRate)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		if ticker != nil {
			ticker.Stop()
		}
		return
	}
	s.ticker = ticker
	s.setStateLocked(StateOpen)
	s.mu.Unlock()
	s.flushTransitions()

	go s.readLoop(conn, stopCh)
	if ticker != nil {
		s.pushLoop(conn, grabber, ticker, stopCh)
	}
}

func discardDial(dialed <-chan dialResult) {
	if r := <-dialed; r.conn != nil {
		r.conn.Close()
	}
}

// pushLoop captures and sends one frame per tick until the run ends.
func (s *Session) pushLoop(conn *websocket.Conn, grabber capture.FrameGrabber, ticker *clock.Ticker, stopCh chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			jpeg, err := s.grabFrame(grabber)
			if err != nil {
				log.Printf("[Session] %s frame grab: %v", s.sessionID(), err)
				continue
			}
			msg := protocol.NewFrameMessage(jpeg, s.clk.Now())
			if err := s.writeJSON(conn, msg); err != nil {
				// The read loop observes the broken socket and tears
				// down; the push loop just exits.
				return
			}
			if s.metrics != nil {
				s.metrics.FramesSent.Add(1)
			}
		}
	}
}

func (s *Session) grabFrame(grabber capture.FrameGrabber) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), grabTimeout)
	defer cancel()
	return grabber.CaptureJPEG(ctx)
}

// readLoop applies inbound messages in arrival order, latest frame wins.
func (s *Session) readLoop(conn *websocket.Conn, stopCh chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleReadError(err, stopCh)
			return
		}

		inbound, perr := protocol.Classify(data)
		if perr != nil {
			// Malformed message: drop it, the session continues.
			log.Printf("[Session] %s dropped message: %v", s.sessionID(), perr)
			continue
		}

		if inbound.Frame != nil {
			s.applyFrame(inbound.Frame)
			continue
		}

		switch inbound.Signal {
		case protocol.SignalStreamReady:
			log.Printf("[Session] %s stream ready", s.sessionID())
		case protocol.SignalStreamEnded:
			log.Printf("[Session] %s stream ended by server", s.sessionID())
			s.teardownRun(stopCh, nil)
			return
		case protocol.SignalError:
			s.teardownRun(stopCh, &faults.BackendError{Message: inbound.Text})
			return
		case protocol.SignalTimeout:
			s.teardownRun(stopCh, &faults.TimeoutError{What: inbound.Text})
			return
		default:
			log.Printf("[Session] %s server message: %s", s.sessionID(), inbound.Text)
		}
	}
}

// applyFrame decodes and publishes an annotated frame.
func (s *Session) applyFrame(payload *protocol.FramePayload) {
	jpeg, err := base64.StdEncoding.DecodeString(payload.Frame)
	if err != nil {
		log.Printf("[Session] %s dropped frame: %v", s.sessionID(), &faults.ProtocolError{Err: err})
		return
	}

	s.mu.Lock()
	if s.state != StateOpen && s.state != StateStreaming {
		s.mu.Unlock()
		return
	}
	s.frame = jpeg
	s.intruder = payload.Intruder
	if s.state == StateOpen {
		s.setStateLocked(StateStreaming)
	}
	cb := s.events.OnFrame
	s.mu.Unlock()
	s.flushTransitions()

	if s.metrics != nil {
		s.metrics.FramesReceived.Add(1)
		if payload.Intruder {
			s.metrics.Intrusions.Add(1)
		}
	}
	if cb != nil {
		cb(jpeg, payload.Intruder)
	}
}

// handleReadError maps a read failure onto the error taxonomy. A close the
// user asked for surfaces nothing; a normal server close is a graceful end;
// anything else is a lost connection. stopCh identifies the read loop's
// run: an error from a connection whose run has already been replaced must
// not touch its successor.
func (s *Session) handleReadError(err error, stopCh chan struct{}) {
	s.mu.Lock()
	stale := s.stopped || s.stopCh != stopCh
	s.mu.Unlock()
	if stale {
		return
	}

	if ce, ok := err.(*websocket.CloseError); ok {
		if ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway {
			s.teardownRun(stopCh, nil)
			return
		}
		s.teardownRun(stopCh, &faults.ConnectionLost{Code: ce.Code, Reason: ce.Text})
		return
	}
	s.teardownRun(stopCh, &faults.ConnectionLost{Reason: err.Error()})
}

// Stop ends the session on the user's initiative: normal-closure close
// frame, ticker cancelled synchronously, no error surfaced. Safe to call in
// any state, including while connecting.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.teardown(nil)
}

// teardown releases the ticker and socket, clears frame state and returns
// to Idle. cause, when non-nil, is surfaced exactly once: teardown is a
// no-op for a session already idle.
func (s *Session) teardown(cause error) {
	s.teardownRun(nil, cause)
}

// teardownRun is teardown on behalf of a single run. ownStopCh, when
// non-nil, must still identify the current run; a goroutine left over from
// a replaced run must never tear down its successor. The identity check
// shares the lock with the state change, so there is no window for a
// restart to slip between them.
func (s *Session) teardownRun(ownStopCh chan struct{}, cause error) {
	s.mu.Lock()
	if s.state == StateIdle || (ownStopCh != nil && s.stopCh != ownStopCh) {
		s.mu.Unlock()
		return
	}

	s.setStateLocked(StateClosed)

	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	conn := s.conn
	s.conn = nil
	stopped := s.stopped
	s.frame = nil
	s.intruder = false
	id := s.id

	s.setStateLocked(StateIdle)
	onError := s.events.OnError
	s.mu.Unlock()

	if conn != nil {
		if stopped || cause == nil {
			s.writeMu.Lock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "detection stopped"),
				time.Now().Add(time.Second))
			s.writeMu.Unlock()
		}
		conn.Close()
	}

	if s.metrics != nil {
		s.metrics.SessionActive.Store(0)
	}

	s.flushTransitions()

	if cause != nil && !stopped {
		log.Printf("[Session] %s ended: %v", id, cause)
		if s.metrics != nil {
			if _, lost := cause.(*faults.ConnectionLost); lost {
				s.metrics.ConnectionsLost.Add(1)
			}
		}
		if onError != nil {
			onError(cause)
		}
	} else {
		log.Printf("[Session] %s closed", id)
	}
}

// writeJSON serializes socket writes; gorilla permits one writer at a time.
func (s *Session) writeJSON(conn *websocket.Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LatestFrame returns the most recent annotated frame and intrusion flag.
// nil when no frame is held.
func (s *Session) LatestFrame() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, false
	}
	return append([]byte(nil), s.frame...), s.intruder
}

func (s *Session) sessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}
