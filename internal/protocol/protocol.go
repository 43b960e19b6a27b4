// Package protocol defines the messages exchanged with the detection
// backend over the /ws/intrusion socket and classifies inbound traffic.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"zoneguard/internal/faults"
	"zoneguard/internal/geometry"
)

// Handshake is the first message on every session: the committed zone.
type Handshake struct {
	Polygon []geometry.Point `json:"polygon"`
}

// NewHandshake snapshots the polygon for the wire. Points are already
// integer canvas coordinates.
func NewHandshake(polygon []geometry.Point) Handshake {
	return Handshake{Polygon: append([]geometry.Point(nil), polygon...)}
}

// FrameMessage carries one client-captured JPEG frame in the push-loop
// variant. Frame is raw base64, no data-URI prefix.
type FrameMessage struct {
	Type      string `json:"type"`
	Frame     string `json:"frame"`
	Timestamp int64  `json:"timestamp"`
}

// NewFrameMessage encodes a JPEG frame tagged with a client timestamp in
// epoch milliseconds.
func NewFrameMessage(jpeg []byte, at time.Time) FrameMessage {
	return FrameMessage{
		Type:      "frame",
		Frame:     base64.StdEncoding.EncodeToString(jpeg),
		Timestamp: at.UnixMilli(),
	}
}

// Signal is a plain-text control message from the backend.
type Signal int

const (
	// SignalNone means the message was not a control signal.
	SignalNone Signal = iota
	// SignalStreamReady announces the backend will start sending frames.
	SignalStreamReady
	// SignalStreamEnded is a graceful end of stream (STREAM_ENDED or
	// VIDEO_ENDED).
	SignalStreamEnded
	// SignalError is any ERROR/INVALID control string.
	SignalError
	// SignalTimeout is a backend-side timeout notice.
	SignalTimeout
	// SignalUnknown is an unrecognized control string, logged and ignored.
	SignalUnknown
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalStreamReady:
		return "stream_ready"
	case SignalStreamEnded:
		return "stream_ended"
	case SignalError:
		return "error"
	case SignalTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// FramePayload is an annotated frame pushed by the backend.
type FramePayload struct {
	Frame    string `json:"frame"`
	Intruder bool   `json:"intruder"`
}

// Inbound is one classified backend message: either a control signal or a
// frame payload, never both.
type Inbound struct {
	Signal Signal
	Text   string
	Frame  *FramePayload
}

// Classify sorts an inbound text message into a control signal or a frame
// payload. Control strings never reach the frame display. Malformed JSON
// yields a ProtocolError; the caller drops the message and continues.
func Classify(data []byte) (Inbound, error) {
	text := strings.TrimSpace(string(data))
	if !strings.HasPrefix(text, "{") {
		return Inbound{Signal: classifyControl(text), Text: text}, nil
	}

	var payload FramePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Inbound{}, &faults.ProtocolError{Err: err}
	}
	if payload.Frame == "" {
		// JSON without a frame field carries nothing we act on.
		return Inbound{Signal: SignalUnknown, Text: text}, nil
	}
	return Inbound{Frame: &payload}, nil
}

func classifyControl(text string) Signal {
	switch text {
	case "STREAM_READY":
		return SignalStreamReady
	case "VIDEO_ENDED", "STREAM_ENDED":
		return SignalStreamEnded
	}
	switch {
	case strings.Contains(text, "ERROR"), strings.Contains(text, "INVALID"):
		return SignalError
	case strings.Contains(text, "TIMEOUT"):
		return SignalTimeout
	}
	return SignalUnknown
}
