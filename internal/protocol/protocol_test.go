package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"zoneguard/internal/faults"
	"zoneguard/internal/geometry"
)

func TestClassifyControlSignals(t *testing.T) {
	cases := []struct {
		in   string
		want Signal
	}{
		{"STREAM_READY", SignalStreamReady},
		{"STREAM_ENDED", SignalStreamEnded},
		{"VIDEO_ENDED", SignalStreamEnded},
		{"ERROR: no video source", SignalError},
		{"INVALID_POLYGON: Need at least 3 points, got 2", SignalError},
		{"PROCESSING_ERROR: boom", SignalError},
		{"TIMEOUT: No message received within 30 seconds", SignalTimeout},
		{"hello", SignalUnknown},
	}
	for _, c := range cases {
		got, err := Classify([]byte(c.in))
		if err != nil {
			t.Fatalf("Classify(%q) error: %v", c.in, err)
		}
		if got.Signal != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.in, got.Signal, c.want)
		}
		if got.Frame != nil {
			t.Errorf("Classify(%q) produced a frame payload", c.in)
		}
	}
}

func TestClassifyFramePayload(t *testing.T) {
	in := []byte(`{"frame":"c29tZWpwZWc=","intruder":true}`)
	got, err := Classify(in)
	if err != nil {
		t.Fatal(err)
	}
	if got.Frame == nil {
		t.Fatal("expected frame payload")
	}
	if got.Frame.Frame != "c29tZWpwZWc=" || !got.Frame.Intruder {
		t.Fatalf("payload = %+v", got.Frame)
	}
}

func TestClassifyIntruderDefaultsFalse(t *testing.T) {
	got, err := Classify([]byte(`{"frame":"c29tZWpwZWc="}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Frame == nil || got.Frame.Intruder {
		t.Fatalf("payload = %+v, want intruder=false", got.Frame)
	}
}

func TestClassifyMalformedJSON(t *testing.T) {
	_, err := Classify([]byte(`{"frame": `))
	var perr *faults.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v, want ProtocolError", err)
	}
}

func TestClassifyJSONWithoutFrame(t *testing.T) {
	got, err := Classify([]byte(`{"status":"ok"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Frame != nil || got.Signal != SignalUnknown {
		t.Fatalf("got %+v, want unknown signal with no frame", got)
	}
}

func TestHandshakeWireShape(t *testing.T) {
	h := NewHandshake([]geometry.Point{{X: 100, Y: 100}, {X: 300, Y: 100}, {X: 300, Y: 300}})
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"polygon":[{"x":100,"y":100},{"x":300,"y":100},{"x":300,"y":300}]}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestHandshakeSnapshotsPolygon(t *testing.T) {
	pts := []geometry.Point{{X: 100, Y: 100}, {X: 300, Y: 100}, {X: 300, Y: 300}}
	h := NewHandshake(pts)
	pts[0] = geometry.Point{X: 1, Y: 1}
	if h.Polygon[0] != (geometry.Point{X: 100, Y: 100}) {
		t.Fatal("handshake aliases the caller's slice")
	}
}

func TestNewFrameMessage(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0}
	at := time.UnixMilli(1700000000123)
	m := NewFrameMessage(jpeg, at)
	if m.Type != "frame" {
		t.Fatalf("type = %q", m.Type)
	}
	if m.Timestamp != 1700000000123 {
		t.Fatalf("timestamp = %d", m.Timestamp)
	}
	decoded, err := base64.StdEncoding.DecodeString(m.Frame)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != string(jpeg) {
		t.Fatal("frame does not round-trip")
	}
}
