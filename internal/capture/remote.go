package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"zoneguard/internal/faults"
)

// snapshotPath is the backend endpoint that captures one frame server-side.
const snapshotPath = "/getIntrusionImage"

// RemoteSource asks the detection backend to capture a frame on its side.
// Command selects the backend's own source: "webcam" or "file".
type RemoteSource struct {
	baseURL string
	command string
	client  *http.Client
}

// NewRemoteSource returns a remote-snapshot strategy against the backend at
// baseURL.
func NewRemoteSource(baseURL, command string) *RemoteSource {
	return &RemoteSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		command: command,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *RemoteSource) Kind() Kind { return KindRemote }

type snapshotRequest struct {
	Command string `json:"command"`
}

type snapshotResponse struct {
	Success bool   `json:"success"`
	Image   string `json:"image"`
	Message string `json:"message"`
}

// Acquire posts the capture command and decodes the returned image, which
// arrives either as a data URI or as raw base64.
func (s *RemoteSource) Acquire(ctx context.Context) (image.Image, error) {
	body, err := json.Marshal(snapshotRequest{Command: s.command})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+snapshotPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &faults.BackendError{Message: err.Error()}
	}
	defer resp.Body.Close()

	var snap snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, &faults.BackendError{Message: fmt.Sprintf("unreadable snapshot response: %v", err)}
	}
	if !snap.Success || snap.Image == "" {
		msg := snap.Message
		if msg == "" {
			msg = "snapshot failed"
		}
		return nil, &faults.BackendError{Message: msg}
	}

	raw, err := decodeEmbeddedImage(snap.Image)
	if err != nil {
		return nil, &faults.DecodeError{Source: "snapshot", Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &faults.DecodeError{Source: "snapshot", Err: err}
	}
	return img, nil
}

// Release is a no-op; the snapshot request holds nothing open.
func (s *RemoteSource) Release() error { return nil }

// decodeEmbeddedImage handles both "data:image/...;base64,xxxx" and bare
// base64 payloads.
func decodeEmbeddedImage(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:image") {
		idx := strings.Index(payload, "base64,")
		if idx < 0 {
			return nil, fmt.Errorf("data URI without base64 payload")
		}
		payload = payload[idx+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(payload)
}
