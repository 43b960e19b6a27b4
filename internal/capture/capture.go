// Package capture acquires the still background image the zone editor draws
// over. Three interchangeable strategies exist: a local camera, an uploaded
// video file, and a remote snapshot served by the detection backend.
// Frame grabs from local sources shell out to ffmpeg; no decoding happens in
// process beyond the final JPEG.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"zoneguard/internal/faults"
	"zoneguard/internal/geometry"
)

// Kind identifies a capture strategy.
type Kind int

const (
	// KindCamera grabs frames from a local video device.
	KindCamera Kind = iota
	// KindFile grabs the first frame of an uploaded video file.
	KindFile
	// KindRemote asks the detection backend for a snapshot.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindCamera:
		return "camera"
	case KindFile:
		return "file"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Source produces a background image and owns whatever device or handle the
// acquisition needed. Acquire and Release are strictly paired.
type Source interface {
	Kind() Kind
	Acquire(ctx context.Context) (image.Image, error)
	Release() error
}

// FrameGrabber is implemented by sources that can feed the session's
// frame-push loop with live JPEG frames.
type FrameGrabber interface {
	CaptureJPEG(ctx context.Context) ([]byte, error)
}

// grabFunc runs ffmpeg with the given arguments and returns stdout.
// Injectable so tests never spawn a process.
type grabFunc func(ctx context.Context, args []string) ([]byte, error)

func ffmpegGrab(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w (stderr: %s)", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// CameraSource grabs single frames from a V4L2 device.
type CameraSource struct {
	device string
	grab   grabFunc
}

// NewCameraSource returns a camera strategy for the given device path.
func NewCameraSource(device string) *CameraSource {
	return &CameraSource{device: device, grab: ffmpegGrab}
}

func (s *CameraSource) Kind() Kind { return KindCamera }

// Acquire grabs one frame from the device as the drawing background.
func (s *CameraSource) Acquire(ctx context.Context) (image.Image, error) {
	jpeg, err := s.CaptureJPEG(ctx)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(jpeg))
	if err != nil {
		return nil, &faults.DecodeError{Source: s.device, Err: err}
	}
	return img, nil
}

// CaptureJPEG grabs one JPEG frame from the live device. Used both for the
// initial background and by the session push loop.
func (s *CameraSource) CaptureJPEG(ctx context.Context) ([]byte, error) {
	if !deviceAccessible(s.device) {
		return nil, &faults.DeviceError{Device: s.device, Err: fmt.Errorf("not accessible")}
	}
	args := []string{
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", geometry.CanvasWidth, geometry.CanvasHeight),
		"-i", s.device,
		"-vframes", "1",
		"-f", "mjpeg",
		"-q:v", "2",
		"-",
	}
	data, err := s.grab(ctx, args)
	if err != nil {
		return nil, &faults.DeviceError{Device: s.device, Err: err}
	}
	return data, nil
}

// Release detaches from the device. Grabs are one-shot, so there is no
// stream to stop; Release exists to keep the acquire/release pairing.
func (s *CameraSource) Release() error { return nil }

func deviceAccessible(device string) bool {
	if _, err := os.Stat(device); err != nil {
		return false
	}
	f, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// FileSource grabs the t=0 frame of an uploaded video file.
type FileSource struct {
	path string
	grab grabFunc
}

// NewFileSource returns a file strategy for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, grab: ffmpegGrab}
}

func (s *FileSource) Kind() Kind { return KindFile }

// Acquire validates the upload and decodes its first frame. Non-video files
// are rejected before anything touches the disk contents.
func (s *FileSource) Acquire(ctx context.Context) (image.Image, error) {
	mimeType := mime.TypeByExtension(filepath.Ext(s.path))
	if !strings.HasPrefix(mimeType, "video/") {
		return nil, &faults.ValidationError{
			Reason: fmt.Sprintf("%s is not a video file", filepath.Base(s.path)),
		}
	}
	if _, err := os.Stat(s.path); err != nil {
		return nil, &faults.ValidationError{Reason: fmt.Sprintf("cannot read %s", filepath.Base(s.path))}
	}

	args := []string{
		"-ss", "0",
		"-i", s.path,
		"-vframes", "1",
		"-f", "mjpeg",
		"-q:v", "2",
		"-",
	}
	data, err := s.grab(ctx, args)
	if err != nil {
		return nil, &faults.DecodeError{Source: s.path, Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &faults.DecodeError{Source: s.path, Err: err}
	}
	return img, nil
}

// Release is a no-op for file sources; the file handle never outlives the
// grab.
func (s *FileSource) Release() error { return nil }
