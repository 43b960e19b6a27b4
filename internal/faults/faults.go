// Package faults defines the error taxonomy shared by the capture and
// session layers. Every failure a user can see maps onto one of these types
// so callers can branch with errors.As instead of string matching.
package faults

import "fmt"

// ValidationError reports rejected user input, e.g. a non-video upload.
// Surfaced immediately, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// DeviceError reports a camera that is denied, missing or unreadable.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// DecodeError reports a video or image that could not be decoded.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// BackendError carries the message reported by the inference backend.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: %s", e.Message)
}

// TimeoutError reports a connection handshake that exceeded its deadline.
type TimeoutError struct {
	What string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s", e.What)
}

// ProtocolError reports a malformed inbound message. Non-fatal: the message
// is dropped and the session continues.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ConnectionLost reports a socket error or non-normal close while a session
// was live. Not produced for user-initiated stops.
type ConnectionLost struct {
	Code   int
	Reason string
}

func (e *ConnectionLost) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("connection lost (code %d): %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("connection lost (code %d)", e.Code)
}
