// Package editor owns the polygon being drawn over the capture background.
// It is a state machine driven by pointer events; invalid flag combinations
// (streaming while drawing, closing with too few points) are unrepresentable.
package editor

import (
	"image"

	"zoneguard/internal/geometry"
)

// Phase is the editing phase of the polygon.
type Phase int

const (
	// PhaseEmpty means no points have been placed.
	PhaseEmpty Phase = iota
	// PhaseDrawing means the polygon is open and accepting points.
	PhaseDrawing
	// PhaseClosed means the polygon has been closed and committed.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseDrawing:
		return "drawing"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Editor processes pointer gestures into polygon state. It is inert until a
// background image is set and while locked by an active detection session.
type Editor struct {
	phase      Phase
	points     []geometry.Point
	dragging   bool
	committed  []geometry.Point
	background image.Image
	locked     bool
}

// New returns an empty editor with no background.
func New() *Editor {
	return &Editor{phase: PhaseEmpty}
}

// accepting reports whether pointer input is currently processed.
func (e *Editor) accepting() bool {
	return e.background != nil && !e.locked && e.phase != PhaseClosed
}

// PointerDown appends a snapped point and begins a drag. Coordinates are in
// canvas space, pre-snap.
func (e *Editor) PointerDown(x, y float64) {
	if !e.accepting() {
		return
	}
	e.points = append(e.points, geometry.Snap(x, y))
	e.dragging = true
	e.phase = PhaseDrawing
}

// PointerMove rubber-bands the point being placed: while dragging it
// replaces the most recent point, it never adds one.
func (e *Editor) PointerMove(x, y float64) {
	if !e.accepting() || !e.dragging || len(e.points) == 0 {
		return
	}
	e.points[len(e.points)-1] = geometry.Snap(x, y)
}

// PointerUp finalizes the dragged point and ends the drag.
func (e *Editor) PointerUp(x, y float64) {
	if !e.accepting() || !e.dragging {
		return
	}
	if len(e.points) > 0 {
		e.points[len(e.points)-1] = geometry.Snap(x, y)
	}
	e.dragging = false
}

// Click places a point, or closes the polygon when at least three points
// exist and the click lands within the close radius of the first vertex.
// Clicks that are part of a drag must not be delivered here.
func (e *Editor) Click(x, y float64) {
	if !e.accepting() || e.dragging {
		return
	}
	p := geometry.Snap(x, y)
	if len(e.points) >= 3 && geometry.Distance(e.points[0], p) <= geometry.CloseRadius {
		e.close()
		return
	}
	e.points = append(e.points, p)
	e.phase = PhaseDrawing
}

// close commits the current points. The closing edge is synthesized at
// render and handshake time; no duplicate first vertex is appended.
func (e *Editor) close() {
	e.phase = PhaseClosed
	e.committed = append([]geometry.Point(nil), e.points...)
}

// Undo reopens a closed polygon without touching its vertices, otherwise it
// removes the last point. No-op when empty.
func (e *Editor) Undo() {
	if e.background == nil || e.locked {
		return
	}
	switch e.phase {
	case PhaseClosed:
		e.phase = PhaseDrawing
	case PhaseDrawing:
		if len(e.points) > 0 {
			e.points = e.points[:len(e.points)-1]
		}
		if len(e.points) == 0 {
			e.phase = PhaseEmpty
		}
	}
}

// Clear discards all points and the background reference. The committed
// polygon survives so detection can restart without redrawing.
func (e *Editor) Clear() {
	if e.locked {
		return
	}
	e.points = nil
	e.dragging = false
	e.background = nil
	e.phase = PhaseEmpty
}

// SetBackground installs the still image the polygon is drawn over. The
// editor stays inert until one is present.
func (e *Editor) SetBackground(img image.Image) {
	e.background = img
}

// Background returns the current background image, nil when none is loaded.
func (e *Editor) Background() image.Image { return e.background }

// Lock freezes the editor for the duration of a detection session.
func (e *Editor) Lock() { e.locked = true }

// Unlock re-enables editing after a session ends.
func (e *Editor) Unlock() { e.locked = false }

// Locked reports whether a session currently holds the editor.
func (e *Editor) Locked() bool { return e.locked }

// Phase returns the current editing phase.
func (e *Editor) Phase() Phase { return e.phase }

// Dragging reports whether a point placement drag is in progress.
func (e *Editor) Dragging() bool { return e.dragging }

// Points returns a copy of the in-progress vertex list.
func (e *Editor) Points() []geometry.Point {
	return append([]geometry.Point(nil), e.points...)
}

// Committed returns a copy of the last closed polygon, nil if none was ever
// closed. Only Reset discards it.
func (e *Editor) Committed() []geometry.Point {
	if e.committed == nil {
		return nil
	}
	return append([]geometry.Point(nil), e.committed...)
}

// Reset is the full teardown: everything Clear drops plus the committed
// polygon cache.
func (e *Editor) Reset() {
	if e.locked {
		return
	}
	e.Clear()
	e.committed = nil
}
