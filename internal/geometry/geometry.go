package geometry

import "math"

// Canvas dimensions shared by the editor, renderer and detection backend.
// Frames are normalized to this size on both ends of the wire.
const (
	CanvasWidth  = 1280
	CanvasHeight = 720
)

const (
	// GridSize is the snapping pitch in canvas pixels.
	GridSize = 20
	// CloseRadius is the hit radius around the first vertex that closes
	// the polygon.
	CloseRadius = 40
)

// Point is a grid-snapped position in canvas pixel coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToCanvas maps pointer coordinates relative to the displayed surface into
// canvas pixel space, compensating for display scaling. The result is not
// snapped.
func ToCanvas(clientX, clientY, displayWidth, displayHeight float64) (float64, float64) {
	if displayWidth <= 0 || displayHeight <= 0 {
		return clientX, clientY
	}
	scaleX := float64(CanvasWidth) / displayWidth
	scaleY := float64(CanvasHeight) / displayHeight
	return clientX * scaleX, clientY * scaleY
}

// Snap rounds canvas coordinates to the nearest grid crossing.
func Snap(x, y float64) Point {
	return Point{
		X: int(math.Round(x/GridSize)) * GridSize,
		Y: int(math.Round(y/GridSize)) * GridSize,
	}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
