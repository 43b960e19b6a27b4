// Package render rasterizes the editor state: background frame, alignment
// grid and the polygon overlay. It holds no state of its own; every call is
// a pure function of its inputs.
package render

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"zoneguard/internal/geometry"
)

// Overlay palette, matching the product's zone styling.
var (
	edgeColor        = color.RGBA{R: 0x05, G: 0xEE, B: 0xFA, A: 0xFF} // cyan
	vertexColor      = color.RGBA{R: 0x05, G: 0xEE, B: 0xFA, A: 0xFF}
	firstVertexColor = color.RGBA{R: 0xFF, G: 0xD7, B: 0x00, A: 0xFF} // gold
	firstRingColor   = color.RGBA{R: 0xFF, G: 0xA5, B: 0x00, A: 0xFF} // orange
	ringColor        = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	backingColor     = color.RGBA{A: 0xFF}
	gridColor        = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}
)

const (
	edgeWidth       = 4.0
	backingRadius   = 12.0
	vertexRadius    = 8.0
	firstRadius     = 10.0
	ringWidth       = 2.0
	firstRingWidth  = 3.0
	gridStrokeWidth = 0.5
)

// Renderer draws editor state onto a canvas-sized RGBA image.
type Renderer struct{}

// New returns a renderer.
func New() *Renderer { return &Renderer{} }

// Render produces the full canvas: background (or neutral grid), edges
// between consecutive points, the synthesized closing edge when closed, and
// all vertices with the first one visually distinguished as the close
// target.
func (r *Renderer) Render(bg image.Image, points []geometry.Point, closed bool) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, geometry.CanvasWidth, geometry.CanvasHeight))

	if bg != nil {
		xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), bg, bg.Bounds(), xdraw.Src, nil)
	}

	dc := gg.NewContextForRGBA(canvas)
	if bg == nil {
		drawGrid(dc)
	}

	if len(points) == 0 {
		return canvas
	}

	dc.SetColor(edgeColor)
	dc.SetLineWidth(edgeWidth)
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		dc.DrawLine(float64(a.X), float64(a.Y), float64(b.X), float64(b.Y))
		dc.Stroke()
	}
	if closed && len(points) >= 3 {
		last, first := points[len(points)-1], points[0]
		dc.DrawLine(float64(last.X), float64(last.Y), float64(first.X), float64(first.Y))
		dc.Stroke()
	}

	for i, p := range points {
		x, y := float64(p.X), float64(p.Y)

		dc.SetColor(backingColor)
		dc.DrawCircle(x, y, backingRadius)
		dc.Fill()

		if i == 0 {
			dc.SetColor(firstVertexColor)
			dc.DrawCircle(x, y, firstRadius)
			dc.FillPreserve()
			dc.SetColor(firstRingColor)
			dc.SetLineWidth(firstRingWidth)
			dc.Stroke()
		} else {
			dc.SetColor(vertexColor)
			dc.DrawCircle(x, y, vertexRadius)
			dc.FillPreserve()
			dc.SetColor(ringColor)
			dc.SetLineWidth(ringWidth)
			dc.Stroke()
		}
	}

	return canvas
}

func drawGrid(dc *gg.Context) {
	dc.SetColor(gridColor)
	dc.SetLineWidth(gridStrokeWidth)
	for x := 0; x < geometry.CanvasWidth; x += geometry.GridSize {
		dc.DrawLine(float64(x), 0, float64(x), geometry.CanvasHeight)
		dc.Stroke()
	}
	for y := 0; y < geometry.CanvasHeight; y += geometry.GridSize {
		dc.DrawLine(0, float64(y), geometry.CanvasWidth, float64(y))
		dc.Stroke()
	}
}
