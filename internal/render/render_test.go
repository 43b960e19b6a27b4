package render

import (
	"image"
	"image/color"
	"testing"

	"zoneguard/internal/geometry"
)

func TestRenderCanvasSize(t *testing.T) {
	out := New().Render(nil, nil, false)
	b := out.Bounds()
	if b.Dx() != geometry.CanvasWidth || b.Dy() != geometry.CanvasHeight {
		t.Fatalf("canvas %dx%d, want %dx%d", b.Dx(), b.Dy(), geometry.CanvasWidth, geometry.CanvasHeight)
	}
}

func TestRenderGridWithoutBackground(t *testing.T) {
	out := New().Render(nil, nil, false)
	// A pixel on a grid column away from any row crossing must not be
	// fully transparent.
	px := out.RGBAAt(geometry.GridSize, geometry.GridSize/2)
	if px.A == 0 {
		t.Fatal("no grid drawn on empty canvas")
	}
}

func TestRenderScalesBackground(t *testing.T) {
	bg := image.NewRGBA(image.Rect(0, 0, 10, 10))
	red := color.RGBA{R: 0xFF, A: 0xFF}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			bg.SetRGBA(x, y, red)
		}
	}
	out := New().Render(bg, nil, false)
	// The 10x10 source must cover the whole canvas.
	for _, pt := range []image.Point{{X: 5, Y: 5}, {geometry.CanvasWidth - 5, geometry.CanvasHeight - 5}} {
		px := out.RGBAAt(pt.X, pt.Y)
		if px.R < 0xF0 || px.G > 0x10 || px.B > 0x10 {
			t.Fatalf("background not scaled to %v: %v", pt, px)
		}
	}
}

func TestRenderDistinguishesFirstVertex(t *testing.T) {
	pts := []geometry.Point{{X: 100, Y: 100}, {X: 300, Y: 100}, {X: 300, Y: 300}}
	out := New().Render(nil, pts, false)

	first := out.RGBAAt(100, 100)
	// Gold: strong red and green, little blue.
	if first.R < 0xC0 || first.G < 0x80 || first.B > 0x40 {
		t.Fatalf("first vertex %v, want gold", first)
	}

	second := out.RGBAAt(300, 100)
	// Cyan: strong blue and green, little red.
	if second.B < 0xC0 || second.G < 0x80 || second.R > 0x40 {
		t.Fatalf("second vertex %v, want cyan", second)
	}
}

func TestRenderDrawsEdgesBetweenConsecutivePoints(t *testing.T) {
	pts := []geometry.Point{{X: 100, Y: 100}, {X: 300, Y: 100}}
	out := New().Render(nil, pts, false)
	// Midpoint of the only edge.
	mid := out.RGBAAt(200, 100)
	if mid.B < 0xC0 || mid.G < 0x80 {
		t.Fatalf("edge midpoint %v, want cyan stroke", mid)
	}
}

func TestRenderClosingEdgeOnlyWhenClosed(t *testing.T) {
	pts := []geometry.Point{{X: 100, Y: 100}, {X: 300, Y: 100}, {X: 300, Y: 300}, {X: 100, Y: 300}}
	// Closing edge runs from (100,300) back to (100,100); probe its
	// midpoint, clear of any vertex backing circle.
	probeX, probeY := 100, 200

	open := New().Render(nil, pts, false)
	if px := open.RGBAAt(probeX, probeY); px.B > 0xC0 && px.G > 0x80 {
		t.Fatalf("open polygon has a closing edge at (%d,%d): %v", probeX, probeY, px)
	}

	closed := New().Render(nil, pts, true)
	if px := closed.RGBAAt(probeX, probeY); px.B < 0xC0 || px.G < 0x80 {
		t.Fatalf("closed polygon missing closing edge at (%d,%d): %v", probeX, probeY, px)
	}
}
