package overlay

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/tileserver/internal/geo"
)

func TestCanvasProjectCentersOnRequestCenter(t *testing.T) {
	center := geo.Point{Lon: 13.4, Lat: 52.5}
	c := NewCanvas(center, 10, 0, 1, 512, 512)

	x, y := c.Project(center)
	if math.Abs(x-256) > 1e-6 || math.Abs(y-256) > 1e-6 {
		t.Errorf("center projects to (%v,%v), want (256,256)", x, y)
	}
}

func TestCanvasAppliesScale(t *testing.T) {
	center := geo.Point{Lon: 0, Lat: 0}
	c := NewCanvas(center, 5, 0, 2, 100, 100)
	x, y := c.Project(center)
	if math.Abs(x-100) > 1e-6 || math.Abs(y-100) > 1e-6 {
		t.Errorf("scaled center = (%v,%v), want (100,100)", x, y)
	}
}

func TestCanvasRotatesAroundWindowCenter(t *testing.T) {
	center := geo.Point{Lon: 0, Lat: 0}
	c := NewCanvas(center, 10, 0, 1, 200, 200)
	cRotated := NewCanvas(center, 10, 90, 1, 200, 200)

	north := geo.Point{Lon: 0, Lat: 1}
	x0, y0 := c.Project(north)
	x90, y90 := cRotated.Project(north)

	if math.Abs(x0-x90) < 1e-6 && math.Abs(y0-y90) < 1e-6 {
		t.Errorf("expected bearing to change the projected position, got same point twice: (%v,%v)", x0, y0)
	}
	// rotating 90 degrees should swap which axis the offset from center
	// lands on: unrotated it's purely a Y offset, rotated it's purely X.
	if math.Abs(x90-100) < 1e-6 {
		t.Errorf("expected rotated point to have a non-zero X offset from center, got x=%v", x90)
	}
}

func TestCanvasClampsVerticalWindowOverflow(t *testing.T) {
	// at zoom 1 the world is only 512px tall; a 4096px-tall window can't
	// fit without clamping center_px inward.
	center := geo.Point{Lon: 0, Lat: 80}
	c := NewCanvas(center, 1, 0, 1, 4096, 4096)
	wantY := float64(4096) / 2
	if math.Abs(c.centerPx.Y-wantY) > 1e-6 {
		t.Errorf("centerPx.Y = %v, want %v (clamped to half the window height)", c.centerPx.Y, wantY)
	}
}

func TestCanvasClampMatchesWorldSize(t *testing.T) {
	// a southern center near the bottom edge: the window's lower half runs
	// past the world, so center_px.Y clamps to worldH - h/2. The boundary
	// must be geo.WorldSize (256*2^z), the same one the render pipeline
	// clamps against.
	center := geo.Point{Lon: 0, Lat: -80}
	zoom := 2.0
	c := NewCanvas(center, zoom, 0, 1, 900, 900)

	wantY := geo.WorldSize(zoom) - 900.0/2
	if math.Abs(c.centerPx.Y-wantY) > 1e-6 {
		t.Errorf("centerPx.Y = %v, want %v (clamped to worldH - h/2)", c.centerPx.Y, wantY)
	}
}
