package overlay

import (
	"math"

	"github.com/MeKo-Tech/tileserver/internal/geo"
)

// Canvas composes the affine transform from world pixel space (at the
// request zoom) to the scale*W x scale*H output buffer: scale, then
// optionally rotate around the window center, then translate so the
// request center lands at the window center.
type Canvas struct {
	Zoom    float64
	Scale   int
	Width   int
	Height  int
	Bearing float64

	centerPx geo.PixelPoint
	cos, sin float64
}

// NewCanvas computes center_px from (lon,lat) at zoom, clamping it inward
// when the window would extend past the world's vertical bounds. The clamp
// boundary is geo.WorldSize(zoom), the same quantity the render pipeline's
// yoffset clamp uses, so the overlay stays aligned with the base render.
func NewCanvas(center geo.Point, zoom, bearing float64, scale, w, h int) Canvas {
	c := Canvas{Zoom: zoom, Scale: scale, Width: w, Height: h, Bearing: bearing}
	c.centerPx = geo.Px(center, zoom)

	worldH := geo.WorldSize(zoom)
	halfWindowH := float64(h) / 2
	if c.centerPx.Y-halfWindowH < 0 {
		c.centerPx.Y = halfWindowH
	} else if c.centerPx.Y+halfWindowH > worldH {
		c.centerPx.Y = worldH - halfWindowH
	}

	rad := -bearing * math.Pi / 180
	c.cos, c.sin = math.Cos(rad), math.Sin(rad)
	return c
}

// Project maps a WGS84 point into output-buffer pixel coordinates using the
// "precise pixel" convention (projected at the fixed reference zoom 20 and
// rescaled), then applies this canvas's scale/rotate/translate transform.
func (c Canvas) Project(p geo.Point) (x, y float64) {
	px := geo.PrecisePx(p, c.Zoom)
	return c.apply(px.X, px.Y)
}

func (c Canvas) apply(x, y float64) (float64, float64) {
	s := float64(c.Scale)

	if c.Bearing != 0 {
		// translate to window center, rotate, translate by -center_px
		dx, dy := x-c.centerPx.X, y-c.centerPx.Y
		rx := dx*c.cos - dy*c.sin
		ry := dx*c.sin + dy*c.cos
		return s * (rx + float64(c.Width)/2), s * (ry + float64(c.Height)/2)
	}

	return s * (x - c.centerPx.X + float64(c.Width)/2), s * (y - c.centerPx.Y + float64(c.Height)/2)
}
