package overlay

import (
	"context"
	"image"
	"net/http"

	"github.com/MeKo-Tech/tileserver/internal/geo"
)

// RenderRequest is everything the Overlay Rasterizer needs to produce one
// RGBA buffer for a request.
type RenderRequest struct {
	Zoom    float64
	Center  geo.Point
	Bearing float64
	Scale   int
	Width   int
	Height  int

	Paths   []Path
	Markers []Marker

	IconOptions IconOptions
	HTTPClient  *http.Client
}

// Render produces a (scale*W x scale*H) RGBA buffer containing the
// request's paths and markers, or nil if both lists are empty.
func Render(ctx context.Context, req RenderRequest) (*image.NRGBA, error) {
	if len(req.Paths) == 0 && len(req.Markers) == 0 {
		return nil, nil
	}

	canvas := NewCanvas(req.Center, req.Zoom, req.Bearing, req.Scale, req.Width, req.Height)
	w, h := req.Scale*req.Width, req.Scale*req.Height

	projected := make([]projectedPath, 0, len(req.Paths))
	for _, p := range req.Paths {
		if !p.Renderable() {
			continue
		}
		pts := make([]point2D, len(p.Points))
		for i, ll := range p.Points {
			x, y := canvas.Project(ll)
			pts[i] = point2D{X: x, Y: y}
		}
		projected = append(projected, projectedPath{points: pts, closed: p.Closed(), style: p.Style})
	}

	dst := Rasterize(w, h, projected)

	if len(req.Markers) > 0 {
		icons, err := ResolveIcons(ctx, req.Markers, req.IconOptions, req.HTTPClient)
		if err != nil {
			return nil, err
		}
		for i, m := range req.Markers {
			drawMarker(dst, canvas, m, icons[i])
		}
	}

	return dst, nil
}

func drawMarker(dst *image.NRGBA, canvas Canvas, m Marker, icon resolvedIcon) {
	cx, cy := canvas.Project(m.Location)

	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	if m.IconKind == IconDefault {
		// the canvas already scaled everything by req.Scale; the default
		// marker asset is drawn at its canonical size scaled down by 1/s
		// so it doesn't end up s times too big on high pixel-ratio outputs.
		scale = scale / float64(canvas.Scale)
	}

	w := int(float64(icon.w) * scale)
	h := int(float64(icon.h) * scale)
	if w <= 0 || h <= 0 {
		return
	}

	x, y := MarkerDrawPosition(cx, cy, w, h, m.OffsetX, m.OffsetY, canvas.Scale)
	scaled := scaleImage(icon.img, w, h)
	target := image.Rect(x, y, x+w, y+h)
	drawInto(dst, target, scaled)
}
