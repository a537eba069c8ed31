package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Rasterize draws paths into an RGBA buffer w x h (already scale-multiplied
// by the caller). Each path's points must already be in output pixel space
// (i.e. passed through Canvas.Project).
func Rasterize(w, h int, paths []projectedPath) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	for _, p := range paths {
		if len(p.points) < 2 {
			continue
		}

		if p.style.Fill != "" && p.closed {
			fillPolygon(dst, p.points, parseCSSColor(p.style.Fill))
		}

		lineWidth := p.style.Width
		if lineWidth <= 0 {
			lineWidth = 1
		}

		if p.style.Border != "" {
			borderWidth := p.style.BorderWidth
			if borderWidth <= 0 {
				borderWidth = 0.1 * lineWidth
			}
			strokePolyline(dst, p.points, lineWidth+2*borderWidth, parseCSSColor(p.style.Border))
		}

		strokeColor := p.style.Stroke
		if strokeColor == "" {
			strokeColor = DefaultStroke
		}
		strokePolyline(dst, p.points, lineWidth, parseCSSColor(strokeColor))
	}

	return dst
}

// projectedPath is a Path whose points have already been projected into
// output pixel space.
type projectedPath struct {
	points []point2D
	closed bool
	style  Style
}

type point2D struct{ X, Y float64 }

func fillPolygon(dst *image.NRGBA, pts []point2D, c color.Color) {
	b := dst.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		r.LineTo(float32(p.X), float32(p.Y))
	}
	r.ClosePath()
	r.Draw(dst, b, image.NewUniform(c), b.Min)
}

// strokePolyline approximates a stroked line by filling a quad per segment,
// offset by half the line width on each side. Joins between segments are
// left as simple overlapping quads (a butt/miter-free approximation) rather
// than computing true miter/bevel/round geometry.
func strokePolyline(dst *image.NRGBA, pts []point2D, width float64, c color.Color) {
	if width <= 0 {
		return
	}
	half := width / 2
	b := dst.Bounds()

	for i := 0; i+1 < len(pts); i++ {
		a, bpt := pts[i], pts[i+1]
		dx, dy := bpt.X-a.X, bpt.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		nx, ny := -dy/length*half, dx/length*half

		r := vector.NewRasterizer(b.Dx(), b.Dy())
		r.MoveTo(float32(a.X+nx), float32(a.Y+ny))
		r.LineTo(float32(bpt.X+nx), float32(bpt.Y+ny))
		r.LineTo(float32(bpt.X-nx), float32(bpt.Y-ny))
		r.LineTo(float32(a.X-nx), float32(a.Y-ny))
		r.ClosePath()
		r.Draw(dst, b, image.NewUniform(c), b.Min)
	}
}

// alphaOver composites src over dst in place using standard source-over
// alpha blending.
func alphaOver(dst *image.NRGBA, src image.Image) {
	draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Over)
}
