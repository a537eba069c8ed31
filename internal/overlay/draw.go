package overlay

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// scaleImage resizes src to w x h. Marker icons are small and drawn once
// per request, so a simple bilinear scale is plenty.
func scaleImage(src image.Image, w, h int) image.Image {
	if src.Bounds().Dx() == w && src.Bounds().Dy() == h {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// drawInto composites src over dst at target's offset, clipped to dst's
// bounds.
func drawInto(dst *image.NRGBA, target image.Rectangle, src image.Image) {
	draw.Draw(dst, target, src, image.Point{}, draw.Over)
}
