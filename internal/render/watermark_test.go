package render

import (
	"image"
	"testing"
)

func TestDrawWatermarkPaintsPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	drawWatermark(img, "Example")
	if !hasOpaquePixel(img) {
		t.Errorf("expected watermark text to paint at least one pixel")
	}
}

func TestDrawAttributionPaintsBackgroundBox(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	drawAttribution(img, "(c) example")
	if !hasOpaquePixel(img) {
		t.Errorf("expected attribution box to paint at least one pixel")
	}
}

func hasOpaquePixel(img *image.NRGBA) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				return true
			}
		}
	}
	return false
}
