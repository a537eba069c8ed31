package render

import (
	"image"
	"image/color"
	"testing"
)

func TestUnpremultiplyZeroAlphaZeroesRGB(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
	unpremultiply(img)
	got := img.NRGBAAt(0, 0)
	if got != (color.NRGBA{}) {
		t.Errorf("got %+v, want zeroed pixel", got)
	}
}

func TestUnpremultiplyIsIdempotentOnStraightAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	want := color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	img.SetNRGBA(0, 0, want)
	unpremultiply(img)
	if got := img.NRGBAAt(0, 0); got != want {
		t.Errorf("alpha=255 pixel changed: got %+v, want %+v", got, want)
	}
}

func TestUnpremultiplyDividesByAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	// premultiplied: channel 128 at alpha 128 means straight value ~255.
	img.SetNRGBA(0, 0, color.NRGBA{R: 128, A: 128})
	unpremultiply(img)
	got := img.NRGBAAt(0, 0)
	if got.R < 250 {
		t.Errorf("R = %d, want close to 255", got.R)
	}
}
