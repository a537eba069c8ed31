package render

import (
	"image"
	"image/color"
	"testing"
)

func TestAlphaOverOpaqueSrcReplacesDst(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	dst.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 0, B: 0, A: 255})

	alphaOver(dst, src)
	if got := dst.NRGBAAt(0, 0); got.R != 200 || got.A != 255 {
		t.Errorf("got %+v, want opaque src to fully replace dst", got)
	}
}

func TestAlphaOverTransparentSrcLeavesDstUnchanged(t *testing.T) {
	dst := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	want := color.NRGBA{R: 50, G: 60, B: 70, A: 255}
	dst.SetNRGBA(0, 0, want)
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))

	alphaOver(dst, src)
	if got := dst.NRGBAAt(0, 0); got != want {
		t.Errorf("got %+v, want unchanged %+v", got, want)
	}
}
