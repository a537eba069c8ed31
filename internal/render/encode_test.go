package render

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestEncodePNG(t *testing.T) {
	img := solidImage(4, 4, color.NRGBA{R: 255, A: 255})
	data, ct, err := encode(img, "png", FormatQuality{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	if len(data) == 0 {
		t.Errorf("expected non-empty png data")
	}
}

func TestEncodeJPEGAcceptsJpgAlias(t *testing.T) {
	img := solidImage(4, 4, color.NRGBA{G: 255, A: 255})
	data, ct, err := encode(img, "jpg", FormatQuality{JPEG: 50})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ct != "image/jpeg" {
		t.Errorf("content-type = %q", ct)
	}
	if len(data) == 0 {
		t.Errorf("expected non-empty jpeg data")
	}
}

func TestEncodeWebP(t *testing.T) {
	img := solidImage(4, 4, color.NRGBA{B: 255, A: 255})
	data, ct, err := encode(img, "webp", FormatQuality{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ct != "image/webp" {
		t.Errorf("content-type = %q", ct)
	}
	if len(data) == 0 {
		t.Errorf("expected non-empty webp data")
	}
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	img := solidImage(2, 2, color.NRGBA{A: 255})
	if _, _, err := encode(img, "bmp", FormatQuality{}); err == nil {
		t.Errorf("expected error for unsupported format")
	}
}
