package render

import (
	"image"
	"testing"
)

func TestComputeParamsZoom0DoublesRenderSize(t *testing.T) {
	p := computeParams(0, 0, 0, 256, 256, 1, 0)
	if p.mlglZ != 0 {
		t.Errorf("mlglZ = %v, want 0", p.mlglZ)
	}
	if p.renderWidthPx != 512 || p.renderHeightPx != 512 {
		t.Errorf("render size = %dx%d, want 512x512", p.renderWidthPx, p.renderHeightPx)
	}
	if p.cropW != 256 || p.cropH != 256 {
		t.Errorf("crop size = %dx%d, want 256x256", p.cropW, p.cropH)
	}
	if !p.upscaleFromZoom0 {
		t.Errorf("expected upscaleFromZoom0 to be set")
	}
}

func TestComputeParamsPlainTileNoPadding(t *testing.T) {
	p := computeParams(5, 10, 20, 256, 256, 2, 0)
	if p.mlglZ != 4 {
		t.Errorf("mlglZ = %v, want 4", p.mlglZ)
	}
	if p.renderWidthPx != 512 || p.renderHeightPx != 512 {
		t.Errorf("render size = %dx%d, want 512x512 (256*scale2)", p.renderWidthPx, p.renderHeightPx)
	}
	if p.cropOffsetX != 0 || p.cropOffsetY != 0 {
		t.Errorf("expected no crop offset for an unpadded tile request")
	}
}

func TestComputeParamsPadsForTileMargin(t *testing.T) {
	p := computeParams(10, 0, 0, 256, 256, 1, 16)
	// world at z=10 is huge, so center (0,0) at equator shouldn't need the
	// vertical clamp: yoffset should be 0 and cropOffsetY == tileMargin*scale.
	if p.renderWidthPx != 256+2*16 || p.renderHeightPx != 256+2*16 {
		t.Errorf("padded render size = %dx%d, want %dx%d", p.renderWidthPx, p.renderHeightPx, 256+2*16, 256+2*16)
	}
	if p.cropOffsetX != 16 || p.cropOffsetY != 16 {
		t.Errorf("crop offset = (%d,%d), want (16,16)", p.cropOffsetX, p.cropOffsetY)
	}
}

func TestExtractCropsToRequestedWindow(t *testing.T) {
	p := parameterization{cropOffsetX: 10, cropOffsetY: 5, cropW: 20, cropH: 30}
	raw := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	out, err := p.extract(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 30 {
		t.Errorf("cropped size = %dx%d, want 20x30", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestExtractRejectsOutOfBoundsCrop(t *testing.T) {
	p := parameterization{cropOffsetX: 90, cropOffsetY: 90, cropW: 50, cropH: 50}
	raw := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	if _, err := p.extract(raw); err == nil {
		t.Errorf("expected error for out-of-bounds crop")
	}
}
