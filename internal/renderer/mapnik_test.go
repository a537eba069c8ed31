package renderer

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/tileserver/internal/renderpool"
)

func TestMapnikRendererRendersRequestedSize(t *testing.T) {
	requireIntegration(t)

	factory := NewFactory("", "#f8f4e8")(1)
	r, err := factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	defer r.Close()

	img, err := r.Render(context.Background(), renderpool.RenderParams{
		Zoom:    12,
		CenterX: 9.73,
		CenterY: 52.37,
		Width:   256,
		Height:  256,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 256 || bounds.Dy() != 256 {
		t.Errorf("rendered %dx%d, want 256x256", bounds.Dx(), bounds.Dy())
	}
}

func TestMapnikRendererRejectsBadBackgroundColor(t *testing.T) {
	requireIntegration(t)

	_, err := NewFactory("", "not-a-color")(1)()
	if err == nil {
		t.Fatal("expected an error for a malformed background color")
	}
}
