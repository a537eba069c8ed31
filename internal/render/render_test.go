package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/MeKo-Tech/tileserver/internal/geo"
	"github.com/MeKo-Tech/tileserver/internal/overlay"
	"github.com/MeKo-Tech/tileserver/internal/renderpool"
	"github.com/MeKo-Tech/tileserver/internal/style"
)

type stubRenderer struct {
	w, h int
}

func (s *stubRenderer) SetResourceFetcher(renderpool.ResourceFetcher) {}

func (s *stubRenderer) Render(ctx context.Context, p renderpool.RenderParams) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 100
		}
	}
	return img, nil
}

func (s *stubRenderer) Close() error { return nil }

func newTestBinding(t *testing.T) *style.Binding {
	t.Helper()
	factory := func(int) renderpool.Factory {
		return func() (renderpool.Renderer, error) { return &stubRenderer{}, nil }
	}

	reg := style.NewRegistry()
	loader := &style.Loader{Resolve: func(string) (style.ArchiveDescriptor, error) {
		return style.ArchiveDescriptor{}, nil
	}}
	b, err := reg.Register(context.Background(), "test", map[string]any{}, loader, 1, factory, factory)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	b.LastModified = time.Unix(1700000000, 0).UTC()
	b.StaticAttributionText = "(c) test"
	return b
}

func TestRespondTileReturnsEncodedPNG(t *testing.T) {
	b := newTestBinding(t)
	t.Cleanup(b.Close)

	req := Request{
		Mode: "tile", Zoom: 5, Lon: 10, Lat: 20,
		Width: 256, Height: 256, Scale: 1, Format: "png",
	}
	res, err := Respond(context.Background(), b, req, nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if res.ContentType != "image/png" {
		t.Errorf("content-type = %q", res.ContentType)
	}
	if len(res.Data) == 0 {
		t.Errorf("expected non-empty response body")
	}
	if !res.LastModified.Equal(b.LastModified) {
		t.Errorf("LastModified = %v, want %v", res.LastModified, b.LastModified)
	}
}

func TestRespondStaticAddsAttributionForNonEmptyText(t *testing.T) {
	b := newTestBinding(t)
	t.Cleanup(b.Close)

	req := Request{
		Mode: "static", Zoom: 5, Lon: 0, Lat: 0,
		Width: 256, Height: 256, Scale: 1, Format: "png",
	}
	res, err := Respond(context.Background(), b, req, nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(res.Data) == 0 {
		t.Errorf("expected encoded output")
	}
	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// (249,249) lies in the attribution box's padding; the stub base is gray 100.
	c := color.NRGBAModel.Convert(img.At(249, 249)).(color.NRGBA)
	if c.R <= 150 {
		t.Errorf("pixel (249,249) R = %d, want the light attribution box (> 150)", c.R)
	}
}

func TestRespondZoom0DownscalesTo256(t *testing.T) {
	b := newTestBinding(t)
	t.Cleanup(b.Close)

	req := Request{
		Mode: "tile", Zoom: 0, Lon: 0, Lat: 0,
		Width: 256, Height: 256, Scale: 1, Format: "png",
	}
	res, err := Respond(context.Background(), b, req, nil)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 256 || cfg.Height != 256 {
		t.Errorf("size = %dx%d, want 256x256", cfg.Width, cfg.Height)
	}
}

func TestRespondRejectsInvalidRequestBeforeAcquiring(t *testing.T) {
	b := newTestBinding(t)
	t.Cleanup(b.Close)

	req := Request{Mode: "tile", Lon: 999, Width: 256, Height: 256, Scale: 1, Format: "png"}
	if _, err := Respond(context.Background(), b, req, nil); err == nil {
		t.Errorf("expected validation error")
	}
}

func TestRespondRejectsScaleOutOfRange(t *testing.T) {
	b := newTestBinding(t)
	t.Cleanup(b.Close)

	req := Request{Mode: "tile", Width: 256, Height: 256, Scale: 3, Format: "png"}
	if _, err := Respond(context.Background(), b, req, nil); err == nil {
		t.Errorf("expected error: scale 3 exceeds this binding's single registered pool")
	}
}

func TestRespondWithOverlayPathRuns(t *testing.T) {
	b := newTestBinding(t)
	t.Cleanup(b.Close)

	req := Request{
		Mode: "static", Zoom: 5, Width: 128, Height: 128, Scale: 1, Format: "png",
		Paths: []overlay.Path{{
			Points: []geo.Point{{Lon: -1, Lat: 0}, {Lon: 1, Lat: 0}},
			Style:  overlay.Style{Stroke: "#ff0000", Width: 2},
		}},
	}
	res, err := Respond(context.Background(), b, req, nil)
	if err != nil {
		t.Fatalf("Respond with overlay: %v", err)
	}
	if len(res.Data) == 0 {
		t.Errorf("expected encoded output")
	}
}
