// Package render implements the Render Pipeline: validates a geographic
// request, computes its render parameterization, drives a renderer pool
// acquisition, then un-premultiplies, crops, composites, and encodes the
// result.
package render

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/tileserver/internal/errs"
	"github.com/MeKo-Tech/tileserver/internal/geo"
	"github.com/MeKo-Tech/tileserver/internal/overlay"
	"github.com/MeKo-Tech/tileserver/internal/renderpool"
	"github.com/MeKo-Tech/tileserver/internal/style"
)

// FormatQuality holds per-format encode quality overrides; zero means "use
// the package default" (jpeg 80, webp 90).
type FormatQuality struct {
	JPEG int
	WebP int
}

// Request is everything Respond needs beyond the Style Binding itself.
type Request struct {
	Mode string // "tile" or "static"

	Zoom    float64
	Lon     float64
	Lat     float64
	Bearing float64
	Pitch   float64

	Width  int
	Height int
	Scale  int
	Format string

	// TileMargin is non-zero only for static-mode requests that need edge
	// padding (e.g. to keep markers from being clipped at the window edge).
	TileMargin int
	// MaxSize caps max(Width,Height)*Scale; zero means the package default
	// of 2048.
	MaxSize int

	Paths       []overlay.Path
	Markers     []overlay.Marker
	IconOptions overlay.IconOptions
	HTTPClient  *http.Client

	// AttributionText overrides the binding's StaticAttributionText for
	// this request when non-empty.
	AttributionText string

	Quality FormatQuality
}

// Result is the encoded response plus the headers the HTTP layer sends.
type Result struct {
	Data        []byte
	ContentType string
	LastModified time.Time
}

// Respond executes the full pipeline against binding and returns the
// encoded image. Every returned error is an *errs.Error with a Kind the
// HTTP layer can map to a status code.
func Respond(ctx context.Context, binding *style.Binding, req Request, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := validate(req); err != nil {
		return Result{}, err
	}

	mode := req.Mode
	if req.TileMargin > 0 {
		mode = "static"
	}
	pool := binding.PoolFor(req.Scale, mode)
	if pool == nil {
		return Result{}, errs.New(errs.KindBadRequest, "scale factor out of range for this style")
	}

	var overlayImg *image.NRGBA
	if len(req.Paths) > 0 || len(req.Markers) > 0 {
		img, err := overlay.Render(ctx, overlay.RenderRequest{
			Zoom:        req.Zoom,
			Center:      geo.Point{Lon: req.Lon, Lat: req.Lat},
			Bearing:     req.Bearing,
			Scale:       req.Scale,
			Width:       req.Width,
			Height:      req.Height,
			Paths:       req.Paths,
			Markers:     req.Markers,
			IconOptions: req.IconOptions,
			HTTPClient:  req.HTTPClient,
		})
		if err != nil {
			return Result{}, errs.Wrap(errs.KindRenderError, err, "overlay render")
		}
		overlayImg = img
	}

	p := computeParams(req.Zoom, req.Lon, req.Lat, req.Width, req.Height, req.Scale, req.TileMargin)

	renderer, err := pool.Acquire(ctx)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindRenderError, err, "acquire renderer")
	}
	released := false
	release := func() {
		if !released {
			pool.Release(renderer)
			released = true
		}
	}
	defer release()

	if binding.ResourceFetcher != nil {
		renderer.SetResourceFetcher(binding.ResourceFetcher)
	}

	centerX, centerY := req.Lon, req.Lat
	if binding.DataProjection != nil {
		centerX, centerY = binding.DataProjection(req.Lon, req.Lat)
	}

	raw, err := renderer.Render(ctx, renderpool.RenderParams{
		Zoom:    p.mlglZ,
		CenterX: centerX,
		CenterY: centerY,
		Bearing: req.Bearing,
		Pitch:   req.Pitch,
		Width:   p.renderWidthPx,
		Height:  p.renderHeightPx,
		SRS:     binding.Proj4,
	})
	if err != nil {
		logger.Warn("renderer callback failed", "style", binding.ID, "error", err)
		return Result{}, errs.Wrap(errs.KindRenderError, err, "render")
	}
	release()

	unpremultiply(raw)

	base, err := p.extract(raw)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindRenderError, err, "extract render output")
	}

	dst := image.NewNRGBA(base.Bounds())
	alphaOver(dst, base)
	if overlayImg != nil {
		alphaOver(dst, overlayImg)
	}
	if binding.Watermark != "" {
		drawWatermark(dst, binding.Watermark)
	}
	attribution := req.AttributionText
	if attribution == "" {
		attribution = binding.StaticAttributionText
	}
	if mode == "static" && attribution != "" {
		drawAttribution(dst, attribution)
	}

	data, contentType, err := encode(dst, req.Format, req.Quality)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindRenderError, err, "encode")
	}

	return Result{Data: data, ContentType: contentType, LastModified: binding.LastModified}, nil
}
