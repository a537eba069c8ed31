// Package resolver implements the Resource Resolver: the single fetch
// operation a renderer calls back into for every external resource it
// needs (archive tiles, sprites, font glyph ranges, remote HTTP URLs).
package resolver

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MeKo-Tech/tileserver/internal/archive"
	"github.com/MeKo-Tech/tileserver/internal/errs"
	"github.com/MeKo-Tech/tileserver/internal/renderpool"
)

// Result is what Fetch returns to a renderer.
type Result struct {
	Data        []byte
	Modified    time.Time
	HasModified bool
	Expires     time.Time
	HasExpires  bool
	ETag        string
}

// SourceLookup finds the archive handle registered under name, along with
// its container kind, so Fetch can apply the right decoration rules.
type SourceLookup func(name string) (archive.Handle, bool)

// FontAssembler supplies a combined glyph PBF for one fontstack/range,
// restricted to allowedFonts.
type FontAssembler func(ctx context.Context, fontstack, rng string, allowedFonts []string) ([]byte, error)

// DataDecorator is an optional pass-through filter applied to vector-tile
// bytes (and source tilejson) before they reach the renderer.
type DataDecorator func(sourceID, kind string, data []byte, z, x, y int) []byte

type emptyKey struct {
	format string
	color  string
}

// Resolver dispatches Fetch by URL scheme.
type Resolver struct {
	SpritesDir   string
	Sources      SourceLookup
	Fonts        FontAssembler
	AllowedFonts []string
	Decorator    DataDecorator
	HTTPClient   *http.Client
	Logger       *slog.Logger

	empty *lru.Cache[emptyKey, []byte]
}

// New constructs a Resolver with a bounded cache for synthesized empty
// responses, keyed by (format, color) so the same blank tile is reused
// across requests instead of re-encoded every time.
func New(spritesDir string, sources SourceLookup, fonts FontAssembler, decorator DataDecorator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[emptyKey, []byte](256)
	return &Resolver{
		SpritesDir: spritesDir,
		Sources:    sources,
		Fonts:      fonts,
		Decorator:  decorator,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
		empty:      cache,
	}
}

// Fetch satisfies one resource callback. It is called concurrently from
// renderer worker contexts across unrelated sources and must be safe under
// parallel calls.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindBadRequest, err, "resolver: parse resource url")
	}

	// url.Parse lowercases the scheme, so archiveA:// arrives as "archivea".
	switch u.Scheme {
	case "sprites":
		return r.fetchSprite(u)
	case "fonts":
		return r.fetchFont(ctx, u)
	case "archivea":
		return r.fetchArchive(ctx, u, archive.KindArchiveA)
	case "archiveb":
		return r.fetchArchive(ctx, u, archive.KindArchiveB)
	case "http", "https":
		return r.fetchHTTP(ctx, rawURL)
	default:
		return Result{}, errs.New(errs.KindBadRequest, fmt.Sprintf("resolver: unsupported scheme %q", u.Scheme))
	}
}

// Fetcher adapts this resolver to the renderpool.ResourceFetcher shape a
// renderer instance expects, formatting the conditional-response times as
// HTTP date strings. ctx bounds every fetch the returned callback performs.
func (r *Resolver) Fetcher(ctx context.Context) renderpool.ResourceFetcher {
	return func(rawURL string) (renderpool.FetchResult, error) {
		res, err := r.Fetch(ctx, rawURL)
		if err != nil {
			return renderpool.FetchResult{}, err
		}
		out := renderpool.FetchResult{Data: res.Data, ETag: res.ETag}
		if res.HasModified {
			out.Modified = res.Modified.UTC().Format(http.TimeFormat)
		}
		if res.HasExpires {
			out.Expires = res.Expires.UTC().Format(http.TimeFormat)
		}
		return out, nil
	}
}

func (r *Resolver) fetchSprite(u *url.URL) (Result, error) {
	full := path.Join(r.SpritesDir, u.Host, u.Path)
	data, err := readFile(full)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindUpstreamError, err, "resolver: read sprite file")
	}
	return Result{Data: data}, nil
}

func (r *Resolver) fetchFont(ctx context.Context, u *url.URL) (Result, error) {
	if r.Fonts == nil {
		return Result{}, errs.New(errs.KindFatalConfig, "resolver: no font assembler configured")
	}
	// "fonts://<fontstack>/<range>.pbf" parses the fontstack into the URL
	// host, so recombine before splitting.
	full := strings.Trim(u.Host+u.Path, "/")
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 {
		return Result{}, errs.New(errs.KindBadRequest, "resolver: malformed font path")
	}
	fontstack := parts[0]
	rng := strings.TrimSuffix(parts[1], ".pbf")

	data, err := r.Fonts(ctx, fontstack, rng, r.AllowedFonts)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindUpstreamError, err, "resolver: assemble font range")
	}
	return Result{Data: data}, nil
}

func (r *Resolver) fetchArchive(ctx context.Context, u *url.URL, kind archive.Kind) (Result, error) {
	sourceName := u.Host
	z, x, y, format, err := parseTilePath(u.Path)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindBadRequest, err, "resolver: parse archive tile path")
	}

	handle, ok := r.Sources(sourceName)
	if !ok {
		return Result{}, errs.New(errs.KindNotFound, fmt.Sprintf("resolver: unknown source %q", sourceName))
	}

	data, headers, present, err := handle.Source.GetTile(ctx, z, x, y)
	if err != nil {
		r.Logger.Warn("archive tile read failed", "source", sourceName, "kind", kind.String(), "z", z, "x", x, "y", y, "err", err)
		return r.synthesizeEmpty(format, handle.FillColor)
	}
	if !present {
		return r.synthesizeEmpty(format, handle.FillColor)
	}

	if format == "pbf" && r.Decorator != nil {
		data = r.Decorator(sourceName, "data", data, z, x, y)
	}

	res := Result{Data: data}
	if headers.HasModified {
		res.Modified = headers.Modified
		res.HasModified = true
	}
	return res, nil
}

func (r *Resolver) fetchHTTP(ctx context.Context, rawURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindBadRequest, err, "resolver: build http request")
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return r.synthesizeEmpty(extensionOf(rawURL), "")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return r.synthesizeEmpty(extensionOf(rawURL), "")
	}

	body := resp.Body
	var reader io.Reader = body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gr, err := gzip.NewReader(body)
		if err != nil {
			return Result{}, errs.Wrap(errs.KindUpstreamError, err, "resolver: ungzip http response")
		}
		defer gr.Close()
		reader = gr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindUpstreamError, err, "resolver: read http response body")
	}

	res := Result{Data: data, ETag: resp.Header.Get("ETag")}
	if t, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		res.Modified, res.HasModified = t, true
	}
	if t, err := http.ParseTime(resp.Header.Get("Expires")); err == nil {
		res.Expires, res.HasExpires = t, true
	}
	return res, nil
}

// synthesizeEmpty builds (or returns a cached) empty response for format.
// pbf and unrecognized formats get a zero-byte buffer; raster formats get a
// 1x1 image of fillColor (default fully transparent white).
func (r *Resolver) synthesizeEmpty(format, fillColor string) (Result, error) {
	if format == "pbf" || !isRasterFormat(format) {
		return Result{Data: []byte{}}, nil
	}

	key := emptyKey{format: format, color: fillColor}
	if cached, ok := r.empty.Get(key); ok {
		return Result{Data: cached}, nil
	}

	c := parseFillColor(fillColor)
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpg", "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return Result{}, errs.Wrap(errs.KindRenderError, err, "resolver: encode empty response")
	}

	r.empty.Add(key, buf.Bytes())
	return Result{Data: buf.Bytes()}, nil
}

func isRasterFormat(format string) bool {
	switch format {
	case "png", "jpg", "jpeg", "webp":
		return true
	default:
		return false
	}
}

// parseFillColor parses a "#rrggbb" or "#rrggbbaa" hex color, defaulting to
// fully transparent white when s is empty or malformed.
func parseFillColor(s string) color.NRGBA {
	def := color.NRGBA{R: 255, G: 255, B: 255, A: 0}
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 && len(s) != 8 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	if len(s) == 6 {
		return color.NRGBA{
			R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255,
		}
	}
	return color.NRGBA{
		R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v),
	}
}

func readFile(p string) ([]byte, error) {
	return os.ReadFile(p)
}

// parseTilePath parses "/{z}/{x}/{y}.{ext}" into its components.
func parseTilePath(p string) (z, x, y int, format string, err error) {
	p = strings.TrimPrefix(p, "/")
	dot := strings.LastIndex(p, ".")
	if dot < 0 {
		return 0, 0, 0, "", fmt.Errorf("missing extension in %q", p)
	}
	format = p[dot+1:]
	coords := strings.Split(p[:dot], "/")
	if len(coords) != 3 {
		return 0, 0, 0, "", fmt.Errorf("expected z/x/y, got %q", p)
	}
	z, errZ := strconv.Atoi(coords[0])
	x, errX := strconv.Atoi(coords[1])
	y, errY := strconv.Atoi(coords[2])
	if errZ != nil || errX != nil || errY != nil {
		return 0, 0, 0, "", fmt.Errorf("non-integer tile coordinate in %q", p)
	}
	return z, x, y, format, nil
}

func extensionOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	return strings.TrimPrefix(ext, ".")
}
