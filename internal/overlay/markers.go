package overlay

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/vector"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/tileserver/internal/errs"
)

// markerSVGWidth/Height are the canonical default-marker dimensions before
// any scale is applied.
const (
	markerSVGWidth  = 30
	markerSVGHeight = 45
)

// IconOptions controls which marker icon sources a request is allowed to
// use, mirroring the external "options.paths" / allow-flags the resolver
// was configured with at startup.
type IconOptions struct {
	AllowInlineMarkerImages bool
	AllowRemoteMarkerIcons  bool
	IconsDir                string
	AvailableIcons          map[string]bool
}

// resolvedIcon is a decoded marker icon ready to draw, plus its natural
// (unscaled) pixel dimensions.
type resolvedIcon struct {
	img  image.Image
	w, h int
}

// ResolveIcons fetches/decodes every marker's icon concurrently and returns
// them in the same order as markers. A marker whose icon cannot be
// resolved fails the whole call, mirroring "async per marker, then join".
func ResolveIcons(ctx context.Context, markers []Marker, opts IconOptions, client *http.Client) ([]resolvedIcon, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	out := make([]resolvedIcon, len(markers))

	g, ctx := errgroup.WithContext(ctx)
	for i, m := range markers {
		i, m := i, m
		g.Go(func() error {
			icon, err := resolveOneIcon(ctx, m, opts, client)
			if err != nil {
				return err
			}
			out[i] = icon
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func resolveOneIcon(ctx context.Context, m Marker, opts IconOptions, client *http.Client) (resolvedIcon, error) {
	switch m.IconKind {
	case IconDefault:
		img := defaultMarkerSVG(m.Color)
		return resolvedIcon{img: img, w: markerSVGWidth, h: markerSVGHeight}, nil

	case IconDataURL:
		if !opts.AllowInlineMarkerImages {
			return resolvedIcon{}, errs.New(errs.KindBadRequest, "overlay: inline marker images are not allowed")
		}
		data, err := decodeDataURL(m.Icon)
		if err != nil {
			return resolvedIcon{}, errs.Wrap(errs.KindBadRequest, err, "overlay: decode marker data url")
		}
		return decodeImageBytes(data)

	case IconRemoteURL:
		if !opts.AllowRemoteMarkerIcons {
			return resolvedIcon{}, errs.New(errs.KindBadRequest, "overlay: remote marker icons are not allowed")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.Icon, nil)
		if err != nil {
			return resolvedIcon{}, errs.Wrap(errs.KindBadRequest, err, "overlay: build marker icon request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return resolvedIcon{}, errs.Wrap(errs.KindUpstreamError, err, "overlay: fetch marker icon")
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resolvedIcon{}, errs.New(errs.KindUpstreamError, fmt.Sprintf("overlay: marker icon fetch status %d", resp.StatusCode))
		}
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return resolvedIcon{}, errs.Wrap(errs.KindUpstreamError, err, "overlay: read marker icon body")
		}
		return decodeImageBytes(buf.Bytes())

	default: // IconLocalPath
		clean := filepath.Clean(m.Icon)
		if strings.HasPrefix(clean, "..") || !opts.AvailableIcons[clean] {
			return resolvedIcon{}, errs.New(errs.KindBadRequest, fmt.Sprintf("overlay: marker icon %q is not in the available set", m.Icon))
		}
		data, err := os.ReadFile(filepath.Join(opts.IconsDir, clean))
		if err != nil {
			return resolvedIcon{}, errs.Wrap(errs.KindUpstreamError, err, "overlay: read local marker icon")
		}
		return decodeImageBytes(data)
	}
}

func decodeImageBytes(data []byte) (resolvedIcon, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return resolvedIcon{}, errs.Wrap(errs.KindBadRequest, err, "overlay: decode marker icon image")
	}
	b := img.Bounds()
	return resolvedIcon{img: img, w: b.Dx(), h: b.Dy()}, nil
}

func decodeDataURL(s string) ([]byte, error) {
	comma := strings.Index(s, ",")
	if comma < 0 {
		return nil, fmt.Errorf("malformed data url")
	}
	header, payload := s[:comma], s[comma+1:]
	if strings.Contains(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	return []byte(payload), nil
}

// defaultMarkerSVG rasterizes the canonical 30x45 teardrop pin marker,
// filled with color c (or the default blue when c is empty).
func defaultMarkerSVG(c string) image.Image {
	fill := color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	if c != "" {
		fill = parseCSSColor(c)
	}

	const w, h = markerSVGWidth, markerSVGHeight
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))

	r := vector.NewRasterizer(w, h)
	cx, cy, radius := float32(w)/2, float32(h)/3, float32(w)/2-1

	const segments = 32
	r.MoveTo(cx+radius, cy)
	for i := 1; i <= segments; i++ {
		theta := 2 * math.Pi * float64(i) / segments
		r.LineTo(cx+radius*float32(math.Cos(theta)), cy+radius*float32(math.Sin(theta)))
	}
	r.LineTo(cx, float32(h))
	r.LineTo(cx-radius*0.4, cy+radius*0.7)
	r.ClosePath()

	r.Draw(dst, dst.Bounds(), image.NewUniform(fill), dst.Bounds().Min)
	return dst
}

// MarkerDrawPosition returns the top-left pixel at which to draw a marker's
// (already scaled) icon image of size w x h, anchored center-bottom and
// offset by (offsetX, offsetY) scaled by s.
func MarkerDrawPosition(centerX, centerY float64, w, h int, offsetX, offsetY float64, s int) (x, y int) {
	fx := centerX - float64(w)/2 + offsetX*float64(s)
	fy := centerY - float64(h) + offsetY*float64(s)
	return int(math.Round(fx)), int(math.Round(fy))
}

// EncodePNG is a convenience used by tests and by any caller needing the
// default marker's bytes directly (e.g. to build a data URL).
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
