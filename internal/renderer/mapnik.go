package renderer

// #cgo LDFLAGS: -lmapnik
// #cgo CXXFLAGS: -std=c++14
import "C"

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	mapnik "github.com/omniscale/go-mapnik/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/MeKo-Tech/tileserver/internal/renderpool"
)

const webMercatorSRS = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs +over"

const earthRadiusMeters = 6378137.0

// MapnikRenderer drives one go-mapnik map object through the renderpool.Renderer
// contract. One instance is owned by exactly one renderpool.Pool slot at a
// time, so the underlying C++ map object never needs its own locking.
type MapnikRenderer struct {
	mapObject *mapnik.Map

	fetch renderpool.ResourceFetcher
}

// NewFactory returns a renderpool.Factory constructor for a given pixel
// ratio: styleFile is a Mapnik XML stylesheet (as registered per style id by
// the binding's configuration), backgroundColor is an optional hex fill
// (e.g. "#f8f4e8") applied before every render. The returned outer function
// matches style.Registry.Register's renderFactory/staticFactory shape,
// which re-derives a fresh Factory per pixel ratio even though this
// renderer resizes per-request rather than fixing a tile size at
// construction.
func NewFactory(styleFile, backgroundColor string) func(scale int) renderpool.Factory {
	return func(scale int) renderpool.Factory {
		return func() (renderpool.Renderer, error) {
			return newMapnikRenderer(styleFile, backgroundColor)
		}
	}
}

func newMapnikRenderer(styleFile, backgroundColor string) (*MapnikRenderer, error) {
	if err := mapnik.RegisterDatasources("/usr/lib/mapnik/3.1/input"); err != nil {
		return nil, fmt.Errorf("renderer: register datasources: %w", err)
	}

	m := mapnik.NewSized(256, 256)
	if styleFile != "" {
		if err := m.Load(styleFile); err != nil {
			return nil, fmt.Errorf("renderer: load style %q: %w", styleFile, err)
		}
	}

	r := &MapnikRenderer{mapObject: m}
	if backgroundColor != "" {
		if err := r.setBackgroundColor(backgroundColor); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

// SetResourceFetcher registers the callback satisfying renderpool.Renderer's
// resource-resolution contract. go-mapnik's cgo binding has no hook for a
// live per-render Go callback into the C++ datasource layer the way a
// vector-tile GL renderer would: a Mapnik map object only reads from
// datasource plugins (shapefile, postgis, sqlite) pointed at real files or
// connections when its style is loaded, never through an in-process
// callback per tile. Storing fetch keeps this renderer interchangeable
// with a vector-tile renderer in the pool, but nothing in Render below
// calls it: a Mapnik style reads only the datasource plugins its XML
// names.
func (r *MapnikRenderer) SetResourceFetcher(fetch renderpool.ResourceFetcher) {
	r.fetch = fetch
}

// Render implements renderpool.Renderer. p.Zoom is the spec's MapLibre-style
// zoom (one less than the request's own zoom, floored at 0); Mapnik has no
// native notion of that convention, so Render recovers the world pixel size
// it implies (512 * 2^p.Zoom) to derive meters-per-pixel, then resizes the
// map object and zooms to the resulting bbox. p.Bearing/p.Pitch are accepted
// for interface conformance but unused: classic Mapnik rendering has no map
// rotation or tilt.
func (r *MapnikRenderer) Render(ctx context.Context, p renderpool.RenderParams) (*image.NRGBA, error) {
	r.mapObject.Resize(uint32(p.Width), uint32(p.Height))
	srs := p.SRS
	if srs == "" {
		srs = webMercatorSRS
	}
	r.mapObject.SetSRS(srs)

	cx, cy := lonLatToWebMercator(p.CenterX, p.CenterY)
	worldPx := 512 * math.Exp2(p.Zoom)
	metersPerPixel := (2 * math.Pi * earthRadiusMeters) / worldPx

	halfW := metersPerPixel * float64(p.Width) / 2
	halfH := metersPerPixel * float64(p.Height) / 2
	r.mapObject.ZoomTo(cx-halfW, cy-halfH, cx+halfW, cy+halfH)

	img, err := r.mapObject.RenderImage(mapnik.RenderOpts{Format: "png32"})
	if err != nil {
		return nil, fmt.Errorf("renderer: render: %w", err)
	}
	return img, nil
}

// Close releases the underlying map object.
func (r *MapnikRenderer) Close() error {
	if r.mapObject != nil {
		r.mapObject.Free()
		r.mapObject = nil
	}
	return nil
}

func (r *MapnikRenderer) setBackgroundColor(hexColor string) error {
	c, err := parseHexColor(hexColor)
	if err != nil {
		return fmt.Errorf("renderer: invalid background color: %w", err)
	}
	r.mapObject.SetBackgroundColor(c)
	return nil
}

// parseHexColor converts a "#rrggbb" or "#rrggbbaa" string to color.NRGBA.
func parseHexColor(s string) (color.NRGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255
	switch len(s) {
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.NRGBA{}, err
		}
	case 8:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return color.NRGBA{}, err
		}
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length: %d", len(s))
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// lonLatToWebMercator converts WGS84 degrees to EPSG:3857 meters, the
// inverse of httpapi's mercatorMetersToLonLat.
func lonLatToWebMercator(lon, lat float64) (x, y float64) {
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	return p[0], p[1]
}
