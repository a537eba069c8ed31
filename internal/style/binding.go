// Package style holds the Style Binding data model and the registry/loader
// that populate it: the per-id record a request is dispatched against, and
// the registration-time parsing that builds one from a style document plus
// a caller-supplied archive resolver.
package style

import (
	"time"

	"github.com/MeKo-Tech/tileserver/internal/archive"
	"github.com/MeKo-Tech/tileserver/internal/renderpool"
)

// SourceKind mirrors archive.Kind for the style's own source-name -> kind
// map (kept separate from archive.Handle so non-archive sources, e.g. a
// plain vector/raster URL template with no local reader, can share the
// same map without a nil Source).
type SourceKind = archive.Kind

// Source is a single named entry in a style document's "sources" object
// after the loader has resolved and merged it.
type Source struct {
	Name       string
	Type       string // "vector", "raster", etc, preserved from the original document
	Kind       SourceKind
	Handle     archive.Source // nil for sources that aren't archive-backed
	TileScheme string         // source URL scheme: "archiveA" or "archiveB"
	FillColor  string         // declared placeholder color for missing raster tiles
}

// Binding is the per-id record composed at registration. Its pools are the
// exclusive owners of their renderer instances: once Close has drained
// them, no request may use this Binding again.
type Binding struct {
	ID        string
	TileJSON  map[string]any
	PublicURL string

	Sources map[string]Source

	// Renderers/RenderersStatic are indexed 0..maxScaleFactor-1 for pixel
	// ratio s = index+1, one pool per (pixel-ratio, mode).
	Renderers       []*renderpool.Pool
	RenderersStatic []*renderpool.Pool

	// DataProjection is the forward transform from WGS84 to the style's
	// internal coordinate system, composed from the EPSG:3857 inverse and
	// the data projection's forward transform. Nil for pure Web-Mercator
	// styles.
	DataProjection func(lon, lat float64) (x, y float64)

	// Proj4 is the projection declaration of the first source that carried
	// one, preserved for renderer SRS configuration.
	Proj4 string

	// ResourceFetcher, when set, is registered on every renderer acquired
	// for this binding so its renders resolve archive/sprite/font/HTTP
	// resources through this binding's own sources.
	ResourceFetcher renderpool.ResourceFetcher

	LastModified          time.Time
	Watermark             string
	StaticAttributionText string

	maxScaleFactor int
}

// MaxScaleFactor returns the highest @Nx scale factor this binding serves.
func (b *Binding) MaxScaleFactor() int { return b.maxScaleFactor }

// LookupSource finds the archive handle registered under name, in the shape
// the resolver's source lookup expects. Sources without a local reader
// (plain URL-template sources) report not found.
func (b *Binding) LookupSource(name string) (archive.Handle, bool) {
	src, ok := b.Sources[name]
	if !ok || src.Handle == nil {
		return archive.Handle{}, false
	}
	return archive.Handle{Source: src.Handle, Kind: src.Kind, FillColor: src.FillColor}, true
}

// PoolFor returns the renderer pool for the given pixel ratio and mode
// ("tile" or "static"), or nil if s is out of range.
func (b *Binding) PoolFor(scale int, mode string) *renderpool.Pool {
	if scale < 1 || scale > b.maxScaleFactor {
		return nil
	}
	if mode == "static" {
		return b.RenderersStatic[scale-1]
	}
	return b.Renderers[scale-1]
}

// Close drains every pool this binding owns. Safe to call once; the
// binding must not be used afterwards.
func (b *Binding) Close() {
	for _, p := range b.Renderers {
		if p != nil {
			p.Close()
		}
	}
	for _, p := range b.RenderersStatic {
		if p != nil {
			p.Close()
		}
	}
	for _, src := range b.Sources {
		if src.Handle != nil {
			src.Handle.Close()
		}
	}
}
