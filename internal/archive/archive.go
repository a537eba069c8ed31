// Package archive defines the tile-container contract the resolver dispatches
// to for the archiveA and archiveB URL schemes, along with a concrete
// archiveB implementation backed by a SQL tile database.
//
// Both container formats are otherwise external: a sparse-indexed
// single-file format (archiveA) and a SQL-backed archive (archiveB). Only
// the shape each must satisfy, and an adapter for the SQL-backed one, live
// here; a real archiveA reader is wired in by whatever caller constructs a
// Registry.
package archive

import (
	"context"
	"time"
)

// Kind distinguishes the two container formats a Source can back, since the
// resolver's decoration rules (gzip handling in particular) differ by kind.
type Kind int

const (
	KindArchiveA Kind = iota
	KindArchiveB
)

func (k Kind) String() string {
	if k == KindArchiveA {
		return "archiveA"
	}
	return "archiveB"
}

// Metadata is the archive-level metadata merged into a style source object
// at registration.
type Metadata struct {
	Name        string
	Format      string
	Attribution string
	Description string
	Type        string
	Version     string
	Proj4       string
	Bounds      [4]float64
	Center      [3]float64
	MinZoom     int
	MaxZoom     int
}

// TileHeaders carries the conditional-response metadata a Source can supply
// alongside tile bytes.
type TileHeaders struct {
	Modified    time.Time
	HasModified bool
}

// Source is the contract both archive container formats satisfy. GetTile
// returns ok=false (no error) when the coordinate is within range but the
// archive holds no data for it; the resolver synthesizes an empty response
// in that case rather than treating it as a failure.
type Source interface {
	GetTile(ctx context.Context, z, x, y int) (data []byte, headers TileHeaders, ok bool, err error)
	Metadata(ctx context.Context) (Metadata, error)
	Close() error
}

// Handle pairs a Source with the Kind the resolver needs to pick decoration
// rules, mirroring the Style Binding's source-name -> (reader, kind) map.
// FillColor, when the source declares one, colors the 1x1 placeholder the
// resolver synthesizes for missing raster tiles.
type Handle struct {
	Source    Source
	Kind      Kind
	FillColor string
}
