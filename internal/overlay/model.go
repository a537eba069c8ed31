// Package overlay parses path/marker query syntax, projects coordinates
// into canvas pixel space at the resolved zoom, and rasterizes the result
// into an RGBA buffer ready to composite over a base render.
package overlay

import "github.com/MeKo-Tech/tileserver/internal/geo"

// Style carries the resolved per-path drawing parameters, after applying
// token overrides over the request-level defaults.
type Style struct {
	Fill        string
	Stroke      string
	Width       float64
	Border      string
	BorderWidth float64
	// LineCap and LineJoin are carried through parsing but Rasterize does
	// not read them: every line is drawn with butt ends and overlapping-quad
	// joins.
	LineCap  string // "butt", "round", "square"
	LineJoin string // "miter", "round", "bevel"
}

// DefaultStroke is the stroke color used when neither a per-path token nor
// the request-level query sets one.
const DefaultStroke = "rgba(0,64,255,0.7)"

// Path is an ordered sequence of points, with optional per-path style
// overrides layered over the request defaults.
type Path struct {
	Points []geo.Point
	Style  Style
}

// Closed reports whether the first and last point coincide.
func (p Path) Closed() bool {
	if len(p.Points) < 2 {
		return false
	}
	first, last := p.Points[0], p.Points[len(p.Points)-1]
	return first.Lon == last.Lon && first.Lat == last.Lat
}

// Renderable reports whether p has enough points to draw.
func (p Path) Renderable() bool { return len(p.Points) >= 2 }

// MarkerIconKind classifies the icon source of a Marker.
type MarkerIconKind int

const (
	IconDefault MarkerIconKind = iota
	IconDataURL
	IconRemoteURL
	IconLocalPath
)

// Marker is a single point icon placed on the overlay.
type Marker struct {
	Location geo.Point
	IconKind MarkerIconKind
	Icon     string // raw icon spec: data URL, http(s) URL, or local path
	Scale    float64
	OffsetX  float64
	OffsetY  float64
	Color    string
}
