// Package geo implements the Web-Mercator projection helpers shared by the
// render pipeline and the overlay rasterizer: forward/inverse projection and
// the "precise pixel" convention used to keep overlay geometry sub-pixel
// accurate across zoom levels.
//
// The pixel convention follows a standard 256px tile grid: at zoom z the
// world is (256 * 2^z) pixels wide, generalized here from whole-tile bounds
// to arbitrary lon/lat points.
package geo

import "math"

const (
	tileSize = 256.0
	// referenceZoom is the fixed zoom at which precisePx computes pixel
	// coordinates before scaling down to the caller's zoom, preserving
	// precision the way a float64 projection at low zoom cannot.
	referenceZoom = 20
)

// Point is a WGS84 (lon, lat) coordinate pair.
type Point struct {
	Lon float64
	Lat float64
}

// PixelPoint is a pixel-space coordinate in the renderer's 256px tile grid
// at a given zoom.
type PixelPoint struct {
	X float64
	Y float64
}

func clampLat(lat float64) float64 {
	const limit = 85.051128779806604
	if lat > limit {
		return limit
	}
	if lat < -limit {
		return -limit
	}
	return lat
}

// Px projects a WGS84 point into pixel space at the given zoom, using the
// renderer's 256px tile grid convention (world width = 256 * 2^z).
func Px(p Point, z float64) PixelPoint {
	lat := clampLat(p.Lat)
	scale := tileSize * math.Pow(2, z)

	x := (p.Lon + 180.0) / 360.0 * scale

	sinLat := math.Sin(lat * math.Pi / 180.0)
	y := (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * scale

	return PixelPoint{X: x, Y: y}
}

// Inverse converts a pixel-space point at zoom z back to WGS84.
func Inverse(px PixelPoint, z float64) Point {
	scale := tileSize * math.Pow(2, z)

	lon := px.X/scale*360.0 - 180.0

	y := 0.5 - px.Y/scale
	lat := 90.0 - 360.0*math.Atan(math.Exp(-y*2*math.Pi))/math.Pi

	return Point{Lon: lon, Lat: lat}
}

// PrecisePx projects ll at the fixed reference zoom (20) and rescales to z,
// per the "precise pixel projection" glossary entry: this keeps overlay
// geometry from losing precision when z is small and px.X/Y would otherwise
// be computed directly in a low-resolution pixel grid.
func PrecisePx(ll Point, z float64) PixelPoint {
	ref := Px(ll, referenceZoom)
	factor := math.Pow(2, z-referenceZoom)
	return PixelPoint{X: ref.X * factor, Y: ref.Y * factor}
}

// WorldSize returns the width/height in pixels of the whole world's tile
// grid at the given zoom (256 * 2^z).
func WorldSize(z float64) float64 {
	return tileSize * math.Pow(2, z)
}
