package geo

import "math"

// BBox is a WGS84 bounding box: [minLon, minLat, maxLon, maxLat].
type BBox [4]float64

// Center returns the bbox center, computed by projecting both corners
// forward to pixel space at a low reference zoom and back, so antimeridian
// crossing bboxes behave the same way the renderer's own forward/inverse
// projection does rather than a naive lon/lat midpoint.
func (b BBox) Center() Point {
	const z = 4
	min := Px(Point{Lon: b[0], Lat: b[1]}, z)
	max := Px(Point{Lon: b[2], Lat: b[3]}, z)
	mid := PixelPoint{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2}
	return Inverse(mid, z)
}

// BBoxOf returns the degenerate bbox containing exactly p.
func BBoxOf(p Point) BBox {
	return BBox{p.Lon, p.Lat, p.Lon, p.Lat}
}

// Union returns the smallest bbox containing both b and other.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		math.Min(b[0], other[0]),
		math.Min(b[1], other[1]),
		math.Max(b[2], other[2]),
		math.Max(b[3], other[3]),
	}
}

// ExpandPoint grows b to include p.
func (b BBox) ExpandPoint(p Point) BBox {
	return b.Union(BBoxOf(p))
}

// CalcZForBBox returns the zoom at which bbox, padded by `padding` fractional
// margin on each side, exactly fills a W x H viewport.
func CalcZForBBox(bbox BBox, w, h int, padding float64) float64 {
	const refZ = 25.0

	minPx := Px(Point{Lon: bbox[0], Lat: bbox[1]}, refZ)
	maxPx := Px(Point{Lon: bbox[2], Lat: bbox[3]}, refZ)

	dx := math.Abs(maxPx.X - minPx.X)
	dy := math.Abs(minPx.Y - maxPx.Y)

	p := 1 + 2*padding
	wAvail := float64(w) / p
	hAvail := float64(h) / p

	var ratio float64
	if dx > 0 {
		ratio = math.Log(dx / wAvail)
	}
	if dy > 0 {
		r := math.Log(dy / hAvail)
		if r > ratio {
			ratio = r
		}
	}

	z := refZ - ratio/math.Ln2

	minZ := math.Log(float64(maxInt(w, h))/tileSize) / math.Ln2
	if z < minZ {
		z = minZ
	}
	if z > refZ {
		z = refZ
	}
	return z
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
