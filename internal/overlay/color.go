package overlay

import (
	"image/color"
	"strconv"
	"strings"
)

// parseCSSColor parses the subset of CSS color syntax the query parameters
// accept: "#rgb", "#rgba", "#rrggbb", "#rrggbbaa", and
// "rgba(r,g,b,a)"/"rgb(r,g,b)". Anything
// else falls back to opaque black rather than failing the whole render.
func parseCSSColor(s string) color.NRGBA {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		return parseRGBFunc(s)
	default:
		return color.NRGBA{A: 255}
	}
}

func parseHex(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 || len(s) == 4 {
		var expanded strings.Builder
		for _, c := range s {
			expanded.WriteRune(c)
			expanded.WriteRune(c)
		}
		s = expanded.String()
	}
	if len(s) != 6 && len(s) != 8 {
		return color.NRGBA{A: 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{A: 255}
	}
	if len(s) == 6 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

func parseRGBFunc(s string) color.NRGBA {
	open := strings.Index(s, "(")
	close := strings.LastIndex(s, ")")
	if open < 0 || close < 0 || close <= open {
		return color.NRGBA{A: 255}
	}
	parts := strings.Split(s[open+1:close], ",")
	vals := make([]float64, len(parts))
	for i, p := range parts {
		f, _ := strconv.ParseFloat(strings.TrimSpace(p), 64)
		vals[i] = f
	}
	c := color.NRGBA{A: 255}
	if len(vals) > 0 {
		c.R = uint8(clamp255(vals[0]))
	}
	if len(vals) > 1 {
		c.G = uint8(clamp255(vals[1]))
	}
	if len(vals) > 2 {
		c.B = uint8(clamp255(vals[2]))
	}
	if len(vals) > 3 {
		c.A = uint8(clamp255(vals[3] * 255))
	}
	return c
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
