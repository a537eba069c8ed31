package overlay

import (
	"fmt"
	"strconv"
	"strings"

	polyline "github.com/twpayne/go-polyline"

	"github.com/MeKo-Tech/tileserver/internal/errs"
	"github.com/MeKo-Tech/tileserver/internal/geo"
)

// ParsePath parses one `path=` query value: either "enc:<polyline>" or a
// "lng,lat|lng,lat|..." list, optionally prefixed with "fill:COLOR|",
// "stroke:COLOR|", "width:N|" tokens. latLng swaps the coordinate order
// within each "lng,lat" pair when the caller's latlng=1 query flag is set.
func ParsePath(raw string, latLng bool) (Path, error) {
	var style Style
	body := raw

	for {
		rest, tok, ok := cutToken(body)
		if !ok {
			break
		}
		switch tok.key {
		case "fill":
			style.Fill = tok.value
		case "stroke":
			style.Stroke = tok.value
		case "width":
			w, err := strconv.ParseFloat(tok.value, 64)
			if err != nil {
				return Path{}, errs.Wrap(errs.KindBadRequest, err, "overlay: parse path width token")
			}
			style.Width = w
		}
		body = rest
	}

	var points []geo.Point
	switch {
	case strings.HasPrefix(body, "enc:"):
		// Encoded polylines carry (lat,lng) pairs regardless of the latlng
		// query flag, which only governs textual pairs.
		coords, _, err := polyline.DecodeCoords([]byte(strings.TrimPrefix(body, "enc:")))
		if err != nil {
			return Path{}, errs.Wrap(errs.KindBadRequest, err, "overlay: decode polyline")
		}
		for _, c := range coords {
			points = append(points, geo.Point{Lon: c[1], Lat: c[0]})
		}
	default:
		pairs := strings.Split(body, "|")
		for _, pair := range pairs {
			if pair == "" {
				continue
			}
			parts := strings.Split(pair, ",")
			if len(parts) != 2 {
				return Path{}, errs.New(errs.KindBadRequest, fmt.Sprintf("overlay: malformed path point %q", pair))
			}
			a, errA := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			b, errB := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if errA != nil || errB != nil {
				return Path{}, errs.New(errs.KindBadRequest, fmt.Sprintf("overlay: non-numeric path point %q", pair))
			}
			lon, lat := a, b
			if latLng {
				lon, lat = b, a
			}
			points = append(points, geo.Point{Lon: lon, Lat: lat})
		}
	}

	return Path{Points: points, Style: style}, nil
}

type token struct {
	key   string
	value string
}

// cutToken pulls one "key:value|" prefix token off body, if present.
func cutToken(body string) (rest string, tok token, ok bool) {
	bar := strings.Index(body, "|")
	if bar < 0 {
		return "", token{}, false
	}
	colon := strings.Index(body[:bar], ":")
	if colon < 0 {
		return "", token{}, false
	}
	key := body[:colon]
	switch key {
	case "fill", "stroke", "width":
		return body[bar+1:], token{key: key, value: body[colon+1 : bar]}, true
	default:
		return "", token{}, false
	}
}

// ParseMarker parses one `marker=` query value:
// "<lng,lat>|<icon>[|opt...]" with opts scale:N, offset:X[,Y], color:COLOR.
func ParseMarker(raw string, latLng bool) (Marker, error) {
	parts := strings.Split(raw, "|")
	if len(parts) < 2 {
		return Marker{}, errs.New(errs.KindBadRequest, "overlay: marker requires location and icon")
	}

	coords := strings.Split(parts[0], ",")
	if len(coords) != 2 {
		return Marker{}, errs.New(errs.KindBadRequest, "overlay: malformed marker location")
	}
	a, errA := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
	if errA != nil || errB != nil {
		return Marker{}, errs.New(errs.KindBadRequest, "overlay: non-numeric marker location")
	}
	lon, lat := a, b
	if latLng {
		lon, lat = b, a
	}

	m := Marker{
		Location: geo.Point{Lon: lon, Lat: lat},
		Scale:    1,
	}
	m.IconKind, m.Icon = classifyIcon(parts[1])

	for _, opt := range parts[2:] {
		colon := strings.Index(opt, ":")
		if colon < 0 {
			continue
		}
		key, value := opt[:colon], opt[colon+1:]
		switch key {
		case "scale":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Marker{}, errs.Wrap(errs.KindBadRequest, err, "overlay: parse marker scale")
			}
			m.Scale = f
		case "offset":
			xy := strings.Split(value, ",")
			x, err := strconv.ParseFloat(xy[0], 64)
			if err != nil {
				return Marker{}, errs.Wrap(errs.KindBadRequest, err, "overlay: parse marker offset")
			}
			m.OffsetX = x
			if len(xy) > 1 {
				y, err := strconv.ParseFloat(xy[1], 64)
				if err != nil {
					return Marker{}, errs.Wrap(errs.KindBadRequest, err, "overlay: parse marker offset")
				}
				m.OffsetY = y
			}
		case "color":
			m.Color = value
		}
	}

	return m, nil
}

func classifyIcon(spec string) (MarkerIconKind, string) {
	switch {
	case spec == "default" || spec == "":
		return IconDefault, "default"
	case strings.HasPrefix(spec, "data:"):
		return IconDataURL, spec
	case strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://"):
		return IconRemoteURL, spec
	default:
		return IconLocalPath, spec
	}
}
