package style

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/MeKo-Tech/tileserver/internal/archive"
	"github.com/MeKo-Tech/tileserver/internal/errs"
)

// ArchiveDescriptor is what a DataResolver maps a source name to: a local
// archive path (or, for archiveA only, an HTTP URL) plus a container kind.
// Load picks the opener from the source URL's scheme and does not read
// FileType.
type ArchiveDescriptor struct {
	InputFile string
	FileType  archive.Kind
}

// DataResolver maps a style source name to its backing archive descriptor.
// A missing mapping is fatal at registration.
type DataResolver func(id string) (ArchiveDescriptor, error)

// ArchiveAOpener opens a sparse-indexed archiveA container. archiveA's
// on-disk format is an external collaborator, so the loader does not
// implement it directly; callers wire in whatever reader they have.
type ArchiveAOpener func(inputFile string) (archive.Source, error)

// Loader parses a style document into a Binding at registration time.
type Loader struct {
	Resolve  DataResolver
	OpenA    ArchiveAOpener
	StyleDir string // expands {styleJsonFolder} in sprite/glyph URIs
}

// Load builds a Binding for id from doc, a JSON-decoded style document.
// doc is mutated in place (sources/layers are rewritten) so the returned
// Binding's TileJSON reflects the same object the caller can serve as-is.
func (l *Loader) Load(ctx context.Context, id string, doc map[string]any) (*Binding, error) {
	b := &Binding{
		ID:      id,
		Sources: make(map[string]Source),
	}

	sourcesRaw, _ := doc["sources"].(map[string]any)
	var attributions []string
	var firstProj4 string

	names := make([]string, 0, len(sourcesRaw))
	for name := range sourcesRaw {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic proj4-conflict detection order

	for _, name := range names {
		srcObj, _ := sourcesRaw[name].(map[string]any)
		if srcObj == nil {
			continue
		}
		url, _ := srcObj["url"].(string)

		var kind archive.Kind
		var scheme string
		switch {
		case strings.HasPrefix(url, "archiveA://"):
			kind, scheme = archive.KindArchiveA, "archiveA"
		case strings.HasPrefix(url, "archiveB://"):
			kind, scheme = archive.KindArchiveB, "archiveB"
		default:
			b.Sources[name] = Source{Name: name, Type: typeOf(srcObj)}
			continue
		}

		archiveName := strings.TrimPrefix(url, scheme+"://")
		archiveName = strings.Trim(archiveName, "/")
		if archiveName == "{name}" || archiveName == "" {
			archiveName = name
		}

		desc, err := l.Resolve(archiveName)
		if err != nil {
			return nil, errs.Wrap(errs.KindFatalConfig, err, fmt.Sprintf("style: resolve source %q", name))
		}

		handle, err := l.open(kind, desc)
		if err != nil {
			return nil, errs.Wrap(errs.KindFatalConfig, err, fmt.Sprintf("style: open source %q", name))
		}

		meta, err := handle.Metadata(ctx)
		if err != nil {
			handle.Close()
			return nil, errs.Wrap(errs.KindFatalConfig, err, fmt.Sprintf("style: read metadata for source %q", name))
		}

		if meta.Proj4 != "" {
			if firstProj4 == "" {
				firstProj4 = meta.Proj4
			} else if firstProj4 != meta.Proj4 {
				handle.Close()
				return nil, errs.New(errs.KindFatalConfig,
					fmt.Sprintf("style: source %q declares a proj4 definition conflicting with an earlier source", name))
			}
		}

		format := meta.Format
		if format == "" {
			format = "pbf"
		}
		srcObj["type"] = typeOf(srcObj)
		srcObj["bounds"] = meta.Bounds
		srcObj["center"] = meta.Center
		srcObj["minzoom"] = meta.MinZoom
		srcObj["maxzoom"] = meta.MaxZoom
		if meta.Format != "" {
			srcObj["format"] = meta.Format
		}
		if meta.Proj4 != "" {
			srcObj["proj4"] = meta.Proj4
		}
		srcObj["tiles"] = []string{fmt.Sprintf("%s://%s/{z}/{x}/{y}.%s", scheme, archiveName, format)}

		if meta.Attribution != "" {
			attributions = append(attributions, meta.Attribution)
		}

		fillColor, _ := srcObj["color"].(string)
		b.Sources[name] = Source{
			Name:       name,
			Type:       typeOf(srcObj),
			Kind:       kind,
			Handle:     handle,
			TileScheme: scheme,
			FillColor:  fillColor,
		}
	}

	// DataProjection is the EPSG:3857 inverse composed with the declared
	// projection's forward transform. For Web-Mercator data (and an empty
	// declaration) that composition is the identity, represented as nil.
	// Other projections also resolve to nil, since no proj4 evaluator is
	// available in-process; the declaration is preserved here and handed to
	// the renderer as its SRS instead.
	b.Proj4 = firstProj4

	if sprite, ok := doc["sprite"].(string); ok && sprite != "" {
		doc["sprite"] = l.rewriteRelative(sprite, id, "sprites")
	}
	if glyphs, ok := doc["glyphs"].(string); ok && glyphs != "" {
		doc["glyphs"] = l.rewriteRelative(glyphs, id, "fonts")
	}

	flattenExtrusions(doc)

	if _, hasAttribution := doc["attribution"]; !hasAttribution && len(attributions) > 0 {
		doc["attribution"] = strings.Join(dedupe(attributions), " | ")
	}

	b.TileJSON = doc
	return b, nil
}

func (l *Loader) open(kind archive.Kind, desc ArchiveDescriptor) (archive.Source, error) {
	switch kind {
	case archive.KindArchiveB:
		if err := validateLocalFile(desc.InputFile, false); err != nil {
			return nil, err
		}
		return archive.OpenSQLSource(desc.InputFile)
	default: // KindArchiveA
		if l.OpenA == nil {
			return nil, errs.New(errs.KindFatalConfig, "style: no archiveA opener configured")
		}
		isHTTP := strings.HasPrefix(desc.InputFile, "http://") || strings.HasPrefix(desc.InputFile, "https://")
		if err := validateLocalFile(desc.InputFile, isHTTP); err != nil {
			return nil, err
		}
		return l.OpenA(desc.InputFile)
	}
}

// validateLocalFile rejects a path that is not a regular, nonzero file,
// unless allowHTTP is set and the path is itself an HTTP(S) URL.
func validateLocalFile(path string, allowHTTP bool) error {
	if allowHTTP && (strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")) {
		return nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return errs.Wrap(errs.KindFatalConfig, err, "style: stat archive input file")
	}
	if !fi.Mode().IsRegular() || fi.Size() == 0 {
		return errs.New(errs.KindFatalConfig, fmt.Sprintf("style: %q is not a regular nonzero file", path))
	}
	return nil
}

func (l *Loader) rewriteRelative(uri, styleID, scheme string) string {
	if strings.Contains(uri, "://") {
		return uri
	}
	uri = strings.ReplaceAll(uri, "{style}", styleID)
	uri = strings.ReplaceAll(uri, "{styleJsonFolder}", l.StyleDir)
	return scheme + "://" + strings.TrimPrefix(uri, "/")
}

func typeOf(srcObj map[string]any) string {
	if t, ok := srcObj["type"].(string); ok {
		return t
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// flattenExtrusions zeroes fill-extrusion-height/base on every layer so 3D
// buildings render flat.
func flattenExtrusions(doc map[string]any) {
	layers, _ := doc["layers"].([]any)
	for _, l := range layers {
		layer, ok := l.(map[string]any)
		if !ok {
			continue
		}
		paint, ok := layer["paint"].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := paint["fill-extrusion-height"]; ok {
			paint["fill-extrusion-height"] = 0
		}
		if _, ok := paint["fill-extrusion-base"]; ok {
			paint["fill-extrusion-base"] = 0
		}
	}
}

