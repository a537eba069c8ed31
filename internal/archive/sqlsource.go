package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // driver registered under "sqlite"
)

// SQLSource is the archiveB container: a single SQLite database with a
// tiles table keyed by zoom_level/tile_column/tile_row (TMS row numbering)
// and a metadata table of free-form name/value pairs, opened read-only.
type SQLSource struct {
	db *sql.DB

	// format from the metadata table, read once at open. Vector ("pbf")
	// blobs are stored gzip-compressed and gunzipped on read; raster blobs
	// are stored as-is.
	format string
}

// OpenSQLSource opens path as a read-only, immutable SQLite tile archive.
func OpenSQLSource(path string) (*SQLSource, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, eris.Wrap(err, "archive: open sql source")
	}

	var count int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tiles'",
	).Scan(&count); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "archive: verify sql source schema")
	}
	if count == 0 {
		db.Close()
		return nil, eris.New("archive: sql source has no tiles table")
	}

	s := &SQLSource{db: db}
	meta, err := s.Metadata(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	s.format = meta.Format
	return s, nil
}

// GetTile reads the tile at the given XYZ coordinate, converting to TMS row
// numbering. Vector tiles are gunzipped before returning; raster tiles pass
// through byte-for-byte.
func (s *SQLSource) GetTile(ctx context.Context, z, x, y int) ([]byte, TileHeaders, bool, error) {
	tmsY := (1 << uint(z)) - 1 - y

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=?",
		z, x, tmsY,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, TileHeaders{}, false, nil
	}
	if err != nil {
		return nil, TileHeaders{}, false, eris.Wrap(err, "archive: query sql tile")
	}

	if s.format == "pbf" {
		data, err = gunzip(data)
		if err != nil {
			return nil, TileHeaders{}, false, eris.Wrap(err, "archive: decompress sql tile")
		}
	}
	return data, TileHeaders{}, true, nil
}

// Metadata parses the metadata table into the shared archive Metadata shape.
func (s *SQLSource) Metadata(ctx context.Context) (Metadata, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, eris.Wrap(err, "archive: query sql metadata")
	}
	defer rows.Close()

	raw := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, eris.Wrap(err, "archive: scan sql metadata row")
		}
		raw[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, eris.Wrap(err, "archive: iterate sql metadata")
	}

	meta := Metadata{
		Name:        raw["name"],
		Format:      raw["format"],
		Attribution: raw["attribution"],
		Description: raw["description"],
		Type:        raw["type"],
		Version:     raw["version"],
		Proj4:       raw["proj4"],
	}
	if v, ok := raw["minzoom"]; ok {
		meta.MinZoom, _ = strconv.Atoi(v)
	}
	if v, ok := raw["maxzoom"]; ok {
		meta.MaxZoom, _ = strconv.Atoi(v)
	}
	if v, ok := raw["bounds"]; ok {
		parts := strings.Split(v, ",")
		if len(parts) == 4 {
			for i, p := range parts {
				if f, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err == nil {
					meta.Bounds[i] = f
				}
			}
		}
	}
	if v, ok := raw["center"]; ok {
		parts := strings.Split(v, ",")
		if len(parts) == 3 {
			for i, p := range parts {
				if f, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err == nil {
					meta.Center[i] = f
				}
			}
		}
	}
	return meta, nil
}

// Close closes the underlying database handle.
func (s *SQLSource) Close() error {
	if err := s.db.Close(); err != nil {
		return eris.Wrap(err, "archive: close sql source")
	}
	return nil
}

func gunzip(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}
