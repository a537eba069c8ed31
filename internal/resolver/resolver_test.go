package resolver

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MeKo-Tech/tileserver/internal/archive"
)

type fakeSource struct {
	data    []byte
	present bool
	err     error
}

func (f *fakeSource) GetTile(ctx context.Context, z, x, y int) ([]byte, archive.TileHeaders, bool, error) {
	return f.data, archive.TileHeaders{}, f.present, f.err
}
func (f *fakeSource) Metadata(ctx context.Context) (archive.Metadata, error) { return archive.Metadata{}, nil }
func (f *fakeSource) Close() error                                          { return nil }

func TestFetchSpritesReadsFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "icon.png"), []byte("sprite-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := New(dir, nil, nil, nil, nil)

	res, err := r.Fetch(context.Background(), "sprites://icon.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Data) != "sprite-bytes" {
		t.Errorf("data = %q", res.Data)
	}
}

func TestFetchArchiveSynthesizesEmptyOnMiss(t *testing.T) {
	src := &fakeSource{present: false}
	lookup := func(name string) (archive.Handle, bool) {
		return archive.Handle{Source: src, Kind: archive.KindArchiveB}, true
	}
	r := New("", lookup, nil, nil, nil)

	res, err := r.Fetch(context.Background(), "archiveB://main/3/1/2.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Data) == 0 {
		t.Errorf("expected synthesized raster bytes, got empty")
	}
}

func TestFetchArchivePbfMissIsZeroBytes(t *testing.T) {
	src := &fakeSource{present: false}
	lookup := func(name string) (archive.Handle, bool) {
		return archive.Handle{Source: src, Kind: archive.KindArchiveB}, true
	}
	r := New("", lookup, nil, nil, nil)

	res, err := r.Fetch(context.Background(), "archiveB://main/3/1/2.pbf")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Data) != 0 {
		t.Errorf("expected zero-byte pbf response, got %d bytes", len(res.Data))
	}
}

func TestFetchArchiveReturnsPresentTile(t *testing.T) {
	src := &fakeSource{present: true, data: []byte("tile-bytes")}
	lookup := func(name string) (archive.Handle, bool) {
		return archive.Handle{Source: src, Kind: archive.KindArchiveA}, true
	}
	r := New("", lookup, nil, nil, nil)

	res, err := r.Fetch(context.Background(), "archiveA://main/3/1/2.pbf")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Data) != "tile-bytes" {
		t.Errorf("data = %q", res.Data)
	}
}

func TestFetchArchiveUnknownSourceIsNotFound(t *testing.T) {
	lookup := func(name string) (archive.Handle, bool) { return archive.Handle{}, false }
	r := New("", lookup, nil, nil, nil)

	if _, err := r.Fetch(context.Background(), "archiveB://missing/0/0/0.png"); err == nil {
		t.Errorf("expected error for unknown source")
	}
}

func TestFetchHTTPPassesThroughHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	r := New("", nil, nil, nil, nil)
	res, err := r.Fetch(context.Background(), srv.URL+"/x.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Data) != "payload" {
		t.Errorf("data = %q", res.Data)
	}
	if res.ETag != `"abc"` {
		t.Errorf("etag = %q", res.ETag)
	}
	if !res.HasModified {
		t.Errorf("expected HasModified to be set")
	}
}

func TestFetchHTTPErrorStatusSynthesizesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := New("", nil, nil, nil, nil)
	res, err := r.Fetch(context.Background(), srv.URL+"/x.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Data) == 0 {
		t.Errorf("expected synthesized bytes for 404 raster response")
	}
}

func TestFetchFontSplitsPath(t *testing.T) {
	var gotStack, gotRange string
	r := New("", nil, func(ctx context.Context, fontstack, rng string, allowed []string) ([]byte, error) {
		gotStack, gotRange = fontstack, rng
		return []byte("glyphs"), nil
	}, nil, nil)

	res, err := r.Fetch(context.Background(), "fonts://Open-Sans-Regular/0-255.pbf")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotStack != "Open-Sans-Regular" || gotRange != "0-255" {
		t.Errorf("stack=%q range=%q", gotStack, gotRange)
	}
	if string(res.Data) != "glyphs" {
		t.Errorf("data = %q", res.Data)
	}
}

func TestFetchArchiveUsesDeclaredFillColor(t *testing.T) {
	src := &fakeSource{present: false}
	lookup := func(name string) (archive.Handle, bool) {
		return archive.Handle{Source: src, Kind: archive.KindArchiveA, FillColor: "#336699"}, true
	}
	r := New("", lookup, nil, nil, nil)

	res, err := r.Fetch(context.Background(), "archiveA://main/3/1/2.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode synthesized png: %v", err)
	}
	c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	if c.R != 0x33 || c.G != 0x66 || c.B != 0x99 {
		t.Errorf("placeholder color = %+v, want #336699", c)
	}
}

func TestFetcherAdapterFormatsHeaderTimes(t *testing.T) {
	modified := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	fetch := New("", nil, nil, nil, nil).Fetcher(context.Background())
	res, err := fetch(srv.URL + "/x.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Modified != modified.Format(http.TimeFormat) {
		t.Errorf("Modified = %q, want %q", res.Modified, modified.Format(http.TimeFormat))
	}
}

func TestParseFillColor(t *testing.T) {
	c := parseFillColor("#ff000080")
	if c.R != 0xff || c.A != 0x80 {
		t.Errorf("got %+v", c)
	}
	def := parseFillColor("")
	if def.A != 0 {
		t.Errorf("expected transparent default, got %+v", def)
	}
}
