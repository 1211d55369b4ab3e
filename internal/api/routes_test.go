package api

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ngffio/pixelbuffer/internal/pixelbuffer"
)

// writeFixtureRoot builds a single-level 2x2 grayscale uint16 array at
// dir/vol.zarr and returns its root URI, mirroring the fixture style
// used to test the pixelbuffer engine itself.
func writeFixtureRoot(t *testing.T, dir string) string {
	t.Helper()

	root := filepath.Join(dir, "vol.zarr")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}

	zattrs := map[string]interface{}{
		"multiscales": []interface{}{
			map[string]interface{}{
				"axes": []map[string]string{
					{"name": "y"},
					{"name": "x"},
				},
				"datasets": []map[string]string{
					{"path": "0"},
				},
			},
		},
	}
	data, err := json.Marshal(zattrs)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".zattrs"), data, 0644); err != nil {
		t.Fatal(err)
	}

	level := filepath.Join(root, "0")
	if err := os.MkdirAll(level, 0755); err != nil {
		t.Fatal(err)
	}
	zarray := map[string]interface{}{
		"zarr_format": 2,
		"shape":       []int{2, 2},
		"chunks":      []int{2, 2},
		"dtype":       "<u2",
		"order":       "C",
		"fill_value":  0,
		"compressor":  nil,
	}
	data, err = json.Marshal(zarray)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(level, ".zarray"), data, 0644); err != nil {
		t.Fatal(err)
	}

	values := []uint16{10, 20, 30, 40}
	buf := make([]byte, 8)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	if err := os.WriteFile(filepath.Join(level, "0.0"), buf, 0644); err != nil {
		t.Fatal(err)
	}

	return root
}

func newTestRouter(t *testing.T) *chiRouterFixture {
	t.Helper()

	metadataCache, err := pixelbuffer.NewMetadataCache(8)
	if err != nil {
		t.Fatal(err)
	}
	arrayCache, err := pixelbuffer.NewArrayCache(8)
	if err != nil {
		t.Fatal(err)
	}

	registry := NewRootRegistry("default", "pixelbuffer test", metadataCache, arrayCache)
	root := writeFixtureRoot(t, t.TempDir())
	registry.Register("default", root, pixelbuffer.Pixels{SizeX: 2, SizeY: 2}, 64, 64)

	router := NewRouter(RouterConfig{
		Registry:    registry,
		CORSOrigins: []string{"*"},
	})
	return &chiRouterFixture{router: router}
}

type chiRouterFixture struct {
	router http.Handler
}

func (f *chiRouterFixture) do(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	fixture := newTestRouter(t)
	rec := fixture.do(t, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_Roots(t *testing.T) {
	fixture := newTestRouter(t)
	rec := fixture.do(t, "/api/roots")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Default string     `json:"default"`
		Roots   []RootInfo `json:"roots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Default != "default" {
		t.Errorf("expected default root 'default', got %q", body.Default)
	}
	if len(body.Roots) != 1 || body.Roots[0].Name != "default" {
		t.Fatalf("unexpected roots: %+v", body.Roots)
	}
}

func TestRouter_Metadata(t *testing.T) {
	fixture := newTestRouter(t)
	rec := fixture.do(t, "/r/default/metadata")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		SizeX            int `json:"sizeX"`
		SizeY            int `json:"sizeY"`
		ResolutionLevels int `json:"resolutionLevels"`
		ByteWidth        int `json:"byteWidth"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.SizeX != 2 || body.SizeY != 2 {
		t.Errorf("unexpected size: x=%d y=%d", body.SizeX, body.SizeY)
	}
	if body.ResolutionLevels != 1 {
		t.Errorf("expected 1 resolution level, got %d", body.ResolutionLevels)
	}
	if body.ByteWidth != 2 {
		t.Errorf("expected byte width 2, got %d", body.ByteWidth)
	}
}

func TestRouter_Tile(t *testing.T) {
	fixture := newTestRouter(t)
	rec := fixture.do(t, "/r/default/tile/-/0/0/0/0/0/2/2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 8 {
		t.Fatalf("expected 8 bytes (2x2 uint16), got %d", rec.Body.Len())
	}
	got := binary.BigEndian.Uint16(rec.Body.Bytes()[0:2])
	if got != 10 {
		t.Errorf("expected first pixel 10, got %d", got)
	}
	if rec.Header().Get("X-Byte-Width") != "2" {
		t.Errorf("expected X-Byte-Width header 2, got %q", rec.Header().Get("X-Byte-Width"))
	}
}

func TestRouter_TileOutOfBounds(t *testing.T) {
	fixture := newTestRouter(t)
	rec := fixture.do(t, "/r/default/tile/-/0/0/0/3/3/2/2")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_UnknownRoot(t *testing.T) {
	fixture := newTestRouter(t)
	rec := fixture.do(t, "/r/missing/metadata")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unconfigured root, got %d: %s", rec.Code, rec.Body.String())
	}
}
