package web

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/zstd"

	"badc0de.net/pkg/go-terramap/ttesting"
	"badc0de.net/pkg/go-terramap/wld"
	"badc0de.net/pkg/go-terramap/wld/wldtest"
)

type fixture struct {
	dir    string
	router *mux.Router
	world  *wld.World
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), router: mux.NewRouter()}

	rng := rand.New(rand.NewSource(42))
	f.world = wldtest.RandomWorld(rng, "Green Hills", 6, 4)
	f.world.Tiles[f.world.Index(2, 3)] = wld.Tile{IsActive: true, TileID: 77, WallID: 4}
	f.write(t, "hills.wld", wldtest.EncodeWorld(f.world))

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	f.write(t, "packed.wld.zst", enc.EncodeAll(wldtest.EncodeWorld(f.world), nil))
	enc.Close()

	h := wldtest.NewHeader("broken", 100, 100)
	f.write(t, "broken.wld", wldtest.Encode(h, nil))
	f.write(t, "notes.txt", []byte("not a world"))

	NewHandler(f.dir, wld.Options{}).RegisterRoutes(f.router)
	return f
}

func (f *fixture) write(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.dir, name), data, 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("bad json %q: %v", rec.Body.String(), err)
	}
}

func TestWorldSummary(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"hills", "packed"} {
		rec := f.get(t, "/worlds/"+name)
		ttesting.AssertEqualInt(t, name+" status", rec.Code, http.StatusOK)

		var got struct {
			Name          string   `json:"name"`
			Width         int      `json:"width"`
			Height        int      `json:"height"`
			TileCount     int      `json:"tile_count"`
			ActiveTiles   int      `json:"active_tiles"`
			Compression   string   `json:"compression"`
			HumanSize     string   `json:"human_size"`
			NotYetDecoded []string `json:"not_yet_decoded"`
			Tiles         []interface{}
		}
		decodeBody(t, rec, &got)
		ttesting.AssertEqualString(t, "name", got.Name, "Green Hills")
		ttesting.AssertEqualInt(t, "width", got.Width, 6)
		ttesting.AssertEqualInt(t, "height", got.Height, 4)
		ttesting.AssertEqualInt(t, "tile count", got.TileCount, 24)
		ttesting.AssertEqualInt(t, "active", got.ActiveTiles, f.world.ActiveTiles())
		ttesting.AssertEqualInt(t, "sections", len(got.NotYetDecoded), 4)
		if got.Tiles != nil {
			t.Errorf("summary must not include tiles")
		}
		if got.HumanSize == "" {
			t.Errorf("human size missing")
		}
		if rec.Header().Get("ETag") == "" {
			t.Errorf("etag missing")
		}
	}

	var packed struct {
		Compression string `json:"compression"`
	}
	decodeBody(t, f.get(t, "/worlds/packed"), &packed)
	ttesting.AssertEqualString(t, "compression", packed.Compression, "zstd")
}

func TestWorldNotModified(t *testing.T) {
	f := newFixture(t)

	first := f.get(t, "/worlds/hills")
	etag := first.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/worlds/hills", nil)
	req.Header.Set("If-None-Match", etag)
	rec := f.do(t, req)
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusNotModified)
	ttesting.AssertEqualInt(t, "body", rec.Body.Len(), 0)
}

func TestWorldReloadedWhenChanged(t *testing.T) {
	f := newFixture(t)
	etag := f.get(t, "/worlds/hills").Header().Get("ETag")

	f.write(t, "hills.wld", wldtest.Encode(wldtest.NewHeader("Renamed", 1, 1), []wld.Tile{{}}))
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(f.dir, "hills.wld"), later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	rec := f.get(t, "/worlds/hills")
	var got struct {
		Name string `json:"name"`
	}
	decodeBody(t, rec, &got)
	ttesting.AssertEqualString(t, "name", got.Name, "Renamed")
	if rec.Header().Get("ETag") == etag {
		t.Errorf("etag did not change with the file")
	}
}

func TestWorldErrors(t *testing.T) {
	f := newFixture(t)

	for _, tt := range []struct {
		path   string
		status int
		kind   string
	}{
		{"/worlds/missing", http.StatusNotFound, ""},
		{"/worlds/notes", http.StatusNotFound, ""},
		{"/worlds/broken", http.StatusUnprocessableEntity, "corrupted data"},
		{"/worlds/hills/tiles/6/0", http.StatusNotFound, ""},
		{"/worlds/hills/tiles/0/99999999999999999999", http.StatusBadRequest, ""},
	} {
		rec := f.get(t, tt.path)
		ttesting.AssertEqualInt(t, tt.path, rec.Code, tt.status)
		if tt.kind != "" {
			var got errorResponse
			decodeBody(t, rec, &got)
			ttesting.AssertEqualString(t, tt.path+" kind", got.Kind, tt.kind)
		}
	}
}

func TestTile(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/worlds/hills/tiles/2/3")
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)

	var got TileResponse
	decodeBody(t, rec, &got)
	ttesting.AssertEqualInt(t, "x", got.X, 2)
	ttesting.AssertEqualInt(t, "y", got.Y, 3)
	if got.Tile == nil || *got.Tile != (wld.Tile{IsActive: true, TileID: 77, WallID: 4}) {
		t.Errorf("got tile %+v", got.Tile)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/worlds")
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)

	var got []ListEntry
	decodeBody(t, rec, &got)
	ttesting.AssertEqualInt(t, "entries", len(got), 3)
	want := []string{"broken", "hills", "packed"}
	for i := range got {
		ttesting.AssertEqualString(t, "name", got[i].Name, want[i])
	}
}

func TestDecodeUpload(t *testing.T) {
	f := newFixture(t)

	body := wldtest.EncodeWorld(f.world)
	rec := f.do(t, httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(body)))
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)

	var got struct {
		Name        string `json:"name"`
		DecodedSize int    `json:"decoded_size"`
	}
	decodeBody(t, rec, &got)
	ttesting.AssertEqualString(t, "name", got.Name, "Green Hills")
	ttesting.AssertEqualInt(t, "decoded size", got.DecodedSize, len(body))

	rec = f.do(t, httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(nil)))
	ttesting.AssertEqualInt(t, "empty upload", rec.Code, http.StatusUnprocessableEntity)
	var e errorResponse
	decodeBody(t, rec, &e)
	ttesting.AssertEqualString(t, "kind", e.Kind, "invalid data")

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/decode", nil))
	ttesting.AssertEqualInt(t, "wrong method", rec.Code, http.StatusMethodNotAllowed)
}

func TestWorldPathRejectsTraversal(t *testing.T) {
	h := NewHandler(t.TempDir(), wld.Options{})
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, _, err := h.worldPath(name); err == nil {
			t.Errorf("%q: accepted", name)
		}
	}
}

func TestCachedWorldServedDuringDecode(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.dir, wld.Options{})
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	serve := func(path string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}
	ttesting.AssertEqualInt(t, "warm cache", serve("/worlds/hills"), http.StatusOK)

	started := make(chan struct{})
	release := make(chan struct{})
	decode := h.decode
	h.decode = func(buf []byte) (*wld.World, error) {
		close(started)
		<-release
		return decode(buf)
	}

	slow := make(chan int)
	go func() { slow <- serve("/worlds/packed") }()
	<-started

	hit := make(chan int, 1)
	go func() { hit <- serve("/worlds/hills") }()
	select {
	case code := <-hit:
		ttesting.AssertEqualInt(t, "cache hit", code, http.StatusOK)
	case <-time.After(5 * time.Second):
		t.Errorf("cache hit blocked behind a decode of another world")
	}

	close(release)
	ttesting.AssertEqualInt(t, "slow decode", <-slow, http.StatusOK)
}
