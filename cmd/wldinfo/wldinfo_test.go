package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"badc0de.net/pkg/go-terramap/ttesting"
	"badc0de.net/pkg/go-terramap/wld"
	"badc0de.net/pkg/go-terramap/wld/wldtest"
)

func TestParseTile(t *testing.T) {
	x, y, err := parseTile("12, 7")
	if err != nil {
		t.Fatalf("parseTile: %v", err)
	}
	ttesting.AssertEqualInt(t, "x", x, 12)
	ttesting.AssertEqualInt(t, "y", y, 7)

	for _, bad := range []string{"", "1", "1,2,3", "a,2", "1,b"} {
		if _, _, err := parseTile(bad); err == nil {
			t.Errorf("%q: no error", bad)
		}
	}
}

func writeWorlds(t *testing.T) (good, bad string) {
	t.Helper()
	dir := t.TempDir()
	good = filepath.Join(dir, "good.wld")
	bad = filepath.Join(dir, "bad.wld")

	tiles := make([]wld.Tile, 6)
	tiles[4] = wld.Tile{IsActive: true, TileID: 30, WallID: 2, U: 18}
	if err := os.WriteFile(good, wldtest.Encode(wldtest.NewHeader("Good", 3, 2), tiles), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, wldtest.Encode(wldtest.NewHeader("Bad", 3, 2), nil), 0644); err != nil {
		t.Fatal(err)
	}
	return good, bad
}

func TestDecodeAllKeepsOrder(t *testing.T) {
	good, bad := writeWorlds(t)
	missing := filepath.Join(filepath.Dir(good), "missing.wld")

	names := []string{bad, good, missing, good}
	results := decodeAll(names, wld.Options{}, 2)

	ttesting.AssertEqualInt(t, "results", len(results), len(names))
	for i, r := range results {
		ttesting.AssertEqualString(t, "name", r.name, names[i])
	}
	if !wld.IsKind(results[0].err, wld.CorruptedData) {
		t.Errorf("bad world: got %v; want corrupted data", results[0].err)
	}
	if results[1].err != nil || results[1].world.Name != "Good" {
		t.Errorf("good world: %v %v", results[1].world, results[1].err)
	}
	if results[2].err == nil {
		t.Errorf("missing world decoded")
	}
}

func TestPrint(t *testing.T) {
	good, bad := writeWorlds(t)
	results := decodeAll([]string{good, bad}, wld.Options{}, 0)

	var out bytes.Buffer
	p := &printer{out: &out, tile: &[2]int{1, 1}}
	p.print(results)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	ttesting.AssertEqualInt(t, "lines", len(lines), 2)
	fields := strings.Split(lines[0], "\t")
	ttesting.AssertEqualString(t, "name", fields[1], "Good")
	ttesting.AssertEqualString(t, "active", fields[5], "1")
	ttesting.AssertEqualString(t, "tile", fields[len(fields)-1], "block 30 wall 2 frame 18,0 liquid 0")
	if !strings.HasPrefix(lines[1], bad+"\terror\t") {
		t.Errorf("error line: %q", lines[1])
	}

	out.Reset()
	p.aligned = true
	p.print(results)
	s := out.String()
	for _, want := range []string{
		"  name:         Good\n",
		"  size:         3 x 2 (6 tiles, 1 active)\n",
		"  not decoded:  chests, npcs, signs, tile_entities\n",
		"  tile 1,1:     block 30 wall 2 frame 18,0 liquid 0\n",
		"  error:        wld dimension validation: corrupted data",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("aligned output lacks %q:\n%s", want, s)
		}
	}
}
