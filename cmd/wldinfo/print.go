package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"badc0de.net/pkg/go-terramap/wld"
)

// printer writes results either as aligned blocks for people or as one
// tab-separated line per file for scripts.
type printer struct {
	out     io.Writer
	aligned bool
	tile    *[2]int
}

func (p *printer) print(results []result) {
	for i, r := range results {
		if p.aligned {
			if i > 0 {
				fmt.Fprintln(p.out)
			}
			p.block(r)
		} else {
			p.line(r)
		}
	}
}

func sectionNames(sections []wld.Section) string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

func (p *printer) field(label, format string, args ...interface{}) {
	fmt.Fprintf(p.out, "  %-14s%s\n", label+":", fmt.Sprintf(format, args...))
}

func (p *printer) block(r result) {
	fmt.Fprintf(p.out, "%s\n", r.name)
	if r.err != nil {
		p.field("error", "%v", r.err)
		return
	}
	w := r.world
	p.field("name", "%s", w.Name)
	p.field("size", "%d x %d (%s tiles, %s active)",
		w.Width, w.Height, humanize.Comma(int64(len(w.Tiles))), humanize.Comma(int64(w.ActiveTiles())))
	p.field("world id", "%d", w.WorldID)
	p.field("version", "%d (revision %d)", w.Version, w.Revision)
	p.field("seed", "%s", w.Seed)
	p.field("guid", "%s", w.GUID)
	p.field("data", "%s", humanize.Bytes(uint64(r.fileSize)))
	p.field("not decoded", "%s", sectionNames(w.NotYetDecoded))
	if p.tile != nil {
		p.field(fmt.Sprintf("tile %d,%d", p.tile[0], p.tile[1]), "%s", p.describeTile(w))
	}
}

func (p *printer) line(r result) {
	if r.err != nil {
		fmt.Fprintf(p.out, "%s\terror\t%v\n", r.name, r.err)
		return
	}
	w := r.world
	fields := []string{
		r.name,
		w.Name,
		fmt.Sprint(w.Width),
		fmt.Sprint(w.Height),
		fmt.Sprint(len(w.Tiles)),
		fmt.Sprint(w.ActiveTiles()),
		fmt.Sprint(w.WorldID),
		fmt.Sprint(w.Version),
		w.GUID.String(),
	}
	if p.tile != nil {
		fields = append(fields, p.describeTile(w))
	}
	fmt.Fprintln(p.out, strings.Join(fields, "\t"))
}

func (p *printer) describeTile(w *wld.World) string {
	t, ok := w.TileAt(p.tile[0], p.tile[1])
	switch {
	case !ok:
		return "outside world"
	case !t.IsActive:
		return "empty"
	}
	return fmt.Sprintf("block %d wall %d frame %d,%d liquid %d", t.TileID, t.WallID, t.U, t.V, t.Liquid)
}
