// Command wldinfo prints a summary of one or more world files.
//
//	wldinfo [-tile x,y] [-require_signature] file.wld [file2.wld.zst ...]
//
// Files are decoded concurrently. Without arguments, the world named by
// -world is used; its default is world.wld if one is found in the usual
// places.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"badc0de.net/pkg/go-terramap/paths"
	"badc0de.net/pkg/go-terramap/wld"
)

var (
	tileFlag         = flag.String("tile", "", "x,y of a tile to print for every world")
	maxDimension     = flag.Int("max_dimension", wld.DefaultMaxDimension, "largest accepted world width or height")
	requireSignature = flag.Bool("require_signature", false, "reject files without the world file signature")
	minVersion       = flag.Int("min_version", 0, "oldest accepted file format version; 0 accepts any")
	maxVersion       = flag.Int("max_version", 0, "newest accepted file format version; 0 accepts any")
	traceDecode      = flag.Bool("trace", false, "log decoder diagnostics at -v=2")
	jobs             = flag.Int("jobs", runtime.NumCPU(), "how many files to decode at once")

	worldPath string
)

func setupFilePathFlags() {
	paths.SetupFilePathFlag("world.wld", "world", &worldPath)
}

// result is the outcome of decoding one file.
type result struct {
	name     string
	fileSize int
	world    *wld.World
	err      error
}

func options() wld.Options {
	opts := wld.Options{
		MaxDimension:     *maxDimension,
		RequireSignature: *requireSignature,
		MinVersion:       int32(*minVersion),
		MaxVersion:       int32(*maxVersion),
	}
	if *traceDecode {
		opts.Tracer = wld.GlogTracer{Level: 2}
	}
	return opts
}

// decodeAll decodes every named file, at most limit at a time. Failures are
// recorded per file and do not stop the others.
func decodeAll(names []string, opts wld.Options, limit int) []result {
	results := make([]result, len(names))
	dec := wld.NewDecoder(opts)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			results[i].name = name
			buf, err := paths.ReadWorldFile(name)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].fileSize = len(buf)
			results[i].world, results[i].err = dec.Decode(buf)
			return nil
		})
	}
	g.Wait()
	return results
}

// parseTile parses "x,y".
func parseTile(s string) (x, y int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("tile %q: want x,y", s)
	}
	if x, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, errors.Wrapf(err, "tile %q: bad x", s)
	}
	if y, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return 0, 0, errors.Wrapf(err, "tile %q: bad y", s)
	}
	return x, y, nil
}

func main() {
	setupFilePathFlags()
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	names := flag.Args()
	if len(names) == 0 && worldPath != "" {
		names = []string{worldPath}
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "wldinfo: no world files given and none found")
		flag.Usage()
		os.Exit(2)
	}

	var tile *[2]int
	if *tileFlag != "" {
		x, y, err := parseTile(*tileFlag)
		if err != nil {
			glog.Exitf("%v", err)
		}
		tile = &[2]int{x, y}
	}

	results := decodeAll(names, options(), *jobs)
	p := &printer{out: os.Stdout, aligned: isTerminal(os.Stdout), tile: tile}
	p.print(results)

	failed := 0
	for _, r := range results {
		if r.err != nil {
			glog.Errorf("%s: %v", r.name, r.err)
			failed++
		}
	}
	glog.Flush()
	if failed > 0 {
		os.Exit(1)
	}
}
