// Package paths locates world files on disk (or over HTTP) and reads them,
// undoing any compression applied to backups.
package paths

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// compressedSuffixes are tried after the plain name, in order.
var compressedSuffixes = []string{".zst", ".gz"}

// SearchDirs returns the directories Find looks in, most specific first:
// the -world_dir flag, each entry of $TERRAMAP_WORLDS, the game's usual save
// locations in the home directory, and the working directory.
func SearchDirs() []string {
	var dirs []string
	if *worldDir != "" {
		dirs = append(dirs, *worldDir)
	}
	if env := os.Getenv("TERRAMAP_WORLDS"); env != "" {
		for _, d := range filepath.SplitList(env) {
			if d != "" {
				dirs = append(dirs, d)
			}
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, ".local", "share", "Terraria", "Worlds"),
			filepath.Join(home, "Documents", "My Games", "Terraria", "Worlds"),
			filepath.Join(home, "Library", "Application Support", "Terraria", "Worlds"),
		)
	}
	return append(dirs, ".")
}

// possiblePaths lists every candidate for fileName, in search order.
func possiblePaths(fileName string) []string {
	names := []string{fileName}
	for _, suffix := range compressedSuffixes {
		if !strings.HasSuffix(fileName, suffix) {
			names = append(names, fileName+suffix)
		}
	}

	if filepath.IsAbs(fileName) || strings.ContainsRune(fileName, filepath.Separator) {
		return names
	}

	var paths []string
	for _, dir := range SearchDirs() {
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

// Find locates the passed world file and returns a path it can be opened at,
// or an empty string if it is nowhere to be found.
//
// Absolute names and names with a directory part are only checked as given;
// bare names are looked up in SearchDirs. A compressed backup (name.zst or
// name.gz) is returned when the plain file is missing.
func Find(fileName string) string {
	if isURL(fileName) {
		return fileName
	}
	for _, path := range possiblePaths(fileName) {
		if st, err := os.Stat(path); err == nil && st.Mode().IsRegular() {
			glog.V(2).Infof("paths.Find(%q)=%s", fileName, path)
			return path
		}
	}
	glog.V(2).Infof("paths.Find(%q): not found", fileName)
	return ""
}

// Open locates the passed file in the same locations that Find would look, and
// opens it. Names starting with http:// or https:// are fetched instead.
//
// The returned reader yields the bytes as stored; see ReadWorldFile for
// decompression.
func Open(fileName string) (io.ReadCloser, error) {
	if isURL(fileName) {
		return openHTTP(fileName)
	}
	path := Find(fileName)
	if path == "" {
		return nil, errors.Wrapf(os.ErrNotExist, "paths.Open(%q): not found in %v", fileName, SearchDirs())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "paths.Open(%q)", fileName)
	}
	return f, nil
}

func isURL(fileName string) bool {
	return strings.HasPrefix(fileName, "http://") || strings.HasPrefix(fileName, "https://")
}
