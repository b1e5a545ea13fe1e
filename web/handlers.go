// Package web serves decoded world summaries and tiles over HTTP.
package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/net/trace"

	"badc0de.net/pkg/go-terramap/paths"
	"badc0de.net/pkg/go-terramap/wld"
)

// worldExtensions are the file names served under /worlds, without the
// extension in the URL.
var worldExtensions = []string{".wld", ".wld.zst", ".wld.gz"}

type Handler struct {
	dir     string
	decoder *wld.Decoder
	// decode is decoder.Decode; tests replace it.
	decode func([]byte) (*wld.World, error)

	worldsLock sync.Mutex
	worlds     map[string]*entry
}

// entry is a decoded world file, valid while the file's size and
// modification time are unchanged.
type entry struct {
	world       *wld.World
	etag        string
	compression paths.Compression
	fileSize    int64
	decodedSize int
	modTime     time.Time
}

// NewHandler constructs a web handler serving the world files found in dir,
// decoded with opts.
func NewHandler(dir string, opts wld.Options) *Handler {
	h := &Handler{
		dir:     dir,
		decoder: wld.NewDecoder(opts),
		worlds:  make(map[string]*entry),
	}
	h.decode = h.decoder.Decode
	return h
}

// Summary is the JSON form of a decoded world, without its tiles.
type Summary struct {
	*wld.World

	TileCount   int    `json:"tile_count"`
	ActiveTiles int    `json:"active_tiles"`
	Compression string `json:"compression"`
	FileSize    int64  `json:"file_size"`
	DecodedSize int    `json:"decoded_size"`
	// HumanSize is FileSize for people.
	HumanSize string `json:"human_size"`
}

func summarize(w *wld.World, c paths.Compression, fileSize int64, decodedSize int) *Summary {
	return &Summary{
		World:       w,
		TileCount:   len(w.Tiles),
		ActiveTiles: w.ActiveTiles(),
		Compression: c.String(),
		FileSize:    fileSize,
		DecodedSize: decodedSize,
		HumanSize:   humanize.Bytes(uint64(fileSize)),
	}
}

// ListEntry describes one world file in the served directory.
type ListEntry struct {
	Name      string    `json:"name"`
	File      string    `json:"file"`
	Size      int64     `json:"size"`
	HumanSize string    `json:"human_size"`
	Modified  time.Time `json:"modified"`
}

// TileResponse is the JSON form of one tile.
type TileResponse struct {
	X    int       `json:"x"`
	Y    int       `json:"y"`
	Tile *wld.Tile `json:"tile"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("web: writing response: %v", err)
	}
}

// writeError maps err to a status code. Decode failures of any kind are the
// client's data being unusable and come back as 422.
func writeError(w http.ResponseWriter, tr trace.Trace, err error) {
	tr.LazyPrintf("error: %v", err)
	tr.SetError()

	if kind, ok := wld.KindOf(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: kind.String()})
		return
	}
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "world not found"})
		return
	}
	glog.Errorf("web: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// worldPath finds the file for a world name in h.dir.
func (h *Handler) worldPath(name string) (string, os.FileInfo, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", nil, errors.Wrapf(os.ErrNotExist, "bad world name %q", name)
	}
	for _, ext := range worldExtensions {
		path := filepath.Join(h.dir, name+ext)
		if st, err := os.Stat(path); err == nil && st.Mode().IsRegular() {
			return path, st, nil
		}
	}
	return "", nil, errors.Wrapf(os.ErrNotExist, "world %q in %s", name, h.dir)
}

// load returns the decoded world for name, decoding it again only when the
// file changed since the last request.
func (h *Handler) load(tr trace.Trace, name string) (*entry, error) {
	path, st, err := h.worldPath(name)
	if err != nil {
		return nil, err
	}

	h.worldsLock.Lock()
	e, ok := h.worlds[name]
	h.worldsLock.Unlock()
	if ok && e.fileSize == st.Size() && e.modTime.Equal(st.ModTime()) {
		tr.LazyPrintf("cache hit for %s", path)
		return e, nil
	}

	// Decoding runs unlocked; two requests for the same changed file may both
	// decode it, and the later one is kept.
	tr.LazyPrintf("decoding %s (%d bytes)", path, st.Size())
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	buf, err := paths.Decompress(path, raw)
	if err != nil {
		return nil, err
	}
	world, err := h.decode(buf)
	if err != nil {
		return nil, err
	}

	sum := blake2b.Sum256(raw)
	e = &entry{
		world:       world,
		etag:        fmt.Sprintf(`W/"wld:%x"`, sum[:16]),
		compression: paths.DetectCompression(path, raw),
		fileSize:    st.Size(),
		decodedSize: len(buf),
		modTime:     st.ModTime(),
	}
	h.worldsLock.Lock()
	h.worlds[name] = e
	h.worldsLock.Unlock()
	glog.V(1).Infof("web: decoded %s: %v", path, world)
	return e, nil
}

// notModified answers a conditional request and reports whether it did.
func notModified(w http.ResponseWriter, r *http.Request, e *entry) bool {
	w.Header().Set("ETag", e.etag)
	w.Header().Set("Last-Modified", e.modTime.UTC().Format(http.TimeFormat))
	if r.Header.Get("If-None-Match") == e.etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func (h *Handler) listHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("terramap.web", r.URL.Path)
	defer tr.Finish()

	files, err := os.ReadDir(h.dir)
	if err != nil {
		writeError(w, tr, errors.Wrapf(err, "listing %s", h.dir))
		return
	}

	list := []ListEntry{}
	for _, f := range files {
		if !f.Type().IsRegular() {
			continue
		}
		for _, ext := range worldExtensions {
			if !strings.HasSuffix(f.Name(), ext) {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			list = append(list, ListEntry{
				Name:      strings.TrimSuffix(f.Name(), ext),
				File:      f.Name(),
				Size:      info.Size(),
				HumanSize: humanize.Bytes(uint64(info.Size())),
				Modified:  info.ModTime().UTC(),
			})
			break
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].File < list[j].File })
	tr.LazyPrintf("%d world files", len(list))
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) worldHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("terramap.web", r.URL.Path)
	defer tr.Finish()

	e, err := h.load(tr, mux.Vars(r)["name"])
	if err != nil {
		writeError(w, tr, err)
		return
	}
	if notModified(w, r, e) {
		return
	}
	writeJSON(w, http.StatusOK, summarize(e.world, e.compression, e.fileSize, e.decodedSize))
}

func (h *Handler) tileHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("terramap.web", r.URL.Path)
	defer tr.Finish()

	vars := mux.Vars(r)
	x, errX := strconv.Atoi(vars["x"])
	y, errY := strconv.Atoi(vars["y"])
	if errX != nil || errY != nil {
		http.Error(w, "x and y must be numbers", http.StatusBadRequest)
		return
	}

	e, err := h.load(tr, vars["name"])
	if err != nil {
		writeError(w, tr, err)
		return
	}
	tile, ok := e.world.TileAt(x, y)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error: fmt.Sprintf("tile %d,%d outside %dx%d world", x, y, e.world.Width, e.world.Height),
		})
		return
	}
	if notModified(w, r, e) {
		return
	}
	writeJSON(w, http.StatusOK, TileResponse{X: x, Y: y, Tile: tile})
}

// decodeHandler decodes an uploaded world file without storing it.
func (h *Handler) decodeHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("terramap.web", r.URL.Path)
	defer tr.Finish()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, paths.MaxWorldFileSize))
	if err != nil {
		http.Error(w, "request body too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}
	tr.LazyPrintf("decoding %d uploaded bytes", len(raw))

	buf, err := paths.Decompress("", raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	world, err := h.decode(buf)
	if err != nil {
		writeError(w, tr, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(world, paths.DetectCompression("", raw), int64(len(raw)), len(buf)))
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/worlds", h.listHandler).Methods(http.MethodGet)
	r.HandleFunc("/worlds/{name}", h.worldHandler).Methods(http.MethodGet)
	r.HandleFunc("/worlds/{name}/tiles/{x:[0-9]+}/{y:[0-9]+}", h.tileHandler).Methods(http.MethodGet)
	r.HandleFunc("/decode", h.decodeHandler).Methods(http.MethodPost)
}
