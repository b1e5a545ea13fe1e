package wld

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-terramap/bincursor"
)

// Stage is one phase of decoding. Stages run strictly in declaration order.
type Stage uint8

const (
	StageStart Stage = iota
	StageFileFormatHeader
	StageWorldHeader
	StageDimensionValidation
	StageTileGrid
	StageAssemble
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageFileFormatHeader:
		return "file format header"
	case StageWorldHeader:
		return "world header"
	case StageDimensionValidation:
		return "dimension validation"
	case StageTileGrid:
		return "tile grid"
	case StageAssemble:
		return "assemble"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("unknown stage %d", int(s))
	}
}

// worldSignature is what RequireSignature expects in the two metadata words:
// the "relogic" magic followed by the file type byte for worlds.
var worldSignature = [8]byte{'r', 'e', 'l', 'o', 'g', 'i', 'c', 2}

type fileFormatHeader struct {
	Version   int32
	Signature [2]uint32
	Revision  uint32
	Favorite  [2]uint32

	// SectionOffsets point at sections this decoder does not parse. They are
	// only kept for tracing.
	SectionOffsets   []int32
	ImportanceLength int16
}

type worldHeader struct {
	Name             string
	Seed             string
	GeneratorVersion [2]uint32
	GUID             uuid.UUID
	WorldID          int32
	Width, Height    int32
}

// Decoder turns world file buffers into Worlds. A Decoder holds no per-decode
// state; it is safe to use from several goroutines at once.
type Decoder struct {
	opts Options
}

// NewDecoder returns a decoder configured by opts.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts.withDefaults()}
}

// Decode decodes buf with the given options. See Decoder.Decode.
func Decode(buf []byte, opts Options) (*World, error) {
	return NewDecoder(opts).Decode(buf)
}

// DecodeReader reads r to the end and decodes the result. Errors from r are
// wrapped and returned as-is; everything else is a *DecodeError.
func DecodeReader(r io.Reader, opts Options) (*World, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading world data")
	}
	return Decode(buf, opts)
}

// Decode decodes a complete world file. On failure it returns a *DecodeError
// and no World.
func (d *Decoder) Decode(buf []byte) (*World, error) {
	r := &decodeRun{opts: d.opts}
	w, err := r.run(buf)
	if err != nil {
		r.opts.Tracer.Tracef("wld: decode failed: %v", err)
		return nil, err
	}
	return w, nil
}

// decodeRun is the state of one Decode call.
type decodeRun struct {
	opts  Options
	cur   *bincursor.Cursor
	stage Stage
}

func (r *decodeRun) enter(s Stage) {
	r.stage = s
	r.opts.Tracer.Tracef("wld: entering %s at offset %d", s, r.cur.Position())
}

func (r *decodeRun) truncated(field string, err error) error {
	return truncated(r.stage, r.cur.Position(), field, err)
}

func (r *decodeRun) run(buf []byte) (*World, error) {
	if len(buf) == 0 {
		return nil, invalidData(StageStart, "empty input")
	}
	r.cur = bincursor.New(buf)

	r.enter(StageFileFormatHeader)
	ffh, err := r.readFileFormatHeader()
	if err != nil {
		return nil, err
	}

	r.enter(StageWorldHeader)
	wh, err := r.readWorldHeader()
	if err != nil {
		return nil, err
	}

	r.enter(StageDimensionValidation)
	count, err := r.validateDimensions(wh.Width, wh.Height)
	if err != nil {
		return nil, err
	}

	r.enter(StageTileGrid)
	tiles, err := r.readTileGrid(count)
	if err != nil {
		return nil, err
	}

	r.enter(StageAssemble)
	w, err := r.assemble(ffh, wh, tiles, count)
	if err != nil {
		return nil, err
	}

	r.enter(StageDone)
	if r.cur.HasMore() {
		r.opts.Tracer.Tracef("wld: %d trailing bytes left unread", r.cur.Remaining())
	}
	return w, nil
}

func (r *decodeRun) readFileFormatHeader() (*fileFormatHeader, error) {
	h := &fileFormatHeader{}
	var err error

	if h.Version, err = r.cur.ReadInt32(); err != nil {
		return nil, r.truncated("version", err)
	}
	if err := r.checkVersion(h.Version); err != nil {
		return nil, err
	}

	for i := range h.Signature {
		if h.Signature[i], err = r.cur.ReadUint32(); err != nil {
			return nil, r.truncated("metadata", err)
		}
	}
	if r.opts.RequireSignature {
		if err := checkSignature(h.Signature); err != nil {
			return nil, err
		}
	}

	if h.Revision, err = r.cur.ReadUint32(); err != nil {
		return nil, r.truncated("revision", err)
	}
	for i := range h.Favorite {
		if h.Favorite[i], err = r.cur.ReadUint32(); err != nil {
			return nil, r.truncated("favorite flags", err)
		}
	}

	positionsLength, err := r.cur.ReadInt16()
	if err != nil {
		return nil, r.truncated("section count", err)
	}
	if positionsLength < 0 {
		return nil, invalidData(r.stage, "negative section count %d", positionsLength)
	}
	h.SectionOffsets = make([]int32, positionsLength)
	for i := range h.SectionOffsets {
		if h.SectionOffsets[i], err = r.cur.ReadInt32(); err != nil {
			return nil, r.truncated(fmt.Sprintf("offset of section %d", i), err)
		}
	}

	if h.ImportanceLength, err = r.cur.ReadInt16(); err != nil {
		return nil, r.truncated("importance count", err)
	}
	if h.ImportanceLength < 0 {
		return nil, invalidData(r.stage, "negative importance count %d", h.ImportanceLength)
	}
	// One bit per tile type, LSB first. The bits are not used; only the
	// byte count matters.
	if err := r.cur.Skip(importanceBytes(h.ImportanceLength)); err != nil {
		return nil, r.truncated("importance bitmap", err)
	}

	r.opts.Tracer.Tracef("wld: format version %d revision %d, %d section offsets %v, %d importance bits",
		h.Version, h.Revision, len(h.SectionOffsets), h.SectionOffsets, h.ImportanceLength)
	return h, nil
}

// importanceBytes is the size of a bitmap holding n bits.
func importanceBytes(n int16) int {
	return (int(n) + 7) / 8
}

func (r *decodeRun) checkVersion(v int32) error {
	if (r.opts.MinVersion != 0 && v < r.opts.MinVersion) || (r.opts.MaxVersion != 0 && v > r.opts.MaxVersion) {
		return &DecodeError{Kind: UnsupportedVersion, Stage: r.stage, Version: v}
	}
	return nil
}

func checkSignature(words [2]uint32) error {
	var got [8]byte
	binary.LittleEndian.PutUint32(got[0:4], words[0])
	binary.LittleEndian.PutUint32(got[4:8], words[1])
	if got != worldSignature {
		return &DecodeError{
			Kind:     InvalidFormat,
			Stage:    StageFileFormatHeader,
			Expected: formatSignature(worldSignature),
			Found:    formatSignature(got),
		}
	}
	return nil
}

func formatSignature(b [8]byte) string {
	return fmt.Sprintf("%q type %d", string(b[:7]), b[7])
}

func (r *decodeRun) readWorldHeader() (*worldHeader, error) {
	h := &worldHeader{}
	var err error

	if h.Name, err = r.cur.ReadString(); err != nil {
		return nil, r.truncated("world name", err)
	}
	if h.Seed, err = r.cur.ReadString(); err != nil {
		return nil, r.truncated("seed", err)
	}
	for i := range h.GeneratorVersion {
		if h.GeneratorVersion[i], err = r.cur.ReadUint32(); err != nil {
			return nil, r.truncated("generator version", err)
		}
	}

	guid, err := r.cur.ReadBytes(16)
	if err != nil {
		return nil, r.truncated("guid", err)
	}
	copy(h.GUID[:], guid)

	if h.WorldID, err = r.cur.ReadInt32(); err != nil {
		return nil, r.truncated("world id", err)
	}

	// Left, right, top and bottom bounds in world pixels; not modeled.
	var bounds [4]int32
	for i := range bounds {
		if bounds[i], err = r.cur.ReadInt32(); err != nil {
			return nil, r.truncated("world bounds", err)
		}
	}

	if h.Height, err = r.cur.ReadInt32(); err != nil {
		return nil, r.truncated("height", err)
	}
	if h.Width, err = r.cur.ReadInt32(); err != nil {
		return nil, r.truncated("width", err)
	}

	gameMode, err := r.cur.ReadInt32()
	if err != nil {
		return nil, r.truncated("game mode", err)
	}

	r.opts.Tracer.Tracef("wld: world %q (id %d, seed %q, guid %s) %dx%d, bounds %v, game mode %d",
		h.Name, h.WorldID, h.Seed, h.GUID, h.Width, h.Height, bounds, gameMode)
	return h, nil
}

// validateDimensions checks declared dimensions before anything is allocated
// for the grid, and returns the expected tile count.
func (r *decodeRun) validateDimensions(width, height int32) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, invalidData(r.stage, "non-positive dimensions %dx%d", width, height)
	}
	limit := int64(r.opts.MaxDimension)
	if int64(width) > limit || int64(height) > limit {
		return 0, invalidData(r.stage, "dimensions %dx%d exceed limit %d", width, height, limit)
	}

	count := int64(width) * int64(height)
	remaining := int64(r.cur.Remaining())
	if need := count * int64(r.opts.MinTileBytes); remaining < need {
		return 0, corrupted(r.stage, r.cur.Position(), "%d bytes left, tile grid of %d tiles needs at least %d", remaining, count, need)
	}
	return int(count), nil
}

func (r *decodeRun) readTileGrid(count int) ([]Tile, error) {
	tiles := make([]Tile, count)
	interval := r.opts.RecheckInterval

	for i := 0; i < count; i++ {
		if interval > 0 && i > 0 && i%interval == 0 {
			left := count - i
			if r.cur.Remaining() < left {
				return nil, corrupted(r.stage, r.cur.Position(), "%d bytes left for %d remaining tiles", r.cur.Remaining(), left)
			}
			r.opts.Tracer.Tracef("wld: %d/%d tiles decoded, offset %d", i, count, r.cur.Position())
		}

		t, field, err := readTile(r.cur)
		if err != nil {
			return nil, r.truncated(fmt.Sprintf("%s of tile %d", field, i), err)
		}
		tiles[i] = t
	}
	return tiles, nil
}

func (r *decodeRun) assemble(ffh *fileFormatHeader, wh *worldHeader, tiles []Tile, count int) (*World, error) {
	if len(tiles) != count {
		return nil, corrupted(r.stage, r.cur.Position(), "decoded %d tiles, want %d", len(tiles), count)
	}

	w := &World{
		Name:     wh.Name,
		Width:    wh.Width,
		Height:   wh.Height,
		WorldID:  wh.WorldID,
		Version:  ffh.Version,
		Revision: ffh.Revision,
		Seed:     wh.Seed,
		GUID:     wh.GUID,
		Tiles:    tiles,

		Chests:       []Chest{},
		NPCs:         []NPC{},
		Signs:        []Sign{},
		TileEntities: []TileEntity{},
	}
	w.NotYetDecoded = append([]Section(nil), undecodedSections...)
	return w, nil
}
