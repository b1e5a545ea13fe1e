// Package wldtest builds synthetic world files for tests.
//
// The encoder writes exactly the grammar package wld reads, so anything it
// produces decodes back to the same values. It is not a general purpose
// writer for real save files.
package wldtest

import (
	"bytes"
	"encoding/binary"
	"math/rand"

	"badc0de.net/pkg/go-terramap/wld"
)

// Signature is the "relogic" magic plus the world file type byte.
var Signature = [8]byte{'r', 'e', 'l', 'o', 'g', 'i', 'c', 2}

// Header describes everything written before the tile grid.
type Header struct {
	Version   int32
	Signature [8]byte
	Revision  uint32
	Favorite  uint64

	SectionOffsets []int32

	// ImportanceLength is the number of bits in the importance bitmap.
	// Importance supplies the bitmap bytes; it is zero-padded or cut to
	// exactly (ImportanceLength+7)/8 bytes.
	ImportanceLength int16
	Importance       []byte

	Name             string
	Seed             string
	GeneratorVersion uint64
	GUID             [16]byte
	WorldID          int32
	Bounds           [4]int32
	Width, Height    int32
	GameMode         int32
}

// NewHeader returns a plausible header for a world of the given size.
func NewHeader(name string, width, height int32) Header {
	return Header{
		Version:          279,
		Signature:        Signature,
		Revision:         1,
		SectionOffsets:   []int32{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		ImportanceLength: 693,
		Name:             name,
		Seed:             "05162020",
		GeneratorVersion: 1,
		GUID:             [16]byte{0xde, 0xad, 0xbe, 0xef, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		WorldID:          1234,
		Bounds:           [4]int32{0, width * 16, 0, height * 16},
		Width:            width,
		Height:           height,
	}
}

// HeaderFor returns a header carrying w's metadata.
func HeaderFor(w *wld.World) Header {
	h := NewHeader(w.Name, w.Width, w.Height)
	h.Version = w.Version
	h.Revision = w.Revision
	h.Seed = w.Seed
	h.GUID = w.GUID
	h.WorldID = w.WorldID
	return h
}

type writer struct {
	bytes.Buffer
}

func (w *writer) put(v interface{}) {
	// Writes into a bytes.Buffer only fail for unsupported types.
	if err := binary.Write(&w.Buffer, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func (w *writer) putString(s string) {
	w.put(uint32(len(s)))
	w.WriteString(s)
}

func (w *writer) putBool(b bool) {
	if b {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

// FileFormatHeader encodes only the file format header.
func FileFormatHeader(h Header) []byte {
	w := &writer{}
	w.fileFormatHeader(h)
	return w.Bytes()
}

// WorldHeader encodes only the world header.
func WorldHeader(h Header) []byte {
	w := &writer{}
	w.worldHeader(h)
	return w.Bytes()
}

func (w *writer) fileFormatHeader(h Header) {
	w.put(h.Version)
	w.Write(h.Signature[:])
	w.put(h.Revision)
	w.put(h.Favorite)
	w.put(int16(len(h.SectionOffsets)))
	w.put(h.SectionOffsets)
	w.put(h.ImportanceLength)
	bitmap := make([]byte, (int(h.ImportanceLength)+7)/8)
	copy(bitmap, h.Importance)
	w.Write(bitmap)
}

func (w *writer) worldHeader(h Header) {
	w.putString(h.Name)
	w.putString(h.Seed)
	w.put(h.GeneratorVersion)
	w.Write(h.GUID[:])
	w.put(h.WorldID)
	w.put(h.Bounds)
	w.put(h.Height)
	w.put(h.Width)
	w.put(h.GameMode)
}

// Tile encodes one tile record. Liquid and paint are written only when
// nonzero, which is how the decoder reads them back.
func Tile(t wld.Tile) []byte {
	w := &writer{}
	w.tile(t)
	return w.Bytes()
}

func (w *writer) tile(t wld.Tile) {
	if !t.IsActive {
		w.WriteByte(0)
		return
	}
	w.WriteByte(1)
	w.put(uint16(t.TileID))
	w.put(uint16(t.WallID))
	w.putBool(t.Liquid != 0)
	if t.Liquid != 0 {
		w.put(uint16(t.Liquid))
	}
	w.putBool(t.IsActuated)
	w.putBool(t.Color != 0)
	if t.Color != 0 {
		w.WriteByte(uint8(t.Color))
	}
	w.putBool(t.WallColor != 0)
	if t.WallColor != 0 {
		w.WriteByte(uint8(t.WallColor))
	}
	w.put(uint16(t.U))
	w.put(uint16(t.V))
	w.WriteByte(uint8(t.BrickStyle))
	w.putBool(t.Full)
	w.putBool(t.HalfBrick)
	w.WriteByte(uint8(t.Slope))
	w.putBool(t.WireRed)
	w.putBool(t.WireBlue)
	w.putBool(t.WireGreen)
	w.putBool(t.WireYellow)
	w.putBool(t.Actuator)
	w.putBool(t.InActive)
	w.put(uint16(t.WallU))
	w.put(uint16(t.WallV))
	w.putBool(t.WallFull)
	w.putBool(t.WallHalfBrick)
	w.WriteByte(uint8(t.WallSlope))
}

// Encode writes a complete world file: headers followed by tiles, in
// row-major order. len(tiles) is not checked against the header.
func Encode(h Header, tiles []wld.Tile) []byte {
	w := &writer{}
	w.fileFormatHeader(h)
	w.worldHeader(h)
	for _, t := range tiles {
		w.tile(t)
	}
	return w.Bytes()
}

// EncodeWorld writes w's metadata and tiles.
func EncodeWorld(w *wld.World) []byte {
	return Encode(HeaderFor(w), w.Tiles)
}

// RandomTile returns an active tile with every field set to a random value
// that survives encoding.
func RandomTile(rng *rand.Rand) wld.Tile {
	u16 := func() int32 { return int32(rng.Intn(1 << 16)) }
	u8 := func() int32 { return int32(rng.Intn(1 << 8)) }
	flag := func() bool { return rng.Intn(2) == 1 }
	maybe := func(v int32) int32 {
		if flag() {
			return v
		}
		return 0
	}

	return wld.Tile{
		IsActive:      true,
		TileID:        u16(),
		WallID:        u16(),
		Liquid:        maybe(u16()),
		IsActuated:    flag(),
		Color:         maybe(u8()),
		WallColor:     maybe(u8()),
		U:             u16(),
		V:             u16(),
		BrickStyle:    u8(),
		Full:          flag(),
		HalfBrick:     flag(),
		Slope:         u8(),
		WireRed:       flag(),
		WireBlue:      flag(),
		WireGreen:     flag(),
		WireYellow:    flag(),
		Actuator:      flag(),
		InActive:      flag(),
		WallU:         u16(),
		WallV:         u16(),
		WallFull:      flag(),
		WallHalfBrick: flag(),
		WallSlope:     u8(),
	}
}

// RandomWorld returns a world of the given size where roughly one tile in
// three is active.
func RandomWorld(rng *rand.Rand, name string, width, height int32) *wld.World {
	h := NewHeader(name, width, height)
	w := &wld.World{
		Name:     name,
		Width:    width,
		Height:   height,
		WorldID:  h.WorldID,
		Version:  h.Version,
		Revision: h.Revision,
		Seed:     h.Seed,
		GUID:     h.GUID,
		Tiles:    make([]wld.Tile, int(width)*int(height)),
	}
	for i := range w.Tiles {
		if rng.Intn(3) == 0 {
			w.Tiles[i] = RandomTile(rng)
		}
	}
	return w
}
