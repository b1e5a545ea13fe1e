// Package wld decodes tile-grid world save files (.wld) into an in-memory
// World.
//
// Decoding is a single synchronous pass over a byte buffer, in a fixed order
// of stages: file format header, world header, dimension validation, tile
// grid. The first problem aborts the whole decode with a *DecodeError; no
// partially decoded World is ever returned.
//
// Only the tile grid is decoded. The file also carries chests, NPCs, signs
// and tile entities, but those sections are not read yet: the corresponding
// World fields are always empty, and World.NotYetDecoded lists them.
package wld

import (
	"fmt"

	"github.com/google/uuid"
)

// World is one decoded save file. It is built in one Decode call and must be
// treated as read-only afterwards.
type World struct {
	Name    string    `json:"name"`
	Width   int32     `json:"width"`
	Height  int32     `json:"height"`
	WorldID int32     `json:"world_id"`
	Version int32     `json:"version"`
	Seed    string    `json:"seed"`
	GUID    uuid.UUID `json:"guid"` // bytes in the order they are stored in the file

	Revision uint32 `json:"revision"`

	// Tiles holds Width*Height cells in row-major order; see Index.
	Tiles []Tile `json:"-"`

	Chests       []Chest      `json:"chests"`
	NPCs         []NPC        `json:"npcs"`
	Signs        []Sign       `json:"signs"`
	TileEntities []TileEntity `json:"tile_entities"`

	// NotYetDecoded lists sections present in the file format that the
	// decoder skipped. Their collections above are empty.
	NotYetDecoded []Section `json:"not_yet_decoded"`
}

func (w *World) String() string {
	return fmt.Sprintf("<world %q (id %d) %dx%d>", w.Name, w.WorldID, w.Width, w.Height)
}

// Index returns the offset of cell (x, y) in Tiles, or -1 if it lies outside
// the world.
func (w *World) Index(x, y int) int {
	if x < 0 || y < 0 || x >= int(w.Width) || y >= int(w.Height) {
		return -1
	}
	return y*int(w.Width) + x
}

// TileAt returns the tile at (x, y).
func (w *World) TileAt(x, y int) (*Tile, bool) {
	idx := w.Index(x, y)
	if idx < 0 || idx >= len(w.Tiles) {
		return nil, false
	}
	return &w.Tiles[idx], true
}

// ActiveTiles counts cells that hold a block.
func (w *World) ActiveTiles() int {
	n := 0
	for i := range w.Tiles {
		if w.Tiles[i].IsActive {
			n++
		}
	}
	return n
}

// Section names a part of the file format outside the tile grid.
type Section uint8

const (
	SectionChests       Section = 1
	SectionNPCs         Section = 2
	SectionSigns        Section = 3
	SectionTileEntities Section = 4
)

// undecodedSections are skipped by every decode.
// TODO: drop entries from here as each section gets a reader.
var undecodedSections = []Section{SectionChests, SectionNPCs, SectionSigns, SectionTileEntities}

func (s Section) String() string {
	switch s {
	case SectionChests:
		return "chests"
	case SectionNPCs:
		return "npcs"
	case SectionSigns:
		return "signs"
	case SectionTileEntities:
		return "tile_entities"
	default:
		return fmt.Sprintf("unknown section %d", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Section) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ChestItem is one stack inside a chest.
type ChestItem struct {
	ID     int32 `json:"id"`
	Stack  int32 `json:"stack"`
	Prefix int32 `json:"prefix"`
}

// Chest is a container placed at a tile position.
type Chest struct {
	X     int32       `json:"x"`
	Y     int32       `json:"y"`
	Name  string      `json:"name"`
	Items []ChestItem `json:"items"`
}

// NPC is a town or world NPC.
type NPC struct {
	ID         int32   `json:"id"`
	Name       string  `json:"name"`
	SpriteID   int32   `json:"sprite_id"`
	PositionX  float32 `json:"position_x"`
	PositionY  float32 `json:"position_y"`
	HomeX      int32   `json:"home_x"`
	HomeY      int32   `json:"home_y"`
	Direction  int32   `json:"direction"`
	IsHomeless bool    `json:"is_homeless"`
}

// Sign is a piece of text attached to a tile position.
type Sign struct {
	X    int32  `json:"x"`
	Y    int32  `json:"y"`
	Text string `json:"text"`
}

// TileEntity is an entity bound to a tile (mannequins, item frames and the
// like).
type TileEntity struct {
	ID         int32 `json:"id"`
	PositionX  int32 `json:"position_x"`
	PositionY  int32 `json:"position_y"`
	EntityType int32 `json:"entity_type"`
}
