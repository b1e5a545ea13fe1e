package wld

import (
	"badc0de.net/pkg/go-terramap/bincursor"
)

// Tile is the state of one grid cell.
//
// An inactive tile (IsActive false) carries no block data: every other field
// is at its zero value.
type Tile struct {
	IsActive bool `json:"is_active"`

	TileID int32 `json:"tile_id"`
	WallID int32 `json:"wall_id"`
	Liquid int32 `json:"liquid"`

	IsActuated bool  `json:"is_actuated"`
	Color      int32 `json:"color"`
	WallColor  int32 `json:"wall_color"`

	U          int32 `json:"u"` // sprite sheet coordinates
	V          int32 `json:"v"`
	BrickStyle int32 `json:"brick_style"`
	Full       bool  `json:"full"`
	HalfBrick  bool  `json:"half_brick"`
	Slope      int32 `json:"slope"`

	WireRed    bool `json:"wire_red"`
	WireBlue   bool `json:"wire_blue"`
	WireGreen  bool `json:"wire_green"`
	WireYellow bool `json:"wire_yellow"`
	Actuator   bool `json:"actuator"`
	InActive   bool `json:"in_active"`

	WallU         int32 `json:"wall_u"`
	WallV         int32 `json:"wall_v"`
	WallFull      bool  `json:"wall_full"`
	WallHalfBrick bool  `json:"wall_half_brick"`
	WallSlope     int32 `json:"wall_slope"`
}

// Sizes of a tile record, in bytes. An active record is
// minActiveTileBytes plus 2 for liquid and 1 per present color.
const (
	inactiveTileBytes  = 1
	minActiveTileBytes = 30
	maxActiveTileBytes = minActiveTileBytes + 2 + 1 + 1
)

// tileReader reads the fields of one tile record. The first failing read is
// remembered, together with the name of the field, and turns all later reads
// into no-ops returning zero.
type tileReader struct {
	cur   *bincursor.Cursor
	err   error
	field string
}

func (r *tileReader) fail(field string, err error) {
	r.err = err
	r.field = field
}

func (r *tileReader) bool(field string) bool {
	if r.err != nil {
		return false
	}
	v, err := r.cur.ReadBool()
	if err != nil {
		r.fail(field, err)
	}
	return v
}

func (r *tileReader) u8(field string) int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.cur.ReadUint8()
	if err != nil {
		r.fail(field, err)
	}
	return int32(v)
}

func (r *tileReader) u16(field string) int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.cur.ReadUint16()
	if err != nil {
		r.fail(field, err)
	}
	return int32(v)
}

// readTile decodes one tile record.
//
// An inactive record is a single zero byte. An active record is, in order:
// tile and wall ids; optional liquid amount; actuated flag; optional block
// and wall paint; block frame, brick style, shape; four wires; actuator and
// inactive flags; wall frame and shape.
func readTile(cur *bincursor.Cursor) (Tile, string, error) {
	r := tileReader{cur: cur}

	if !r.bool("is_active") {
		return Tile{}, r.field, r.err
	}

	t := Tile{IsActive: true}
	t.TileID = r.u16("tile_id")
	t.WallID = r.u16("wall_id")

	if r.bool("has_liquid") {
		t.Liquid = r.u16("liquid")
	}

	t.IsActuated = r.bool("is_actuated")

	if r.bool("has_color") {
		t.Color = r.u8("color")
	}
	if r.bool("has_wall_color") {
		t.WallColor = r.u8("wall_color")
	}

	t.U = r.u16("u")
	t.V = r.u16("v")
	t.BrickStyle = r.u8("brick_style")
	t.Full = r.bool("full")
	t.HalfBrick = r.bool("half_brick")
	t.Slope = r.u8("slope")

	t.WireRed = r.bool("wire_red")
	t.WireBlue = r.bool("wire_blue")
	t.WireGreen = r.bool("wire_green")
	t.WireYellow = r.bool("wire_yellow")

	t.Actuator = r.bool("actuator")
	t.InActive = r.bool("in_active")

	t.WallU = r.u16("wall_u")
	t.WallV = r.u16("wall_v")
	t.WallFull = r.bool("wall_full")
	t.WallHalfBrick = r.bool("wall_half_brick")
	t.WallSlope = r.u8("wall_slope")

	if r.err != nil {
		return Tile{}, r.field, r.err
	}
	return t, "", nil
}
