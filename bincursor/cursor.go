// Package bincursor implements a bounds-checked sequential reader over an
// in-memory byte buffer.
//
// The cursor knows nothing about any particular file format. It only offers
// little-endian primitives, and guarantees that no read ever indexes past the
// end of the buffer: any read, skip or seek that would do so fails with an
// *OutOfBoundsError and leaves the position untouched.
package bincursor

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// OutOfBoundsError is returned when an operation would move the cursor past
// the end of the buffer (or, for Seek, before its start).
type OutOfBoundsError struct {
	Op       string // name of the failed operation, e.g. "ReadUint16"
	Position int    // cursor position when the operation was attempted
	Want     int    // bytes requested, or target offset for Seek
	Len      int    // total buffer length
}

func (e *OutOfBoundsError) Error() string {
	if e.Op == "Seek" {
		return fmt.Sprintf("bincursor: seek to %d out of bounds (len %d)", e.Want, e.Len)
	}
	return fmt.Sprintf("bincursor: %s of %d bytes at %d out of bounds (len %d)", e.Op, e.Want, e.Position, e.Len)
}

// Cursor reads primitives from a fixed buffer. The buffer is never modified.
//
// Invariant: 0 <= Position() <= Len().
type Cursor struct {
	buf []byte
	pos int
}

// New returns a cursor positioned at the start of buf.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Position returns the current read offset.
func (c *Cursor) Position() int {
	return c.pos
}

// Len returns the total length of the underlying buffer.
func (c *Cursor) Len() int {
	return len(c.buf)
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// HasMore reports whether at least one unread byte remains.
func (c *Cursor) HasMore() bool {
	return c.pos < len(c.buf)
}

// take returns the next n bytes without copying and advances past them.
func (c *Cursor) take(op string, n int) ([]byte, error) {
	if n < 0 || n > len(c.buf)-c.pos {
		return nil, &OutOfBoundsError{Op: op, Position: c.pos, Want: n, Len: len(c.buf)}
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.take("ReadUint8", 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadInt16() (int16, error) {
	b, err := c.take("ReadInt16", 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.take("ReadUint16", 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) ReadInt32() (int32, error) {
	b, err := c.take("ReadInt32", 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.take("ReadUint32", 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) ReadInt64() (int64, error) {
	b, err := c.take("ReadInt64", 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// ReadFloat32 decodes an IEEE-754 single precision value.
func (c *Cursor) ReadFloat32() (float32, error) {
	b, err := c.take("ReadFloat32", 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadFloat64 decodes an IEEE-754 double precision value.
func (c *Cursor) ReadFloat64() (float64, error) {
	b, err := c.take("ReadFloat64", 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadBool reads one byte; any nonzero value is true.
func (c *Cursor) ReadBool() (bool, error) {
	b, err := c.take("ReadBool", 1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// ReadBytes returns a copy of the next n bytes. n may be zero.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	b, err := c.take("ReadBytes", n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadString reads a uint32 length prefix followed by that many bytes of
// text.
//
// Ill-formed UTF-8 is replaced with U+FFFD rather than rejected; only a
// truncated buffer is an error.
func (c *Cursor) ReadString() (string, error) {
	start := c.pos
	sz, err := c.ReadUint32()
	if err != nil {
		return "", err
	}
	b, err := c.take("ReadString", int(sz))
	if err != nil {
		c.pos = start
		return "", err
	}
	return decodeText(b), nil
}

// decodeText turns raw bytes into valid UTF-8. The UTF-8 decoder replaces
// ill-formed sequences with U+FFFD and does not fail on them.
func decodeText(b []byte) string {
	out, _ := unicode.UTF8.NewDecoder().Bytes(b)
	return string(out)
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	_, err := c.take("Skip", n)
	return err
}

// Seek moves the cursor to an absolute offset in [0, Len()].
func (c *Cursor) Seek(offset int) error {
	if offset < 0 || offset > len(c.buf) {
		return &OutOfBoundsError{Op: "Seek", Position: c.pos, Want: offset, Len: len(c.buf)}
	}
	c.pos = offset
	return nil
}
