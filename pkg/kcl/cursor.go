package kcl

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/Faultbox/kcltool/pkg/math"
)

// cursor is a bounds-checked big-endian reader over a byte buffer. The
// *At methods read from an absolute offset without moving the cursor, which
// the octree traversal relies on when chasing stored offsets.
type cursor struct {
	data []byte
	off  int
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

func (c *cursor) pos() int {
	return c.off
}

func (c *cursor) seek(off int) error {
	if off < 0 || off > len(c.data) {
		return fmt.Errorf("%w: seek to 0x%X in 0x%X bytes", ErrOffsetOutOfRange, off, len(c.data))
	}
	c.off = off
	return nil
}

func (c *cursor) remaining() int {
	return len(c.data) - c.off
}

func (c *cursor) u16() (uint16, error) {
	if c.remaining() < 2 {
		return 0, fmt.Errorf("%w: u16 at 0x%X", ErrTruncatedData, c.off)
	}
	v := binary.BigEndian.Uint16(c.data[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if c.remaining() < 4 {
		return 0, fmt.Errorf("%w: u32 at 0x%X", ErrTruncatedData, c.off)
	}
	v := binary.BigEndian.Uint32(c.data[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) f32() (float32, error) {
	v, err := c.u32()
	if err != nil {
		return 0, err
	}
	return gomath.Float32frombits(v), nil
}

func (c *cursor) vec3() (math.Vec3, error) {
	var v math.Vec3
	var err error
	if v.X, err = c.f32(); err != nil {
		return math.Vec3{}, err
	}
	if v.Y, err = c.f32(); err != nil {
		return math.Vec3{}, err
	}
	if v.Z, err = c.f32(); err != nil {
		return math.Vec3{}, err
	}
	return v, nil
}

func (c *cursor) u16At(off int) (uint16, error) {
	if off < 0 || off+2 > len(c.data) {
		return 0, fmt.Errorf("%w: u16 at 0x%X in 0x%X bytes", ErrOffsetOutOfRange, off, len(c.data))
	}
	return binary.BigEndian.Uint16(c.data[off:]), nil
}

func (c *cursor) u32At(off int) (uint32, error) {
	if off < 0 || off+4 > len(c.data) {
		return 0, fmt.Errorf("%w: u32 at 0x%X in 0x%X bytes", ErrOffsetOutOfRange, off, len(c.data))
	}
	return binary.BigEndian.Uint32(c.data[off:]), nil
}

// writer builds a big-endian byte buffer. Reserved slots can be backpatched
// once dependent offsets are known.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{}
}

func (w *writer) len() int {
	return len(w.buf)
}

func (w *writer) bytes() []byte {
	return w.buf
}

func (w *writer) u16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) f32(v float32) {
	w.u32(gomath.Float32bits(v))
}

func (w *writer) vec3(v math.Vec3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

// reserveU32 appends a zero placeholder and returns its offset for patchU32.
func (w *writer) reserveU32() int {
	off := len(w.buf)
	w.u32(0)
	return off
}

func (w *writer) patchU32(off int, v uint32) {
	binary.BigEndian.PutUint32(w.buf[off:], v)
}

// pad appends zero bytes until the buffer length is a multiple of align.
func (w *writer) pad(align int) {
	for len(w.buf)%align != 0 {
		w.buf = append(w.buf, 0)
	}
}
