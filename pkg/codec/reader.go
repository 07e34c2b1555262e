// Package codec implements the little-endian primitives shared by the world data containers.
package codec

import (
	"encoding/binary"
	stdmath "math"

	"github.com/Faultbox/erinn/pkg/encoding"
	"github.com/Faultbox/erinn/pkg/math"
)

// Color is a packed colour stored as A, R, G, B bytes.
type Color struct {
	A, R, G, B uint8
}

// ARGB returns the colour packed as 0xAARRGGBB.
func (c Color) ARGB() uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// ColorFromARGB unpacks 0xAARRGGBB.
func ColorFromARGB(v uint32) Color {
	return Color{A: uint8(v >> 24), R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// Reader is a cursor over a byte buffer.
// It holds no state beyond the buffer and offset.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Len returns the size of the underlying buffer.
func (r *Reader) Len() int { return len(r.data) }

func (r *Reader) take(n int, field string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, &FormatError{Field: field, Offset: r.off, Need: n, Have: r.Remaining()}
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Bytes reads n raw bytes. The returned slice aliases the buffer.
func (r *Reader) Bytes(n int, field string) ([]byte, error) {
	return r.take(n, field)
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int, field string) error {
	_, err := r.take(n, field)
	return err
}

// Uint8 reads one byte.
func (r *Reader) Uint8(field string) (uint8, error) {
	b, err := r.take(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool reads one byte; any non-zero value is true.
func (r *Reader) Bool(field string) (bool, error) {
	v, err := r.Uint8(field)
	return v != 0, err
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16(field string) (uint16, error) {
	b, err := r.take(2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Int16 reads a little-endian int16.
func (r *Reader) Int16(field string) (int16, error) {
	v, err := r.Uint16(field)
	return int16(v), err
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32(field string) (uint32, error) {
	b, err := r.take(4, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32(field string) (int32, error) {
	v, err := r.Uint32(field)
	return int32(v), err
}

// Float32 reads a little-endian IEEE-754 float.
func (r *Reader) Float32(field string) (float32, error) {
	v, err := r.Uint32(field)
	return stdmath.Float32frombits(v), err
}

// FixedString reads an n-byte null-padded string.
func (r *Reader) FixedString(n int, field string) (string, error) {
	b, err := r.take(n, field)
	if err != nil {
		return "", err
	}
	return encoding.TrimNullString(b), nil
}

// WString reads a uint16 code-unit count followed by UTF-16LE text.
func (r *Reader) WString(field string) (string, error) {
	start := r.off
	n, err := r.Uint16(field + " length")
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n)*2, field)
	if err != nil {
		r.off = start
		return "", err
	}
	return encoding.UTF16LEToString(b), nil
}

// Color reads a packed A, R, G, B colour.
func (r *Reader) Color(field string) (Color, error) {
	b, err := r.take(4, field)
	if err != nil {
		return Color{}, err
	}
	return Color{A: b[0], R: b[1], G: b[2], B: b[3]}, nil
}

// Vec3 reads three floats.
func (r *Reader) Vec3(field string) (math.Vec3, error) {
	b, err := r.take(12, field)
	if err != nil {
		return math.Vec3{}, err
	}
	return math.Vec3{
		X: stdmath.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		Y: stdmath.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		Z: stdmath.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}, nil
}

// Mat4 reads sixteen floats in column-major order.
func (r *Reader) Mat4(field string) (math.Mat4, error) {
	b, err := r.take(64, field)
	if err != nil {
		return math.Mat4{}, err
	}
	var m math.Mat4
	for i := range m {
		m[i] = stdmath.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return m, nil
}

// Malformed builds a FormatError for a value that decoded but is not acceptable.
func (r *Reader) Malformed(field, reason string) *FormatError {
	return &FormatError{Field: field, Offset: r.off, Reason: reason}
}
