package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/erinn/pkg/encoding"
	"github.com/Faultbox/erinn/pkg/math"
)

// Writer mirrors Reader. Every Reader method has a matching Put method.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// PutBytes appends raw bytes.
func (w *Writer) PutBytes(b []byte) { w.buf.Write(b) }

// PutUint8 appends one byte.
func (w *Writer) PutUint8(v uint8) { w.buf.WriteByte(v) }

// PutBool appends 1 or 0.
func (w *Writer) PutBool(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

// PutUint16 appends a little-endian uint16.
func (w *Writer) PutUint16(v uint16) {
	w.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

// PutInt16 appends a little-endian int16.
func (w *Writer) PutInt16(v int16) { w.PutUint16(uint16(v)) }

// PutUint32 appends a little-endian uint32.
func (w *Writer) PutUint32(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

// PutInt32 appends a little-endian int32.
func (w *Writer) PutInt32(v int32) { w.PutUint32(uint32(v)) }

// PutFloat32 appends a little-endian float.
func (w *Writer) PutFloat32(v float32) { w.PutUint32(stdmath.Float32bits(v)) }

// PutFixedString appends s null-padded to n bytes.
func (w *Writer) PutFixedString(s string, n int) {
	w.buf.Write(encoding.StringToFixed(s, n))
}

// PutWString appends a uint16 code-unit count and UTF-16LE text.
func (w *Writer) PutWString(s string) error {
	b, err := encoding.StringToUTF16LE(s)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", s, err)
	}
	if len(b)/2 > stdmath.MaxUint16 {
		return fmt.Errorf("string of %d code units exceeds wide string limit", len(b)/2)
	}
	w.PutUint16(uint16(len(b) / 2))
	w.buf.Write(b)
	return nil
}

// PutColor appends a packed A, R, G, B colour.
func (w *Writer) PutColor(c Color) {
	w.buf.Write([]byte{c.A, c.R, c.G, c.B})
}

// PutVec3 appends three floats.
func (w *Writer) PutVec3(v math.Vec3) {
	w.PutFloat32(v.X)
	w.PutFloat32(v.Y)
	w.PutFloat32(v.Z)
}

// PutMat4 appends sixteen floats in column-major order.
func (w *Writer) PutMat4(m math.Mat4) {
	for _, f := range m {
		w.PutFloat32(f)
	}
}
