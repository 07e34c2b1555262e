package formats

import (
	"errors"
	"fmt"

	"github.com/Faultbox/erinn/pkg/codec"
)

// ErrInvalidPaletteMagic is returned when a palette does not start with 'PLT\x00'.
var ErrInvalidPaletteMagic = errors.New("invalid palette magic: expected 'PLT\\x00'")

const paletteMagic = "PLT\x00"

// Palette is the prop colour grid; props pick colours from it by index.
type Palette struct {
	Width  int
	Height int
	Colors []codec.Color // row-major
}

// At returns the colour at (x, y).
func (p *Palette) At(x, y int) (codec.Color, bool) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return codec.Color{}, false
	}
	return p.Colors[y*p.Width+x], true
}

// ParsePalette parses a prop palette.
func ParsePalette(data []byte) (*Palette, error) {
	r := codec.NewReader(data)

	magic, err := r.Bytes(4, "magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != paletteMagic {
		return nil, ErrInvalidPaletteMagic
	}

	w, err := r.Uint16("width")
	if err != nil {
		return nil, err
	}
	h, err := r.Uint16("height")
	if err != nil {
		return nil, err
	}
	count := int(w) * int(h)
	if count*4 > r.Remaining() {
		return nil, r.Malformed("palette size", fmt.Sprintf("%dx%d colours cannot fit in %d bytes", w, h, r.Remaining()))
	}

	p := &Palette{Width: int(w), Height: int(h), Colors: make([]codec.Color, count)}
	for i := range p.Colors {
		if p.Colors[i], err = r.Color("palette color"); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Encode serializes the palette in the layout ParsePalette reads.
func (p *Palette) Encode() []byte {
	w := codec.NewWriter()
	w.PutBytes([]byte(paletteMagic))
	w.PutUint16(uint16(p.Width))
	w.PutUint16(uint16(p.Height))
	for _, c := range p.Colors {
		w.PutColor(c)
	}
	return w.Bytes()
}
