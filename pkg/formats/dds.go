package formats

import (
	"errors"
	"fmt"
	"os"
)

// ErrInvalidImage is matched by every InvalidImageError.
var ErrInvalidImage = errors.New("invalid image")

// DDSHeaderSize is the fixed header stripped before the block payload.
const DDSHeaderSize = 128

const (
	ddsMagicOffset  = 4
	ddsMagicValue   = 124
	ddsHeightOffset = 12
	ddsWidthOffset  = 16
	ddsCodecOffset  = 87
)

// BlockFormat is the compressed block family of a texture.
type BlockFormat int

const (
	BlockBC1 BlockFormat = 1 // 8 bytes per 4x4 block (DXT1)
	BlockBC3 BlockFormat = 3 // 16 bytes per 4x4 block (DXT3/DXT5)
)

// String returns the conventional codec name.
func (f BlockFormat) String() string {
	switch f {
	case BlockBC1:
		return "DXT1"
	case BlockBC3:
		return "DXT5"
	default:
		return fmt.Sprintf("BlockFormat(%d)", int(f))
	}
}

// BlockSize returns the size in bytes of one 4x4 block.
func (f BlockFormat) BlockSize() int {
	if f == BlockBC1 {
		return 8
	}
	return 16
}

// InvalidImageError reports a texture header that failed validation.
type InvalidImageError struct {
	Reason string
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidImage, e.Reason)
}

// Is reports whether target is ErrInvalidImage.
func (e *InvalidImageError) Is(target error) bool {
	return target == ErrInvalidImage
}

// DDS is a compressed texture with its header stripped.
// Payload is passed through untouched for a downstream block decoder.
type DDS struct {
	Width   int
	Height  int
	Codec   byte
	Format  BlockFormat
	Payload []byte
}

// ExpectedPayloadSize returns the top mip level size for the texture dimensions.
func (d *DDS) ExpectedPayloadSize() int {
	bw := (d.Width + 3) / 4
	bh := (d.Height + 3) / 4
	return bw * bh * d.Format.BlockSize()
}

// blockFormatFor maps the codec selector byte (the fourth FourCC character).
// Unknown selectors fall back to the more common BC3 family.
func blockFormatFor(code byte) BlockFormat {
	switch code {
	case '1':
		return BlockBC1
	case '3', '5':
		return BlockBC3
	default:
		return BlockBC3
	}
}

// ParseDDS validates the header of a DDS texture and extracts its payload.
func ParseDDS(data []byte) (*DDS, error) {
	if len(data) < DDSHeaderSize {
		return nil, &InvalidImageError{Reason: fmt.Sprintf("header truncated: %d of %d bytes", len(data), DDSHeaderSize)}
	}
	if data[ddsMagicOffset] != ddsMagicValue {
		return nil, &InvalidImageError{Reason: fmt.Sprintf("header size byte is %d, expected %d", data[ddsMagicOffset], ddsMagicValue)}
	}

	code := data[ddsCodecOffset]
	return &DDS{
		Height:  int(data[ddsHeightOffset+1])<<8 | int(data[ddsHeightOffset]),
		Width:   int(data[ddsWidthOffset+1])<<8 | int(data[ddsWidthOffset]),
		Codec:   code,
		Format:  blockFormatFor(code),
		Payload: data[DDSHeaderSize:],
	}, nil
}

// ParseDDSFile parses a DDS texture from disk.
func ParseDDSFile(path string) (*DDS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading DDS file: %w", err)
	}
	return ParseDDS(data)
}
