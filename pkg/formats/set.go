package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/erinn/pkg/codec"
)

// ErrInvalidSetMagic is returned when a placement set does not start with 'set\x00'.
var ErrInvalidSetMagic = errors.New("invalid set magic: expected 'set\\x00'")

const setMagic = "set\x00"

// SetItem references one mesh file, relative to the set's directory.
type SetItem struct {
	FileName string
	Flags    uint32
}

// Set is an ordered list of mesh files making up one prop class.
type Set struct {
	Items []SetItem
}

// ParseSet parses a placement set.
func ParseSet(data []byte) (*Set, error) {
	r := codec.NewReader(data)

	magic, err := r.Bytes(4, "magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != setMagic {
		return nil, ErrInvalidSetMagic
	}

	count, err := r.Uint32("item count")
	if err != nil {
		return nil, err
	}
	if int(count)*6 > r.Remaining() {
		return nil, r.Malformed("item count", fmt.Sprintf("%d items cannot fit in %d bytes", count, r.Remaining()))
	}

	set := &Set{Items: make([]SetItem, count)}
	for i := range set.Items {
		if set.Items[i].FileName, err = r.WString("file name"); err != nil {
			return nil, err
		}
		if set.Items[i].Flags, err = r.Uint32("item flags"); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// Encode serializes the set in the layout ParseSet reads.
func (s *Set) Encode() ([]byte, error) {
	w := codec.NewWriter()
	w.PutBytes([]byte(setMagic))
	w.PutUint32(uint32(len(s.Items)))
	for _, item := range s.Items {
		if err := w.PutWString(item.FileName); err != nil {
			return nil, err
		}
		w.PutUint32(item.Flags)
	}
	return w.Bytes(), nil
}

// ParseSetFile parses a placement set from disk.
func ParseSetFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading set file: %w", err)
	}
	return ParseSet(data)
}
