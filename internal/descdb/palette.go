package descdb

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/Faultbox/erinn/pkg/codec"
	"github.com/Faultbox/erinn/pkg/formats"
)

// PropPalette is the colour grid props index into.
type PropPalette struct {
	mu      sync.RWMutex
	palette *formats.Palette
}

// Load replaces the palette with world/proppalette.plt.
func (p *PropPalette) Load(src Source) error {
	data, err := readSource(src, PaletteFile)
	if err != nil {
		return err
	}
	pal, err := formats.ParsePalette(data)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", PaletteFile)
	}
	p.mu.Lock()
	p.palette = pal
	p.mu.Unlock()
	return nil
}

// Lookup returns the colour at grid position (x, y).
func (p *PropPalette) Lookup(x, y int) (codec.Color, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.palette == nil {
		return codec.Color{}, false
	}
	return p.palette.At(x, y)
}

// Size returns the grid dimensions, zero when unloaded.
func (p *PropPalette) Size() (width, height int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.palette == nil {
		return 0, 0
	}
	return p.palette.Width, p.palette.Height
}

// Clear drops the palette.
func (p *PropPalette) Clear() {
	p.mu.Lock()
	p.palette = nil
	p.mu.Unlock()
}
