package descdb

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/erinn/pkg/formats"
)

// TileIndexListName is the object list required in tileindex.data.
const TileIndexListName = "TileIndexList"

// TileEntry names the terrain tile set behind a material slot.
type TileEntry struct {
	TileID   uint32
	TileName string
}

// TileIndex maps material slot ids to tile sets.
type TileIndex struct {
	Table[uint32, *TileEntry]
	log *zap.Logger
}

// NewTileIndex creates an empty tile index.
func NewTileIndex(log *zap.Logger) *TileIndex {
	return &TileIndex{log: log}
}

// Load replaces the index with the contents of tileindex.data.
func (ti *TileIndex) Load(src Source) error {
	data, err := readSource(src, TileIndexFile)
	if err != nil {
		return err
	}
	entries, err := ParseTileIndex(data)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", TileIndexFile)
	}
	ti.Replace(entries)
	ti.log.Debug("tile index loaded", zap.Int("tiles", len(entries)))
	return nil
}

// ParseTileIndex decodes tileindex.data. Each object carries a TileID field;
// the tile name is the TileName field or, when absent, the object name.
func ParseTileIndex(data []byte) (map[uint32]*TileEntry, error) {
	dd, err := formats.ParseDataDog(data)
	if err != nil {
		return nil, err
	}
	list, err := dd.List(TileIndexListName)
	if err != nil {
		return nil, err
	}

	entries := make(map[uint32]*TileEntry, len(list.Objects))
	for _, obj := range list.Objects {
		name := obj.Text("TileName")
		if name == "" {
			name = obj.Name
		}
		id := uint32(obj.Int("TileID"))
		entries[id] = &TileEntry{TileID: id, TileName: name}
	}
	return entries, nil
}
