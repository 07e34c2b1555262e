package descdb

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MiniMapEntry locates the minimap image of a region and the world
// rectangle it covers.
type MiniMapEntry struct {
	Name string  `xml:"Name,attr"`
	File string  `xml:"File,attr"`
	MinX float32 `xml:"MinX,attr"`
	MinY float32 `xml:"MinY,attr"`
	MaxX float32 `xml:"MaxX,attr"`
	MaxY float32 `xml:"MaxY,attr"`
}

// Contains reports whether the world position lies inside the map.
func (e *MiniMapEntry) Contains(x, y float32) bool {
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

type miniMapXML struct {
	Maps []MiniMapEntry `xml:"Map"`
}

// MiniMapInfo maps region names to minimap entries.
type MiniMapInfo struct {
	Table[string, *MiniMapEntry]
	log *zap.Logger
}

// NewMiniMapInfo creates an empty minimap table.
func NewMiniMapInfo(log *zap.Logger) *MiniMapInfo {
	return &MiniMapInfo{log: log}
}

// Load replaces the table with db/minimapinfo.xml.
func (mi *MiniMapInfo) Load(src Source) error {
	data, err := readSource(src, MiniMapInfoFile)
	if err != nil {
		return err
	}
	var doc miniMapXML
	if err := newXMLDecoder(data).Decode(&doc); err != nil {
		return errors.Wrapf(err, "parsing %s", MiniMapInfoFile)
	}

	entries := make(map[string]*MiniMapEntry, len(doc.Maps))
	for i := range doc.Maps {
		entries[doc.Maps[i].Name] = &doc.Maps[i]
	}
	mi.Replace(entries)
	mi.log.Debug("minimap info loaded", zap.Int("maps", len(entries)))
	return nil
}
