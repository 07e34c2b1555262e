package descdb

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PropEntry describes a prop class.
type PropEntry struct {
	ClassID    uint32
	ClassName  string // base name of the class's .set file
	StringID   string // category path, e.g. "/prop/event/halloween/"
	UsedServer bool
	Feature    string // feature gate, empty when always present
	Name       string // may be a _LT[...] localization key
	Desc       string
}

// IsEvent reports whether the prop belongs to a server driven event.
func (e *PropEntry) IsEvent() bool {
	return e.UsedServer && strings.Contains(e.StringID, "/event/")
}

type propDBXML struct {
	Classes []struct {
		ClassID    uint32  `xml:"ClassID,attr"`
		ClassName  string  `xml:"ClassName,attr"`
		StringID   string  `xml:"StringID,attr"`
		UsedServer xmlBool `xml:"UsedServer,attr"`
		Feature    string  `xml:"Feature,attr"`
		Name       string  `xml:"Name,attr"`
		Desc       string  `xml:"Desc,attr"`
	} `xml:"PropClass"`
}

// PropDB maps class ids to prop descriptors.
type PropDB struct {
	Table[uint32, *PropEntry]
	log *zap.Logger
}

// NewPropDB creates an empty prop database.
func NewPropDB(log *zap.Logger) *PropDB {
	return &PropDB{log: log}
}

// Load replaces the database with the contents of propdb.xml.
func (db *PropDB) Load(src Source) error {
	data, err := readSource(src, PropDBFile)
	if err != nil {
		return err
	}
	entries, err := ParsePropDB(data)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", PropDBFile)
	}
	db.Replace(entries)
	db.log.Debug("prop database loaded", zap.Int("classes", len(entries)))
	return nil
}

// ParsePropDB decodes a propdb.xml document.
func ParsePropDB(data []byte) (map[uint32]*PropEntry, error) {
	var doc propDBXML
	if err := newXMLDecoder(data).Decode(&doc); err != nil {
		return nil, err
	}

	entries := make(map[uint32]*PropEntry, len(doc.Classes))
	for _, c := range doc.Classes {
		entries[c.ClassID] = &PropEntry{
			ClassID:    c.ClassID,
			ClassName:  c.ClassName,
			StringID:   c.StringID,
			UsedServer: bool(c.UsedServer),
			Feature:    c.Feature,
			Name:       c.Name,
			Desc:       c.Desc,
		}
	}
	return entries, nil
}
