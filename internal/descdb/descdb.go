// Package descdb loads the client's descriptor databases: prop classes,
// materials, render states, tile indices, features, localization and the
// minimap index.
//
// Every database is a Table that is replaced wholesale by its Load method.
// A database that fails to load keeps its previous contents and never
// affects its siblings.
package descdb

import (
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/Faultbox/erinn/pkg/encoding"
)

// Source is read access to a client data folder.
type Source interface {
	ReadFile(name string) ([]byte, error)
	Exists(name string) bool
	Walk(dir string, fn func(name string) bool)
}

// Standard locations relative to the data folder.
const (
	LocalDir        = "local"
	FeaturesFile    = "features.xml"
	PropDBFile      = "db/propdb.xml"
	MaterialDir     = "material/_define/material"
	RenderStateDir  = "material/_define/render_state"
	PaletteFile     = "world/proppalette.plt"
	MiniMapInfoFile = "db/minimapinfo.xml"
	TileIndexFile   = "db/tileindex.data"
	RenderFile      = "db/render.data"
)

// newXMLDecoder returns a decoder for one descriptor document. Documents
// with a byte order mark are transcoded to UTF-8 first; other declared
// charsets are decoded through the IANA index.
func newXMLDecoder(data []byte) *xml.Decoder {
	if encoding.HasBOM(data) {
		data = []byte(encoding.DecodeText(data))
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	return dec
}

// charsetReader wraps input for the charset named in an XML declaration.
// By the time a declaration is readable the bytes are ASCII compatible, so
// Unicode labels pass through unchanged.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if strings.HasPrefix(lower, "utf") || strings.HasPrefix(lower, "ucs") {
		return input, nil
	}
	enc, err := ianaindex.IANA.Encoding(lower)
	if err != nil {
		return nil, errors.Wrapf(err, "xml charset %q", label)
	}
	if enc == nil {
		return nil, errors.Errorf("unsupported xml charset %q", label)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// xmlBool is a descriptor flag. Only the literal "true" enables it.
type xmlBool bool

func (b *xmlBool) UnmarshalXMLAttr(attr xml.Attr) error {
	*b = attr.Value == "true"
	return nil
}

// attr returns the value of the named attribute on a start element.
func attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// boolAttr reports whether the named attribute is the literal "true".
func boolAttr(se xml.StartElement, name string) bool {
	v, _ := attr(se, name)
	return v == "true"
}

// DirResult summarizes an XML directory load.
type DirResult struct {
	Files   int
	Skipped int
}

// loadXMLDir feeds every *.xml file under dir to parse.
func loadXMLDir(src Source, dir string, log *zap.Logger, parse func(name string, data []byte) error) DirResult {
	return loadDir(src, dir, ".xml", log, parse)
}

// loadDir feeds every file with extension ext under dir to parse. Files
// that fail to read or parse are logged and skipped.
func loadDir(src Source, dir, ext string, log *zap.Logger, parse func(name string, data []byte) error) DirResult {
	var res DirResult
	src.Walk(dir, func(name string) bool {
		if !strings.EqualFold(path.Ext(name), ext) {
			return true
		}
		res.Files++

		data, err := src.ReadFile(name)
		if err == nil {
			err = parse(name, data)
		}
		if err != nil {
			res.Skipped++
			log.Warn("skipping descriptor file", zap.String("file", name), zap.Error(err))
		}
		return true
	})
	return res
}

// readSource reads one descriptor file, wrapping failures with its name.
func readSource(src Source, name string) ([]byte, error) {
	data, err := src.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return data, nil
}
