package descdb

import (
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/erinn/pkg/encoding"
)

// Localization maps _LT keys to display text.
//
// A file local/xml/propdb.english.txt holding the line "10<TAB>Tree"
// defines the key "xml.propdb.10".
type Localization struct {
	Table[string, string]
	log *zap.Logger
}

// NewLocalization creates an empty localization table.
func NewLocalization(log *zap.Logger) *Localization {
	return &Localization{log: log}
}

// Load replaces the table with every *.txt file under local/.
func (l *Localization) Load(src Source) DirResult {
	entries := make(map[string]string)
	res := loadDir(src, LocalDir, ".txt", l.log, func(name string, data []byte) error {
		prefix := localPrefix(name)
		if prefix == "" {
			return fmt.Errorf("cannot derive key prefix")
		}
		for _, line := range strings.Split(encoding.DecodeText(data), "\n") {
			line = strings.TrimRight(line, "\r")
			if line == "" || strings.HasPrefix(line, "//") {
				continue
			}
			id, text, ok := strings.Cut(line, "\t")
			if !ok {
				continue
			}
			entries[prefix+"."+strings.TrimSpace(id)] = text
		}
		return nil
	})
	l.Replace(entries)
	l.log.Debug("localization loaded",
		zap.Int("files", res.Files), zap.Int("skipped", res.Skipped), zap.Int("keys", len(entries)))
	return res
}

// localPrefix turns local/xml/propdb.english.txt into xml.propdb.
func localPrefix(name string) string {
	rel := strings.TrimPrefix(name, LocalDir+"/")
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	dir, base := path.Split(rel)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	if base == "" {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(dir, "/", ".") + base)
}

// Resolve returns the text behind an _LT[key] reference. Anything else,
// including unknown keys, is returned unchanged.
func (l *Localization) Resolve(s string) string {
	key, ok := strings.CutPrefix(s, "_LT[")
	if !ok {
		return s
	}
	key, ok = strings.CutSuffix(key, "]")
	if !ok {
		return s
	}
	if text, ok := l.Lookup(strings.ToLower(key)); ok {
		return text
	}
	return s
}
