package descdb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FeatureSetting is a named feature selection, usually one per service region.
type FeatureSetting struct {
	Name   string `xml:"Name,attr"`
	Locale string `xml:"Locale,attr"`
}

// FeatureEntry gates content. Enable and Disable list setting names; a name
// suffixed "(test)" or "(dev)" only applies in that mode.
type FeatureEntry struct {
	Name    string
	Default bool
	Enable  []string
	Disable []string
}

type featuresXML struct {
	Settings []FeatureSetting `xml:"Setting"`
	Features []struct {
		Name    string  `xml:"Name,attr"`
		Default xmlBool `xml:"Default,attr"`
		Enable  string  `xml:"Enable,attr"`
		Disable string  `xml:"Disable,attr"`
	} `xml:"Feature"`
}

// Features holds the feature table and the active setting.
type Features struct {
	Table[string, *FeatureEntry]

	mu       sync.RWMutex
	settings map[string]FeatureSetting
	selected string
	test     bool
	dev      bool

	log *zap.Logger
}

// NewFeatures creates an empty feature table.
func NewFeatures(log *zap.Logger) *Features {
	return &Features{log: log}
}

// Load replaces the feature table with features.xml. The active setting is
// cleared; call SelectSetting afterwards.
func (f *Features) Load(src Source) error {
	data, err := readSource(src, FeaturesFile)
	if err != nil {
		return err
	}

	var doc featuresXML
	if err := newXMLDecoder(data).Decode(&doc); err != nil {
		return errors.Wrapf(err, "parsing %s", FeaturesFile)
	}

	settings := make(map[string]FeatureSetting, len(doc.Settings))
	for _, s := range doc.Settings {
		settings[strings.ToLower(s.Name)] = s
	}
	entries := make(map[string]*FeatureEntry, len(doc.Features))
	for _, x := range doc.Features {
		entries[strings.ToLower(x.Name)] = &FeatureEntry{
			Name:    x.Name,
			Default: bool(x.Default),
			Enable:  splitList(x.Enable),
			Disable: splitList(x.Disable),
		}
	}

	f.mu.Lock()
	f.settings = settings
	f.selected = ""
	f.test, f.dev = false, false
	f.mu.Unlock()
	f.Replace(entries)

	f.log.Debug("features loaded", zap.Int("settings", len(settings)), zap.Int("features", len(entries)))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// SelectSetting activates a setting by name, optionally including test and
// development content.
func (f *Features) SelectSetting(name string, test, dev bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.settings[strings.ToLower(name)]; !ok {
		return fmt.Errorf("unknown feature setting %q", name)
	}
	f.selected = strings.ToLower(name)
	f.test, f.dev = test, dev
	return nil
}

// Selected returns the active setting.
func (f *Features) Selected() (FeatureSetting, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.settings[f.selected]
	return s, ok
}

// Clear empties the table and drops the active setting.
func (f *Features) Clear() {
	f.mu.Lock()
	f.settings = nil
	f.selected = ""
	f.test, f.dev = false, false
	f.mu.Unlock()
	f.Table.Clear()
}

// IsEnabled reports whether a feature is on for the active setting.
// Unknown features are off.
func (f *Features) IsEnabled(name string) bool {
	e, ok := f.Lookup(strings.ToLower(name))
	if !ok {
		return false
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.matches(e.Disable) {
		return false
	}
	return e.Default || f.matches(e.Enable)
}

func (f *Features) matches(list []string) bool {
	if f.selected == "" {
		return false
	}
	for _, tok := range list {
		switch tok {
		case f.selected:
			return true
		case f.selected + "(test)":
			if f.test {
				return true
			}
		case f.selected + "(dev)":
			if f.dev {
				return true
			}
		}
	}
	return false
}
