package descdb

import (
	"go.uber.org/zap"
)

// Databases groups every descriptor database of one data session.
type Databases struct {
	Local        *Localization
	Features     *Features
	Props        *PropDB
	Materials    *MaterialDB
	RenderStates *RenderStateDB
	Palette      *PropPalette
	MiniMaps     *MiniMapInfo
	Tiles        *TileIndex
	Render       *RenderTables

	log *zap.Logger
}

// New creates empty databases.
func New(log *zap.Logger) *Databases {
	return &Databases{
		Local:        NewLocalization(log),
		Features:     NewFeatures(log),
		Props:        NewPropDB(log),
		Materials:    NewMaterialDB(log),
		RenderStates: NewRenderStateDB(log),
		Palette:      &PropPalette{},
		MiniMaps:     NewMiniMapInfo(log),
		Tiles:        NewTileIndex(log),
		Render:       NewRenderTables(log),
		log:          log,
	}
}

// FeatureSelection picks the feature setting applied after features load.
type FeatureSelection struct {
	Setting string
	Test    bool
	Dev     bool
}

// LoadReport records the outcome of LoadAll per source.
type LoadReport struct {
	Loaded       []string
	Missing      []string
	Failed       map[string]error
	SkippedFiles int
}

func (r *LoadReport) fail(source string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]error)
	}
	r.Failed[source] = err
}

// OK reports whether no present source failed.
func (r *LoadReport) OK() bool {
	return len(r.Failed) == 0
}

// LoadAll loads every source present in src. Each source is loaded on its
// own: a failure is logged and recorded, and the affected database keeps its
// previous contents while the others load normally. A database whose source
// is absent from src is cleared.
func (d *Databases) LoadAll(src Source, sel FeatureSelection) *LoadReport {
	report := &LoadReport{}

	missing := func(name string, clear func()) bool {
		if src.Exists(name) {
			return false
		}
		clear()
		report.Missing = append(report.Missing, name)
		return true
	}
	file := func(name string, load func(Source) error, clear func()) {
		if missing(name, clear) {
			return
		}
		if err := load(src); err != nil {
			d.log.Error("loading descriptor source failed", zap.String("source", name), zap.Error(err))
			report.fail(name, err)
			return
		}
		report.Loaded = append(report.Loaded, name)
	}
	dir := func(name string, load func(Source) DirResult, clear func()) {
		if missing(name, clear) {
			return
		}
		res := load(src)
		report.SkippedFiles += res.Skipped
		report.Loaded = append(report.Loaded, name)
	}

	dir(LocalDir, d.Local.Load, d.Local.Clear)
	file(FeaturesFile, func(s Source) error {
		if err := d.Features.Load(s); err != nil {
			return err
		}
		if sel.Setting == "" {
			return nil
		}
		if err := d.Features.SelectSetting(sel.Setting, sel.Test, sel.Dev); err != nil {
			d.log.Warn("feature setting not selected", zap.String("setting", sel.Setting), zap.Error(err))
		}
		return nil
	}, d.Features.Clear)
	file(PropDBFile, d.Props.Load, d.Props.Clear)
	dir(MaterialDir, d.Materials.Load, d.Materials.Clear)
	dir(RenderStateDir, d.RenderStates.Load, d.RenderStates.Clear)
	file(PaletteFile, d.Palette.Load, d.Palette.Clear)
	file(MiniMapInfoFile, d.MiniMaps.Load, d.MiniMaps.Clear)
	file(TileIndexFile, d.Tiles.Load, d.Tiles.Clear)
	file(RenderFile, d.Render.Load, d.Render.Clear)

	d.log.Info("descriptor databases loaded",
		zap.Strings("loaded", report.Loaded),
		zap.Int("missing", len(report.Missing)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("skipped_files", report.SkippedFiles))
	return report
}

// Clear empties every database.
func (d *Databases) Clear() {
	d.Local.Clear()
	d.Features.Clear()
	d.Props.Clear()
	d.Materials.Clear()
	d.RenderStates.Clear()
	d.Palette.Clear()
	d.MiniMaps.Clear()
	d.Tiles.Clear()
	d.Render.Clear()
}
