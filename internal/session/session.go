// Package session ties data loading, region decoding, terrain building and
// prop placement together for one client data folder.
package session

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/erinn/internal/assets"
	"github.com/Faultbox/erinn/internal/config"
	"github.com/Faultbox/erinn/internal/descdb"
	"github.com/Faultbox/erinn/internal/material"
	"github.com/Faultbox/erinn/internal/props"
	"github.com/Faultbox/erinn/internal/terrain"
	"github.com/Faultbox/erinn/pkg/formats"
)

var (
	// ErrNoDataPath is returned by operations that need loaded client data.
	ErrNoDataPath = errors.New("no data path loaded")
	// ErrNoRegion is returned by operations that need a loaded region.
	ErrNoRegion = errors.New("no region loaded")
)

// Session owns the state of one data folder: descriptor databases, the
// material cache, placed props and the current region.
type Session struct {
	cfg *config.Config
	log *zap.Logger

	mu         sync.Mutex
	dataRoot   string
	files      *assets.Manager
	dbs        *descdb.Databases
	materials  *material.Resolver
	placer     *props.Placer
	terrainOpt terrain.Options

	region     *formats.Region
	regionPath string
	batches    []terrain.Batch
}

// New creates a session. Nothing is loaded until LoadData.
func New(cfg *config.Config, log *zap.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	mode, err := terrain.ParseUVMode(cfg.Terrain.UVMode)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg: cfg,
		log: log,
		dbs: descdb.New(log.Named("descdb")),
		terrainOpt: terrain.Options{
			WorldScale: cfg.Terrain.WorldScale,
			PlaneSize:  cfg.Terrain.PlaneSize,
			UVMode:     mode,
		},
	}, nil
}

// LoadData loads every descriptor database from the data folder at root and
// starts a fresh material cache. If root cannot be opened the previous data
// stays loaded.
func (s *Session) LoadData(root string) (*descdb.LoadReport, error) {
	files := assets.NewManager()
	if err := files.AddDir(root); err != nil {
		return nil, fmt.Errorf("opening data folder: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := s.dbs.LoadAll(files, descdb.FeatureSelection{
		Setting: s.cfg.Data.FeatureSetting,
		Test:    s.cfg.Data.TestFeatures,
		Dev:     s.cfg.Data.DevFeatures,
	})

	if s.files != nil {
		s.files.Close()
	}
	s.files = files
	s.dataRoot = root
	s.materials = material.NewResolver(s.dbs, files, material.Options{
		TextureExt: s.cfg.Data.TextureExt,
		SearchDirs: s.cfg.Data.SearchDirs,
	}, s.log.Named("material"))
	s.placer = props.NewPlacer(s.dbs, files, s.materials, s.cfg.Terrain.WorldScale, s.log.Named("props"))
	s.batches = nil

	s.log.Info("data loaded",
		zap.String("root", root),
		zap.Strings("loaded", report.Loaded),
		zap.Strings("missing", report.Missing),
		zap.Int("failed", len(report.Failed)),
		zap.Int("skipped_files", report.SkippedFiles))
	return report, nil
}

// LoadRegion decodes a region file. Paths that do not exist on disk are
// looked up in the data folder. On failure the previous region stays.
func (s *Session) LoadRegion(path string) error {
	data, err := s.readRegion(path)
	if err != nil {
		return err
	}
	region, err := formats.ParseRegion(data)
	if err != nil {
		return fmt.Errorf("parsing region %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.region = region
	s.regionPath = path
	s.batches = nil
	if s.placer != nil {
		s.placer.Reset()
	}

	s.log.Info("region loaded",
		zap.String("path", path),
		zap.String("name", region.Name),
		zap.Stringer("revision", region.Version),
		zap.Int("areas", len(region.Areas)),
		zap.Int("props", region.PropCount()))
	return nil
}

func (s *Session) readRegion(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return data, err
	}

	s.mu.Lock()
	files := s.files
	s.mu.Unlock()
	if files == nil {
		return nil, err
	}
	return files.ReadFile(path)
}

// BuildTerrain builds the batches of the loaded region. The previous
// result is kept when data or region are missing.
func (s *Session) BuildTerrain() ([]terrain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	builder := terrain.NewBuilder(s.terrainOpt, s.materials)
	var batches []terrain.Batch
	for _, batch := range builder.Region(s.region) {
		batches = append(batches, batch)
	}
	s.batches = batches

	s.log.Info("terrain built",
		zap.Int("batches", len(batches)),
		zap.Int("resolution_misses", len(s.materials.Misses())))
	return batches, nil
}

// SpawnProps places the props of the loaded region.
func (s *Session) SpawnProps(opts props.SpawnOptions) (*props.SpawnReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.placer.SpawnRegion(s.region, opts), nil
}

// SpawnOptions returns the spawn filters from the config.
func (s *Session) SpawnOptions() props.SpawnOptions {
	return props.SpawnOptions{
		Normal:   s.cfg.Props.SpawnNormal,
		Event:    s.cfg.Props.SpawnEvent,
		Disabled: s.cfg.Props.SpawnDisabled,
	}
}

// ready checks the preconditions of build operations. Callers hold mu.
func (s *Session) ready() error {
	if s.dataRoot == "" {
		return ErrNoDataPath
	}
	if s.region == nil {
		return ErrNoRegion
	}
	return nil
}

// Region returns the loaded region, or nil.
func (s *Session) Region() *formats.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

// RegionPath returns the path the region was loaded from.
func (s *Session) RegionPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regionPath
}

// Batches returns the result of the last BuildTerrain.
func (s *Session) Batches() []terrain.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

// DataRoot returns the loaded data folder, or "".
func (s *Session) DataRoot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataRoot
}

// Databases returns the descriptor databases.
func (s *Session) Databases() *descdb.Databases {
	return s.dbs
}

// Materials returns the material resolver, or nil before LoadData.
func (s *Session) Materials() *material.Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materials
}

// Placer returns the prop placer, or nil before LoadData.
func (s *Session) Placer() *props.Placer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placer
}

// Files returns the data folder, or nil before LoadData.
func (s *Session) Files() *assets.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files
}

// Purge drops cached files, materials and models so the next build reads
// the data folder again. Placed instances and their handles are released.
func (s *Session) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		return
	}
	s.files.Purge()
	s.materials.Reset()
	s.placer.Reset()
	s.batches = nil
}

// Close releases the data folder.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files != nil {
		s.files.Close()
		s.files = nil
	}
}
