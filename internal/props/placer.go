package props

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/erinn/internal/descdb"
	"github.com/Faultbox/erinn/pkg/formats"
)

// Handle identifies a model or instance created by a Placer.
type Handle uint64

// SpawnOptions select which prop categories are placed.
type SpawnOptions struct {
	Normal   bool
	Event    bool // server driven event props
	Disabled bool // props gated behind a disabled feature
}

// DefaultSpawnOptions places normal props only.
func DefaultSpawnOptions() SpawnOptions {
	return SpawnOptions{Normal: true}
}

// Instance is one placed prop.
type Instance struct {
	Handle    Handle
	Model     *Model
	Area      string
	Prop      *formats.Prop
	Placement Placement
	Tints     [][4]float32 // per model part
	Cloned    bool         // geometry was reused from an earlier instance
}

// SpawnReport summarizes one spawn pass.
type SpawnReport struct {
	Instances []*Instance
	Loaded    int // models decoded from disk
	Cloned    int
	Unknown   int // class ids missing from the prop database
	Filtered  int
	Failed    int // classes whose model could not be loaded
}

// Placer materializes props for one data session. Models are decoded once
// per class id and shared by every later instance of that class.
type Placer struct {
	dbs        *descdb.Databases
	files      Files
	materials  MaterialResolver
	worldScale float32
	log        *zap.Logger

	mu      sync.Mutex
	models  map[uint32]*Model
	failed  map[uint32]error
	handles map[Handle]any
	next    Handle
}

// NewPlacer creates a placer.
func NewPlacer(dbs *descdb.Databases, files Files, materials MaterialResolver, worldScale float32, log *zap.Logger) *Placer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Placer{
		dbs:        dbs,
		files:      files,
		materials:  materials,
		worldScale: worldScale,
		log:        log,
		models:     make(map[uint32]*Model),
		failed:     make(map[uint32]error),
		handles:    make(map[Handle]any),
	}
}

// Spawn places the props of area.
func (p *Placer) Spawn(area *formats.Area, opts SpawnOptions) *SpawnReport {
	report := &SpawnReport{}
	p.spawnArea(area, opts, report)
	return report
}

// SpawnRegion places the props of every area of region.
func (p *Placer) SpawnRegion(region *formats.Region, opts SpawnOptions) *SpawnReport {
	report := &SpawnReport{}
	for i := range region.Areas {
		p.spawnArea(&region.Areas[i], opts, report)
	}
	p.log.Info("spawned props",
		zap.Int("instances", len(report.Instances)),
		zap.Int("loaded", report.Loaded),
		zap.Int("cloned", report.Cloned),
		zap.Int("unknown", report.Unknown),
		zap.Int("filtered", report.Filtered),
		zap.Int("failed", report.Failed))
	return report
}

func (p *Placer) spawnArea(area *formats.Area, opts SpawnOptions, report *SpawnReport) {
	for i := range area.Props {
		prop := &area.Props[i]
		entry, ok := p.dbs.Props.Lookup(prop.ClassID)
		if !ok {
			p.log.Warn("unknown prop class", zap.Uint32("class", prop.ClassID), zap.String("area", area.Name))
			report.Unknown++
			continue
		}
		if !p.allowed(entry, opts) {
			report.Filtered++
			continue
		}

		model, cloned, err := p.model(entry)
		if err != nil {
			report.Failed++
			continue
		}
		if cloned {
			report.Cloned++
		} else {
			report.Loaded++
		}
		report.Instances = append(report.Instances, p.instance(model, area, prop, cloned))
	}
}

// allowed applies the spawn filters. Event and disabled props need their
// own flag; anything else needs Normal.
func (p *Placer) allowed(entry *descdb.PropEntry, opts SpawnOptions) bool {
	event := entry.IsEvent()
	disabled := entry.Feature != "" && !p.dbs.Features.IsEnabled(entry.Feature)
	if event && !opts.Event {
		return false
	}
	if disabled && !opts.Disabled {
		return false
	}
	if !event && !disabled && !opts.Normal {
		return false
	}
	return true
}

// model returns the class's model, loading it on first use.
func (p *Placer) model(entry *descdb.PropEntry) (*Model, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.models[entry.ClassID]; ok {
		return m, true, nil
	}
	if err, ok := p.failed[entry.ClassID]; ok {
		return nil, false, err
	}

	m, err := p.loadModel(entry)
	if err != nil {
		p.log.Warn("prop model unavailable",
			zap.Uint32("class", entry.ClassID),
			zap.String("name", entry.ClassName),
			zap.Error(err))
		p.failed[entry.ClassID] = err
		return nil, false, err
	}
	m.Handle = p.newHandle(m)
	p.models[entry.ClassID] = m
	return m, false, nil
}

func (p *Placer) instance(m *Model, area *formats.Area, prop *formats.Prop, cloned bool) *Instance {
	inst := &Instance{
		Model:     m,
		Area:      area.Name,
		Prop:      prop,
		Placement: ToScene(prop, p.worldScale),
		Tints:     make([][4]float32, len(m.Parts)),
		Cloned:    cloned,
	}
	for i, part := range m.Parts {
		inst.Tints[i] = White
		if part.ColorIndex >= 0 && int(part.ColorIndex) < len(prop.Colors) {
			inst.Tints[i] = TextureFactor(prop.Colors[part.ColorIndex])
		}
	}

	p.mu.Lock()
	inst.Handle = p.newHandle(inst)
	p.mu.Unlock()
	return inst
}

// newHandle registers v. Callers hold mu.
func (p *Placer) newHandle(v any) Handle {
	p.next++
	p.handles[p.next] = v
	return p.next
}

// Lookup returns the model or instance behind h.
func (p *Placer) Lookup(h Handle) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.handles[h]
	return v, ok
}

// Release drops h. Releasing a model forgets it, so the next instance of
// its class loads the geometry again.
func (p *Placer) Release(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.handles[h]
	if !ok {
		return false
	}
	delete(p.handles, h)
	if m, ok := v.(*Model); ok && p.models[m.ClassID] == m {
		delete(p.models, m.ClassID)
	}
	return true
}

// Live returns the number of unreleased handles.
func (p *Placer) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Models returns the number of cached class models.
func (p *Placer) Models() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.models)
}

// Reset forgets every model, instance and failed class.
func (p *Placer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.models)
	clear(p.failed)
	clear(p.handles)
}
