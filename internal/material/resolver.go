package material

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/erinn/internal/descdb"
)

// Files is read access to the data folder.
type Files interface {
	Load(name string) ([]byte, error)
	Exists(name string) bool
	Find(dir, fileName string) (string, bool)
}

// Options control texture lookup.
type Options struct {
	TextureExt string   // without dot
	SearchDirs []string // fallback directories under material/, in order
}

// Resolver resolves names through the descriptor databases of one session
// and memoizes every result until Reset.
type Resolver struct {
	dbs   *descdb.Databases
	files Files
	opts  Options
	log   *zap.Logger

	group singleflight.Group

	mu        sync.Mutex
	materials map[string]*Material
	textures  map[string]*Texture
	misses    []ResolutionMiss
	lookups   int
	hits      int
}

// NewResolver creates a resolver over dbs and files.
func NewResolver(dbs *descdb.Databases, files Files, opts Options, log *zap.Logger) *Resolver {
	if opts.TextureExt == "" {
		opts.TextureExt = "dds"
	}
	return &Resolver{
		dbs:       dbs,
		files:     files,
		opts:      opts,
		log:       log,
		materials: make(map[string]*Material),
		textures:  make(map[string]*Texture),
	}
}

// ResolveSlot resolves a terrain material slot through the tile index.
// An unknown slot yields a placeholder tagged "slot:<id>".
func (r *Resolver) ResolveSlot(slot uint32) *Material {
	if tile, ok := r.dbs.Tiles.Lookup(slot); ok && tile.TileName != "" {
		return r.Resolve(tile.TileName)
	}

	tag := fmt.Sprintf("slot:%d", slot)
	return r.memo(tag, func() *Material {
		r.recordMiss(ResolutionMiss{Name: tag, Stage: StageSlot, Reason: "not in tile index"})
		return &Material{Name: tag, Placeholder: true}
	})
}

// Resolve resolves a texture name. It never fails: unknown names yield a
// placeholder material and a recorded ResolutionMiss.
func (r *Resolver) Resolve(name string) *Material {
	return r.memo(strings.ToLower(name), func() *Material {
		return r.build(name)
	})
}

// memo returns the cached material for key or builds it exactly once.
func (r *Resolver) memo(key string, build func() *Material) *Material {
	r.mu.Lock()
	r.lookups++
	if m, ok := r.materials[key]; ok {
		r.hits++
		r.mu.Unlock()
		return m
	}
	r.mu.Unlock()

	v, _, _ := r.group.Do("mat:"+key, func() (any, error) {
		r.mu.Lock()
		if m, ok := r.materials[key]; ok {
			r.mu.Unlock()
			return m, nil
		}
		r.mu.Unlock()

		m := build()

		r.mu.Lock()
		r.materials[key] = m
		r.mu.Unlock()
		return m, nil
	})
	return v.(*Material)
}

func (r *Resolver) build(name string) *Material {
	if m, ok := r.fromRenderTables(name); ok {
		m.Texture = r.texture(r.textureFile(name))
		return m
	}
	if m, ok := r.fromMaterialDB(name); ok {
		m.Texture = r.texture(name)
		return m
	}

	r.recordMiss(ResolutionMiss{Name: name, Stage: StageMaterial, Reason: "no material data"})
	return &Material{Name: name, Placeholder: true}
}

// textureFile returns the texture file a render table alias points at.
func (r *Resolver) textureFile(name string) string {
	if tm, ok := r.dbs.Render.TexMat(name); ok && tm.AliasTexture != "" {
		return tm.AliasTexture
	}
	return name
}

func (r *Resolver) fromRenderTables(name string) (*Material, bool) {
	tm, ok := r.dbs.Render.TexMat(name)
	if !ok {
		return nil, false
	}
	m := &Material{Name: name, MaterialName: tm.Material, Origin: OriginRenderTables}

	row, ok := r.dbs.Render.Material(tm.Material)
	if !ok {
		return m, true
	}
	m.IsGrass = row.IsGrass
	m.CastShadow = row.CastShadow

	if rs, ok := r.dbs.Render.RenderState(row.RenderState); ok {
		m.RenderState = &RenderState{
			Name:          rs.RenderState,
			TextureFactor: rs.TextureFactor,
			AlphaTest:     rs.EnableAlphaTest,
			AlphaBlend:    rs.EnableAlphaBlend,
			ZWrite:        rs.EnableZWrite,
			Lighting:      rs.EnableLight,
			VertexColor:   rs.UseVertexColor,
			DoubleSided:   rs.Culling <= 1,
		}
	}
	return m, true
}

func (r *Resolver) fromMaterialDB(name string) (*Material, bool) {
	entry, ok := r.dbs.Materials.ByTexture(name)
	if !ok {
		return nil, false
	}
	m := &Material{
		Name:         name,
		MaterialName: entry.Name,
		Origin:       OriginMaterialDB,
		IsGrass:      entry.IsGrass,
		CastShadow:   entry.CastShadow,
	}

	if rs, ok := r.dbs.RenderStates.Lookup(entry.RenderState); ok {
		m.RenderState = &RenderState{
			Name:          rs.Name,
			TextureFactor: rs.TextureFactor,
			AlphaTest:     rs.AlphaTest,
			AlphaBlend:    rs.Blend,
			ZWrite:        rs.ZWrite,
			Lighting:      rs.Lighting,
			VertexColor:   rs.VertexColor,
			DoubleSided:   rs.DoubleSided(),
		}
	} else {
		m.RenderState = &RenderState{Name: entry.RenderState, DoubleSided: true}
	}
	return m, true
}

func (r *Resolver) recordMiss(miss ResolutionMiss) {
	r.mu.Lock()
	r.misses = append(r.misses, miss)
	r.mu.Unlock()
	r.log.Warn("resolution miss",
		zap.String("name", miss.Name),
		zap.String("stage", miss.Stage),
		zap.String("reason", miss.Reason))
}

// Misses returns the resolution misses recorded since the last Reset.
func (r *Resolver) Misses() []ResolutionMiss {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ResolutionMiss(nil), r.misses...)
}

// Stats returns resolver counters.
func (r *Resolver) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	textures := 0
	for _, t := range r.textures {
		if t != nil {
			textures++
		}
	}
	return Stats{
		Lookups:   r.lookups,
		Hits:      r.hits,
		Materials: len(r.materials),
		Textures:  textures,
		Misses:    len(r.misses),
	}
}

// Reset forgets every memoized material and texture. Call it after the
// descriptor databases are reloaded, never concurrently with Resolve.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.materials = make(map[string]*Material)
	r.textures = make(map[string]*Texture)
	r.misses = nil
	r.lookups, r.hits = 0, 0
}
