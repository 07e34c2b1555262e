package descdb

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/erinn/pkg/formats"
)

// Object lists required in render.data.
const (
	MaterialListName    = "MaterialList"
	RenderStateListName = "RenderStateList"
	TexMatListName      = "TexMatList"
)

// TexMatEntry maps a texture to its material.
type TexMatEntry struct {
	Texture      string
	Material     string
	AliasTexture string
	IsManaged    int32
}

// MaterialListEntry is a material row of render.data.
type MaterialListEntry struct {
	Material                  string
	RenderState               string
	GlossTexture              string
	DDSType                   string
	EnableCartoonRender       bool
	IsAlphaSort               bool
	IsManagedTexture          bool
	ReceiveMainLight          bool
	IsGrass                   bool
	CastShadow                bool
	BodyVisible               bool
	Silhouette                bool
	EnableGlobalColorOverride bool
	BackFaceCullWhenAlpha     bool
}

// RenderStateListEntry is a render state row of render.data.
type RenderStateListEntry struct {
	RenderState       string
	TextureFactor     string
	EnableLight       bool
	NormalizeNormal   bool
	ShadingMethod     int32
	EnableFSAA        bool
	Culling           int32 // 1 none, 2 clockwise, 3 counter-clockwise
	EnableZDepthTest  bool
	EnableZWrite      bool
	EnableAlphaTest   bool
	EnableAlphaBlend  bool
	UseVertexColor    bool
	EnablePointSprite bool
	EnableFog         bool
}

// RenderTables holds the three lookup tables of render.data. They are
// loaded and replaced together.
type RenderTables struct {
	mu           sync.RWMutex
	materials    map[string]*MaterialListEntry
	renderStates map[string]*RenderStateListEntry
	texMats      map[string]*TexMatEntry

	log *zap.Logger
}

// NewRenderTables creates empty render tables.
func NewRenderTables(log *zap.Logger) *RenderTables {
	return &RenderTables{log: log}
}

// Load replaces all three tables with the contents of render.data.
// A missing list fails the load with a formats.MissingTableError and leaves
// the previous tables in place.
func (rt *RenderTables) Load(src Source) error {
	data, err := readSource(src, RenderFile)
	if err != nil {
		return err
	}
	if err := rt.Parse(data); err != nil {
		return errors.Wrapf(err, "parsing %s", RenderFile)
	}
	return nil
}

// Parse replaces the tables from a render.data container.
func (rt *RenderTables) Parse(data []byte) error {
	dd, err := formats.ParseDataDog(data)
	if err != nil {
		return err
	}
	lists, err := dd.Require(MaterialListName, RenderStateListName, TexMatListName)
	if err != nil {
		return err
	}

	materials := make(map[string]*MaterialListEntry, len(lists[0].Objects))
	for _, obj := range lists[0].Objects {
		materials[obj.Name] = &MaterialListEntry{
			Material:                  obj.Name,
			RenderState:               obj.Text("RenderState"),
			GlossTexture:              obj.Text("GlossTexture"),
			DDSType:                   obj.Text("ddsType"),
			EnableCartoonRender:       obj.Bool("EnableCartoonRender"),
			IsAlphaSort:               obj.Bool("IsAlphaSort"),
			IsManagedTexture:          obj.Bool("IsManagedTexture"),
			ReceiveMainLight:          obj.Bool("ReceiveMainLight"),
			IsGrass:                   obj.Bool("IsGrass"),
			CastShadow:                obj.Bool("CastShadow"),
			BodyVisible:               obj.Bool("BodyVisible"),
			Silhouette:                obj.Bool("Silhouette"),
			EnableGlobalColorOverride: obj.Bool("EnableGlobalColorOverride"),
			BackFaceCullWhenAlpha:     obj.Bool("BackFaceCullWhenAlpha"),
		}
	}

	renderStates := make(map[string]*RenderStateListEntry, len(lists[1].Objects))
	for _, obj := range lists[1].Objects {
		renderStates[obj.Name] = &RenderStateListEntry{
			RenderState:       obj.Name,
			TextureFactor:     obj.Text("TextureFactor"),
			EnableLight:       obj.Bool("EnableLight"),
			NormalizeNormal:   obj.Bool("NormalizeNormal"),
			ShadingMethod:     obj.Int("ShadingMethod"),
			EnableFSAA:        obj.Bool("EnableFSAA"),
			Culling:           obj.Int("Culling"),
			EnableZDepthTest:  obj.Bool("EnableZDepthTest"),
			EnableZWrite:      obj.Bool("EnableZWrite"),
			EnableAlphaTest:   obj.Bool("EnableAlphaTest"),
			EnableAlphaBlend:  obj.Bool("EnableAlphaBlend"),
			UseVertexColor:    obj.Bool("UseVertexColor"),
			EnablePointSprite: obj.Bool("EnablePointSprite"),
			EnableFog:         obj.Bool("EnableFog"),
		}
	}

	texMats := make(map[string]*TexMatEntry, len(lists[2].Objects))
	for _, obj := range lists[2].Objects {
		texMats[strings.ToLower(obj.Name)] = &TexMatEntry{
			Texture:      obj.Name,
			Material:     obj.Text("Material"),
			AliasTexture: obj.Text("AliasTexture"),
			IsManaged:    obj.Int("IsManaged"),
		}
	}

	rt.mu.Lock()
	rt.materials = materials
	rt.renderStates = renderStates
	rt.texMats = texMats
	rt.mu.Unlock()

	rt.log.Debug("render tables loaded",
		zap.Int("materials", len(materials)),
		zap.Int("render_states", len(renderStates)),
		zap.Int("textures", len(texMats)))
	return nil
}

// Clear empties all three tables.
func (rt *RenderTables) Clear() {
	rt.mu.Lock()
	rt.materials, rt.renderStates, rt.texMats = nil, nil, nil
	rt.mu.Unlock()
}

// Loaded reports whether the tables hold data.
func (rt *RenderTables) Loaded() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.texMats != nil
}

// Counts returns the row count of each table.
func (rt *RenderTables) Counts() (materials, renderStates, texMats int) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.materials), len(rt.renderStates), len(rt.texMats)
}

// TexMat looks up the material mapping of a texture, ignoring case.
func (rt *RenderTables) TexMat(texture string) (*TexMatEntry, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	e, ok := rt.texMats[strings.ToLower(texture)]
	return e, ok
}

// Material looks up a material row.
func (rt *RenderTables) Material(name string) (*MaterialListEntry, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	e, ok := rt.materials[name]
	return e, ok
}

// RenderState looks up a render state row.
func (rt *RenderTables) RenderState(name string) (*RenderStateListEntry, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	e, ok := rt.renderStates[name]
	return e, ok
}
