// Package material resolves texture and tile names to materials with
// decoded texture payloads.
//
// Resolution order, first hit wins:
//
//  1. tile index: material slot id to tile name (ResolveSlot only)
//  2. render tables: texture to material to render state
//  3. material database: texture alias to render state
//  4. placeholder tagged with the raw name, recorded as a ResolutionMiss
package material

import (
	"fmt"

	"github.com/Faultbox/erinn/pkg/formats"
)

// Origin names the table a material was resolved from.
type Origin int

const (
	OriginPlaceholder Origin = iota
	OriginRenderTables
	OriginMaterialDB
)

// String returns a human-readable origin name.
func (o Origin) String() string {
	switch o {
	case OriginPlaceholder:
		return "placeholder"
	case OriginRenderTables:
		return "render-tables"
	case OriginMaterialDB:
		return "material-db"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// RenderState is the part of a render state a host needs to pick a shader.
type RenderState struct {
	Name          string
	TextureFactor string
	AlphaTest     bool
	AlphaBlend    bool
	ZWrite        bool
	Lighting      bool
	VertexColor   bool
	DoubleSided   bool
}

// Texture is a located and header-checked texture file.
type Texture struct {
	Name string // name the texture was requested by
	Path string // data relative file path
	*formats.DDS
}

// Material is a resolved material. Placeholder materials carry only Name.
type Material struct {
	Name         string // texture or tile name as referenced
	MaterialName string
	Origin       Origin
	RenderState  *RenderState // nil when the render state is unknown
	IsGrass      bool
	CastShadow   bool
	Texture      *Texture // nil when no texture file was found or decoded
	Placeholder  bool
}

// Miss stages.
const (
	StageSlot     = "slot"
	StageMaterial = "material"
	StageTexture  = "texture"
)

// ResolutionMiss records a lookup that fell through. It is a diagnostic,
// never a failure.
type ResolutionMiss struct {
	Name   string
	Stage  string
	Reason string
}

func (m ResolutionMiss) Error() string {
	return fmt.Sprintf("unresolved %s %q: %s", m.Stage, m.Name, m.Reason)
}

// Stats are resolver counters since the last Reset.
type Stats struct {
	Lookups   int
	Hits      int
	Materials int
	Textures  int
	Misses    int
}
