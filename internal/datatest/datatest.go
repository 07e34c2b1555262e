// Package datatest builds in-memory client data folders for tests.
package datatest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing/fstest"

	"github.com/Faultbox/erinn/pkg/codec"
	"github.com/Faultbox/erinn/pkg/formats"
	"github.com/Faultbox/erinn/pkg/math"
)

// Folder is a client data folder under construction.
type Folder struct {
	FS fstest.MapFS
}

// New creates an empty folder.
func New() *Folder {
	return &Folder{FS: fstest.MapFS{}}
}

// Add stores a file.
func (f *Folder) Add(name string, data []byte) *Folder {
	f.FS[name] = &fstest.MapFile{Data: data}
	return f
}

// AddText stores a text file.
func (f *Folder) AddText(name, text string) *Folder {
	return f.Add(name, []byte(text))
}

// WriteTo materializes the folder under dir.
func (f *Folder) WriteTo(dir string) error {
	for name, file := range f.FS {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(p, file.Data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// PropClass is one propdb.xml row.
type PropClass struct {
	ClassID    uint32
	ClassName  string
	StringID   string
	UsedServer bool
	Feature    string
	Name       string
}

// PropDB writes db/propdb.xml.
func (f *Folder) PropDB(classes ...PropClass) *Folder {
	var b strings.Builder
	b.WriteString("<PropDB>\n")
	for _, c := range classes {
		fmt.Fprintf(&b, "  <PropClass ClassID=\"%d\" ClassName=\"%s\" StringID=\"%s\" UsedServer=\"%t\" Feature=\"%s\" Name=\"%s\"/>\n",
			c.ClassID, c.ClassName, c.StringID, c.UsedServer, c.Feature, c.Name)
	}
	b.WriteString("</PropDB>\n")
	return f.AddText("db/propdb.xml", b.String())
}

// Material writes a material descriptor listing textures.
func (f *Folder) Material(name, renderState string, textures ...string) *Folder {
	var b strings.Builder
	fmt.Fprintf(&b, "<Material Name=\"%s\" RenderState=\"%s\" IsGrass=\"false\" CastShadow=\"true\">\n", name, renderState)
	for _, t := range textures {
		fmt.Fprintf(&b, "  <TextureDesc Name=\"%s\"/>\n", t)
	}
	b.WriteString("</Material>\n")
	return f.AddText("material/_define/material/"+name+".xml", b.String())
}

// RenderState writes a render state descriptor.
func (f *Folder) RenderState(name, cullMode string, blend bool) *Folder {
	xml := fmt.Sprintf(`<RenderState Name="%s" MaxTextureStateStage="1" TextureFactor="0xff808080">
  <ZDepthTest Enable="true" Func="D3DCMP_LESSEQUAL" WriteEnable="true"/>
  <AlphaTest Enable="false" Ref="0" Func="D3DCMP_ALWAYS"/>
  <Blend Enable="%t" Op="D3DBLENDOP_ADD" Src="D3DBLEND_SRCALPHA" Dest="D3DBLEND_INVSRCALPHA"/>
  <ColorSrc Enable="false" MatDiffuseR="1" MatDiffuseG="1" MatDiffuseB="1" MatDiffuseA="1"/>
  <Misc CullMode="%s" Lighting="true"/>
</RenderState>
`, name, blend, cullMode)
	return f.AddText("material/_define/render_state/"+name+".xml", xml)
}

// TileIndex writes db/tileindex.data.
func (f *Folder) TileIndex(tiles map[uint32]string) *Folder {
	l := formats.NewDataDogList("TileIndexList",
		formats.DataDogField{Name: "TileID", Type: formats.FieldInt},
		formats.DataDogField{Name: "TileName", Type: formats.FieldString})
	for id, name := range tiles {
		l.Add(name, int32(id), name)
	}
	dd := formats.NewDataDog()
	dd.AddList(l)
	return f.Add("db/tileindex.data", mustEncode(dd))
}

// TexMat is one texture to material to render state chain in render.data.
type TexMat struct {
	Texture     string
	Material    string
	RenderState string
	Blend       bool
}

// RenderData returns a render.data container. Lists named in skip are left out.
func RenderData(rows []TexMat, skip ...string) []byte {
	materials := formats.NewDataDogList("MaterialList",
		formats.DataDogField{Name: "RenderState", Type: formats.FieldString},
		formats.DataDogField{Name: "IsGrass", Type: formats.FieldBool})
	states := formats.NewDataDogList("RenderStateList",
		formats.DataDogField{Name: "TextureFactor", Type: formats.FieldString},
		formats.DataDogField{Name: "Culling", Type: formats.FieldInt},
		formats.DataDogField{Name: "EnableAlphaBlend", Type: formats.FieldBool})
	texMats := formats.NewDataDogList("TexMatList",
		formats.DataDogField{Name: "Material", Type: formats.FieldString},
		formats.DataDogField{Name: "AliasTexture", Type: formats.FieldString},
		formats.DataDogField{Name: "IsManaged", Type: formats.FieldInt})

	for _, r := range rows {
		materials.Add(r.Material, r.RenderState, false)
		states.Add(r.RenderState, "0xff808080", int32(1), r.Blend)
		texMats.Add(r.Texture, r.Material, "", int32(0))
	}

	dd := formats.NewDataDog()
	for _, l := range []*formats.DataDogList{materials, states, texMats} {
		skipped := false
		for _, s := range skip {
			skipped = skipped || s == l.Name
		}
		if !skipped {
			dd.AddList(l)
		}
	}
	return mustEncode(dd)
}

// RenderData writes db/render.data.
func (f *Folder) RenderData(rows ...TexMat) *Folder {
	return f.Add("db/render.data", RenderData(rows))
}

// DDS returns a texture with a 128 byte header and payload bytes of data.
// selector is the FourCC digit at byte 87, e.g. '1' for DXT1.
func DDS(width, height int, selector byte, payload int) []byte {
	data := make([]byte, formats.DDSHeaderSize+payload)
	copy(data, "DDS ")
	data[4] = 124
	data[12], data[13] = byte(height), byte(height>>8)
	data[16], data[17] = byte(width), byte(width>>8)
	copy(data[84:], "DXT")
	data[87] = selector
	for i := formats.DDSHeaderSize; i < len(data); i++ {
		data[i] = byte(i)
	}
	return data
}

// Texture writes a 4x4 DXT1 texture.
func (f *Folder) Texture(name string) *Folder {
	return f.Add(name, DDS(4, 4, '1', 8))
}

// Model writes gfx/<dir>/<className>.set referencing one .pmg holding meshes.
func (f *Folder) Model(dir, className string, meshes ...formats.PMGMesh) *Folder {
	item := className + "_mesh"
	set := &formats.Set{Items: []formats.SetItem{{FileName: item}}}
	data, err := set.Encode()
	if err != nil {
		panic(err)
	}
	f.Add("gfx/"+dir+"/"+className+".set", data)

	pmg := &formats.PMG{Version: 1, Meshes: meshes}
	return f.Add("gfx/"+dir+"/"+item+".pmg", pmg.Encode())
}

// Quad returns a one-quad mesh using texture.
func Quad(name, texture string, colorIndex int32) formats.PMGMesh {
	return formats.PMGMesh{
		Name:        name,
		TextureName: texture,
		ColorIndex:  colorIndex,
		Transform:   math.Identity(),
		Flags:       formats.PMGTextured,
		Vertices: []formats.PMGVertex{
			{Position: [3]float32{0, 0, 0}, UV: [2]float32{0, 0}},
			{Position: [3]float32{1, 0, 0}, UV: [2]float32{1, 0}},
			{Position: [3]float32{0, 1, 0}, UV: [2]float32{0, 1}},
			{Position: [3]float32{1, 1, 0}, UV: [2]float32{1, 1}},
		},
		Indices: []uint16{0, 1, 2, 1, 3, 2},
	}
}

// Colors returns n opaque grey colours.
func Colors(n int) []codec.Color {
	c := make([]codec.Color, n)
	for i := range c {
		c[i] = codec.Color{A: 0xFF, R: 0x80, G: 0x80, B: 0x80}
	}
	return c
}

func mustEncode(dd *formats.DataDog) []byte {
	data, err := dd.Encode()
	if err != nil {
		panic(err)
	}
	return data
}
