package descdb

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// MaterialEntry is one material descriptor. A material lists every texture
// name that uses it.
type MaterialEntry struct {
	Name                  string
	Textures              []string
	RenderState           string
	GlossTexture          string
	TextureFormat         string
	Desc                  string
	EnableOutline         bool
	EnableAlphaSort       bool
	ReceiveMainLight      bool
	IsGrass               bool
	CastShadow            bool
	BodyVisible           bool
	Silhouette            bool
	EnableGlbClrOvr       bool
	BackFaceCullWhenAlpha bool
}

// MaterialDB maps lower-case texture names to material descriptors.
type MaterialDB struct {
	Table[string, *MaterialEntry]
	log *zap.Logger
}

// NewMaterialDB creates an empty material database.
func NewMaterialDB(log *zap.Logger) *MaterialDB {
	return &MaterialDB{log: log}
}

// Load replaces the database with every material file under MaterialDir.
// Broken files are skipped.
func (db *MaterialDB) Load(src Source) DirResult {
	entries := make(map[string]*MaterialEntry)
	res := loadXMLDir(src, MaterialDir, db.log, func(_ string, data []byte) error {
		m, err := ParseMaterial(data)
		if err != nil {
			return err
		}
		for _, tex := range m.Textures {
			entries[strings.ToLower(tex)] = m
		}
		return nil
	})
	db.Replace(entries)
	db.log.Debug("material database loaded",
		zap.Int("files", res.Files), zap.Int("skipped", res.Skipped), zap.Int("textures", len(entries)))
	return res
}

// ByTexture looks up the material that lists textureName, ignoring case.
func (db *MaterialDB) ByTexture(textureName string) (*MaterialEntry, bool) {
	return db.Lookup(strings.ToLower(textureName))
}

// ParseMaterial decodes one material descriptor file. The element carrying
// a RenderState attribute defines the material; TextureDesc elements name
// its textures.
func ParseMaterial(data []byte) (*MaterialEntry, error) {
	dec := newXMLDecoder(data)
	m := &MaterialEntry{}
	found := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if rs, ok := attr(se, "RenderState"); ok {
			found = true
			m.Name, _ = attr(se, "Name")
			m.RenderState = rs
			m.GlossTexture, _ = attr(se, "GlossTexture")
			m.TextureFormat, _ = attr(se, "TextureFormat")
			m.Desc, _ = attr(se, "Desc")
			m.EnableOutline = boolAttr(se, "EnableOutline")
			m.EnableAlphaSort = boolAttr(se, "EnableAlphaSort")
			m.ReceiveMainLight = boolAttr(se, "ReceiveMainLight")
			m.IsGrass = boolAttr(se, "IsGrass")
			m.CastShadow = boolAttr(se, "CastShadow")
			m.BodyVisible = boolAttr(se, "BodyVisible")
			m.Silhouette = boolAttr(se, "Silhouette")
			m.EnableGlbClrOvr = boolAttr(se, "EnableGlbClrOvr")
			m.BackFaceCullWhenAlpha = boolAttr(se, "BackFaceCullWhenAlpha")
		}
		if se.Name.Local == "TextureDesc" {
			if name, ok := attr(se, "Name"); ok && name != "" {
				m.Textures = append(m.Textures, name)
			}
		}
	}

	if !found {
		return nil, fmt.Errorf("no material element with a RenderState attribute")
	}
	return m, nil
}

// RenderStateEntry is the subset of a fixed-function render state the
// material chain selects on.
type RenderStateEntry struct {
	Name          string
	TextureFactor string // hex ARGB, e.g. "0xff808080"

	ZDepthTest  bool
	ZWrite      bool
	AlphaTest   bool
	AlphaRef    string
	AlphaFunc   string
	Blend       bool
	BlendOp     string
	BlendSrc    string
	BlendDest   string
	Fog         bool
	Stencil     bool
	VertexColor bool
	MatDiffuse  [4]float32
	CullMode    string
	Lighting    bool
}

// DoubleSided reports whether back faces are drawn.
func (e *RenderStateEntry) DoubleSided() bool {
	return e.CullMode == "" || strings.HasSuffix(e.CullMode, "NONE")
}

// RenderStateDB maps render state names to descriptors.
type RenderStateDB struct {
	Table[string, *RenderStateEntry]
	log *zap.Logger
}

// NewRenderStateDB creates an empty render state database.
func NewRenderStateDB(log *zap.Logger) *RenderStateDB {
	return &RenderStateDB{log: log}
}

// Load replaces the database with every file under RenderStateDir.
// Broken files are skipped.
func (db *RenderStateDB) Load(src Source) DirResult {
	entries := make(map[string]*RenderStateEntry)
	res := loadXMLDir(src, RenderStateDir, db.log, func(_ string, data []byte) error {
		rs, err := ParseRenderState(data)
		if err != nil {
			return err
		}
		entries[rs.Name] = rs
		return nil
	})
	db.Replace(entries)
	db.log.Debug("render state database loaded",
		zap.Int("files", res.Files), zap.Int("skipped", res.Skipped), zap.Int("states", len(entries)))
	return res
}

// ParseRenderState decodes one render state file.
func ParseRenderState(data []byte) (*RenderStateEntry, error) {
	dec := newXMLDecoder(data)
	rs := &RenderStateEntry{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if tf, ok := attr(se, "TextureFactor"); ok {
			rs.Name, _ = attr(se, "Name")
			rs.TextureFactor = tf
		}

		switch se.Name.Local {
		case "ZDepthTest":
			rs.ZDepthTest = boolAttr(se, "Enable")
			rs.ZWrite = boolAttr(se, "WriteEnable")
		case "AlphaTest":
			rs.AlphaTest = boolAttr(se, "Enable")
			rs.AlphaRef, _ = attr(se, "Ref")
			rs.AlphaFunc, _ = attr(se, "Func")
		case "Blend":
			rs.Blend = boolAttr(se, "Enable")
			rs.BlendOp, _ = attr(se, "Op")
			rs.BlendSrc, _ = attr(se, "Src")
			rs.BlendDest, _ = attr(se, "Dest")
		case "Fog":
			rs.Fog = boolAttr(se, "Enable")
		case "Stencil":
			rs.Stencil = boolAttr(se, "Enable")
		case "ColorSrc":
			rs.VertexColor = boolAttr(se, "Enable")
			for i, c := range []string{"R", "G", "B", "A"} {
				v, ok := attr(se, "MatDiffuse"+c)
				if !ok {
					continue
				}
				f, err := strconv.ParseFloat(v, 32)
				if err != nil {
					return nil, fmt.Errorf("ColorSrc MatDiffuse%s: %w", c, err)
				}
				rs.MatDiffuse[i] = float32(f)
			}
		case "Misc":
			rs.CullMode, _ = attr(se, "CullMode")
			rs.Lighting = boolAttr(se, "Lighting")
		}
	}

	if rs.Name == "" {
		return nil, fmt.Errorf("no render state element with Name and TextureFactor attributes")
	}
	return rs, nil
}
