// Package export writes terrain batches and placed props to glTF.
//
// Scene space is left-handed with Y up. glTF is right-handed, so Z is
// negated on the way out.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/erinn/internal/material"
	"github.com/Faultbox/erinn/internal/props"
	"github.com/Faultbox/erinn/internal/terrain"
	"github.com/Faultbox/erinn/pkg/formats"
	"github.com/Faultbox/erinn/pkg/math"
)

// Options configure the exported document.
type Options struct {
	DoubleSided bool
}

type materialKey struct {
	m    *material.Material
	tint [4]float32
}

type meshKey struct {
	mesh     *formats.PMGMesh
	material uint32
}

type accessors struct {
	position, uv, indices uint32
}

// Writer accumulates a glTF document.
type Writer struct {
	doc  *gltf.Document
	opts Options

	materials map[materialKey]uint32
	meshes    map[meshKey]uint32
	buffers   map[*formats.PMGMesh]accessors
}

// NewWriter creates a writer with an empty scene.
func NewWriter(opts Options) *Writer {
	return &Writer{
		doc:       gltf.NewDocument(),
		opts:      opts,
		materials: make(map[materialKey]uint32),
		meshes:    make(map[meshKey]uint32),
		buffers:   make(map[*formats.PMGMesh]accessors),
	}
}

// Document returns the document built so far.
func (w *Writer) Document() *gltf.Document {
	return w.doc
}

func flipZ(v [3]float32) [3]float32 {
	return [3]float32{v[0], v[1], -v[2]}
}

func flipRotation(q math.Quat) [4]float32 {
	return [4]float32{-q.X, -q.Y, q.Z, q.W}
}

func (w *Writer) addNode(n *gltf.Node) uint32 {
	if n.Rotation == [4]float32{} {
		n.Rotation = [4]float32{0, 0, 0, 1}
	}
	if n.Scale == [3]float32{} {
		n.Scale = [3]float32{1, 1, 1}
	}
	w.doc.Nodes = append(w.doc.Nodes, n)
	return uint32(len(w.doc.Nodes) - 1)
}

func (w *Writer) addRoot(name string, children []uint32) {
	if len(children) == 0 {
		return
	}
	root := w.addNode(&gltf.Node{Name: name, Children: children})
	w.doc.Scenes[0].Nodes = append(w.doc.Scenes[0].Nodes, root)
}

// material returns the index of the glTF material for m tinted by tint.
func (w *Writer) material(m *material.Material, tint [4]float32) uint32 {
	key := materialKey{m, tint}
	if idx, ok := w.materials[key]; ok {
		return idx
	}

	color := tint
	mat := &gltf.Material{
		Name:        "default",
		DoubleSided: w.opts.DoubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &color,
		},
	}
	if m != nil {
		mat.Name = m.Name
		extras := map[string]any{"origin": m.Origin.String()}
		if m.Texture != nil {
			extras["texture"] = m.Texture.Path
		}
		if m.RenderState != nil {
			mat.DoubleSided = mat.DoubleSided || m.RenderState.DoubleSided
			if m.RenderState.AlphaBlend {
				mat.AlphaMode = gltf.AlphaBlend
			} else if m.RenderState.AlphaTest {
				mat.AlphaMode = gltf.AlphaMask
			}
		}
		mat.Extras = extras
	}

	idx := uint32(len(w.doc.Materials))
	w.doc.Materials = append(w.doc.Materials, mat)
	w.materials[key] = idx
	return idx
}

// AddTerrain adds one mesh and node per batch under a "Terrain" root node.
func (w *Writer) AddTerrain(batches []terrain.Batch) {
	var children []uint32
	for i := range batches {
		b := &batches[i]

		positions := make([][3]float32, len(b.Positions))
		for j, p := range b.Positions {
			positions[j] = flipZ(p)
		}
		normals := make([][3]float32, len(b.Normals))
		for j, n := range b.Normals {
			normals[j] = flipZ(n)
		}

		attributes := map[string]uint32{
			"POSITION":   modeler.WritePosition(w.doc, positions),
			"TEXCOORD_0": modeler.WriteTextureCoord(w.doc, b.UVs),
		}
		if len(normals) == len(positions) {
			attributes["NORMAL"] = modeler.WriteNormal(w.doc, normals)
		}
		indices := modeler.WriteIndices(w.doc, b.Indices)

		w.doc.Meshes = append(w.doc.Meshes, &gltf.Mesh{
			Name: b.Name,
			Primitives: []*gltf.Primitive{{
				Indices:    gltf.Index(indices),
				Attributes: attributes,
				Material:   gltf.Index(w.material(b.Material, props.White)),
			}},
		})

		name := b.Name
		if b.Area != "" {
			name = fmt.Sprintf("%s/%s", b.Area, b.Name)
		}
		children = append(children, w.addNode(&gltf.Node{
			Name:        name,
			Mesh:        gltf.Index(uint32(len(w.doc.Meshes) - 1)),
			Translation: flipZ(b.Origin),
		}))
	}
	w.addRoot("Terrain", children)
}

// partBuffers writes the vertex data of mesh once.
func (w *Writer) partBuffers(mesh *formats.PMGMesh) accessors {
	if a, ok := w.buffers[mesh]; ok {
		return a
	}
	positions := make([][3]float32, len(mesh.Vertices))
	uvs := make([][2]float32, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		positions[i] = flipZ(v.Position)
		uvs[i] = v.UV
	}
	indices := make([]uint32, len(mesh.Indices))
	for i, idx := range mesh.Indices {
		indices[i] = uint32(idx)
	}
	a := accessors{
		position: modeler.WritePosition(w.doc, positions),
		uv:       modeler.WriteTextureCoord(w.doc, uvs),
		indices:  modeler.WriteIndices(w.doc, indices),
	}
	w.buffers[mesh] = a
	return a
}

func (w *Writer) partMesh(model *props.Model, part *props.Part, tint [4]float32) uint32 {
	mat := w.material(part.Material, tint)
	key := meshKey{part.Mesh, mat}
	if idx, ok := w.meshes[key]; ok {
		return idx
	}

	a := w.partBuffers(part.Mesh)
	w.doc.Meshes = append(w.doc.Meshes, &gltf.Mesh{
		Name: model.ClassName + "/" + part.Name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(a.indices),
			Attributes: map[string]uint32{"POSITION": a.position, "TEXCOORD_0": a.uv},
			Material:   gltf.Index(mat),
		}},
	})
	idx := uint32(len(w.doc.Meshes) - 1)
	w.meshes[key] = idx
	return idx
}

// AddProps adds a node per instance under a "Props" root node. Instances
// of one model share vertex buffers.
func (w *Writer) AddProps(instances []*props.Instance) {
	var children []uint32
	for _, inst := range instances {
		var parts []uint32
		for i := range inst.Model.Parts {
			part := &inst.Model.Parts[i]
			parts = append(parts, w.addNode(&gltf.Node{
				Name:        part.Name,
				Mesh:        gltf.Index(w.partMesh(inst.Model, part, inst.Tints[i])),
				Translation: flipZ(part.Local.Position.Array()),
				Rotation:    flipRotation(part.Local.Rotation),
				Scale:       part.Local.Scale.Array(),
			}))
		}

		p := inst.Placement
		children = append(children, w.addNode(&gltf.Node{
			Name:        fmt.Sprintf("%s_%d", inst.Model.ClassName, inst.Handle),
			Children:    parts,
			Translation: flipZ(p.Position.Array()),
			Rotation:    flipRotation(p.Rotation),
			Scale:       [3]float32{p.Scale, p.Scale, p.Scale},
		}))
	}
	w.addRoot("Props", children)
}

// Encode writes the document as GLB when binary is set, JSON with embedded
// buffers otherwise.
func (w *Writer) Encode(out io.Writer, binary bool) error {
	if !binary {
		for _, b := range w.doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
	}
	enc := gltf.NewEncoder(out)
	enc.AsBinary = binary
	if err := enc.Encode(w.doc); err != nil {
		return errors.Wrap(err, "encoding gltf")
	}
	return nil
}

// Save writes the document to path.
func (w *Writer) Save(path string, binary bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := w.Encode(f, binary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
