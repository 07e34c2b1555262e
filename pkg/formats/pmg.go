package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/erinn/pkg/codec"
	"github.com/Faultbox/erinn/pkg/math"
)

// PMG format errors.
var (
	ErrInvalidPMGMagic = errors.New("invalid PMG magic: expected 'pmg\\x00'")
)

const (
	pmgMagic       = "pmg\x00"
	pmgNameSize    = 128
	pmgVertexSize  = 12 + 8
	pmgMinMeshSize = pmgNameSize*2 + 64 + 4 + 1 + 4 + 4
)

// PMGFlags describes how a mesh is drawn.
type PMGFlags uint8

const (
	PMGTextured    PMGFlags = 1 << 0
	PMGTransparent PMGFlags = 1 << 1
)

// PMGVertex is a mesh vertex.
type PMGVertex struct {
	Position [3]float32
	UV       [2]float32
}

// PMGMesh is one textured part of a prop model.
type PMGMesh struct {
	Name        string
	TextureName string
	Transform   math.Mat4
	ColorIndex  int32 // index into the placing prop's colour overrides
	Flags       PMGFlags
	Vertices    []PMGVertex
	Indices     []uint16
}

// Textured reports whether the mesh samples a texture.
func (m *PMGMesh) Textured() bool { return m.Flags&PMGTextured != 0 }

// Transparent reports whether the mesh needs alpha blending.
func (m *PMGMesh) Transparent() bool { return m.Flags&PMGTransparent != 0 }

// PMG is a parsed mesh container.
type PMG struct {
	Version uint16
	Meshes  []PMGMesh
}

// ParsePMG parses a PMG mesh container from raw bytes.
func ParsePMG(data []byte) (*PMG, error) {
	r := codec.NewReader(data)

	magic, err := r.Bytes(4, "magic")
	if err != nil {
		return nil, err
	}
	if string(magic) != pmgMagic {
		return nil, ErrInvalidPMGMagic
	}

	pmg := &PMG{}
	if pmg.Version, err = r.Uint16("version"); err != nil {
		return nil, err
	}

	meshCount, err := r.Uint32("mesh count")
	if err != nil {
		return nil, err
	}
	if int(meshCount)*pmgMinMeshSize > r.Remaining() {
		return nil, r.Malformed("mesh count", fmt.Sprintf("%d meshes cannot fit in %d bytes", meshCount, r.Remaining()))
	}

	pmg.Meshes = make([]PMGMesh, meshCount)
	for i := range pmg.Meshes {
		if err := readPMGMesh(r, &pmg.Meshes[i]); err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
	}

	return pmg, nil
}

func readPMGMesh(r *codec.Reader, m *PMGMesh) error {
	var err error

	if m.Name, err = r.FixedString(pmgNameSize, "mesh name"); err != nil {
		return err
	}
	if m.TextureName, err = r.FixedString(pmgNameSize, "texture name"); err != nil {
		return err
	}
	if m.Transform, err = r.Mat4("transform"); err != nil {
		return err
	}
	if m.ColorIndex, err = r.Int32("color index"); err != nil {
		return err
	}
	flags, err := r.Uint8("flags")
	if err != nil {
		return err
	}
	m.Flags = PMGFlags(flags)

	vertexCount, err := r.Uint32("vertex count")
	if err != nil {
		return err
	}
	if int(vertexCount)*pmgVertexSize > r.Remaining() {
		return r.Malformed("vertex count", fmt.Sprintf("%d vertices cannot fit in %d bytes", vertexCount, r.Remaining()))
	}
	m.Vertices = make([]PMGVertex, vertexCount)
	for i := range m.Vertices {
		v := &m.Vertices[i]
		pos, err := r.Vec3("vertex position")
		if err != nil {
			return err
		}
		v.Position = pos.Array()
		if v.UV[0], err = r.Float32("vertex u"); err != nil {
			return err
		}
		if v.UV[1], err = r.Float32("vertex v"); err != nil {
			return err
		}
	}

	indexCount, err := r.Uint32("index count")
	if err != nil {
		return err
	}
	if int(indexCount)*2 > r.Remaining() {
		return r.Malformed("index count", fmt.Sprintf("%d indices cannot fit in %d bytes", indexCount, r.Remaining()))
	}
	m.Indices = make([]uint16, indexCount)
	for i := range m.Indices {
		if m.Indices[i], err = r.Uint16("index"); err != nil {
			return err
		}
		if int(m.Indices[i]) >= len(m.Vertices) {
			return r.Malformed("index", fmt.Sprintf("index %d out of range for %d vertices", m.Indices[i], len(m.Vertices)))
		}
	}

	return nil
}

// Encode serializes the container in the layout ParsePMG reads.
func (p *PMG) Encode() []byte {
	w := codec.NewWriter()
	w.PutBytes([]byte(pmgMagic))
	w.PutUint16(p.Version)
	w.PutUint32(uint32(len(p.Meshes)))

	for _, m := range p.Meshes {
		w.PutFixedString(m.Name, pmgNameSize)
		w.PutFixedString(m.TextureName, pmgNameSize)
		w.PutMat4(m.Transform)
		w.PutInt32(m.ColorIndex)
		w.PutUint8(uint8(m.Flags))
		w.PutUint32(uint32(len(m.Vertices)))
		for _, v := range m.Vertices {
			w.PutFloat32(v.Position[0])
			w.PutFloat32(v.Position[1])
			w.PutFloat32(v.Position[2])
			w.PutFloat32(v.UV[0])
			w.PutFloat32(v.UV[1])
		}
		w.PutUint32(uint32(len(m.Indices)))
		for _, idx := range m.Indices {
			w.PutUint16(idx)
		}
	}

	return w.Bytes()
}

// ParsePMGFile parses a PMG file from disk.
func ParsePMGFile(path string) (*PMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PMG file: %w", err)
	}
	return ParsePMG(data)
}
