package props

import (
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/erinn/internal/descdb"
	"github.com/Faultbox/erinn/internal/material"
	"github.com/Faultbox/erinn/pkg/formats"
	"github.com/Faultbox/erinn/pkg/math"
)

// ModelDir is searched recursively for class .set files.
const ModelDir = "gfx"

// ErrModelNotFound is returned when a class has no .set or .pmg file.
var ErrModelNotFound = errors.New("model not found")

// Transform is a decomposed local transform.
type Transform struct {
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
}

// Part is one drawable mesh of a model.
type Part struct {
	Name       string
	Mesh       *formats.PMGMesh
	Local      Transform
	ColorIndex int32
	Material   *material.Material
}

// Model is the geometry of one prop class, shared by its instances.
type Model struct {
	Handle    Handle
	ClassID   uint32
	ClassName string
	Entry     *descdb.PropEntry
	SetFile   string
	MeshFile  string
	Parts     []Part
}

// Files locates and reads model files.
type Files interface {
	Load(name string) ([]byte, error)
	Find(dir, fileName string) (string, bool)
}

// MaterialResolver resolves mesh texture names.
type MaterialResolver interface {
	Resolve(name string) *material.Material
}

func skipMesh(m *formats.PMGMesh) bool {
	return m.TextureName == "" || strings.Contains(m.TextureName, "__")
}

// loadModel reads the class's set, takes its first item and decodes the
// matching mesh file from the set's directory.
func (p *Placer) loadModel(entry *descdb.PropEntry) (*Model, error) {
	setFile, ok := p.files.Find(ModelDir, entry.ClassName+".set")
	if !ok {
		return nil, errors.Wrapf(ErrModelNotFound, "%s.set", entry.ClassName)
	}
	data, err := p.files.Load(setFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", setFile)
	}
	set, err := formats.ParseSet(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", setFile)
	}
	if len(set.Items) == 0 {
		return nil, errors.Wrapf(ErrModelNotFound, "%s has no items", setFile)
	}

	item := path.Base(strings.ReplaceAll(set.Items[0].FileName, "\\", "/"))
	if !strings.HasSuffix(strings.ToLower(item), ".pmg") {
		item += ".pmg"
	}
	meshFile, ok := p.files.Find(path.Dir(setFile), item)
	if !ok {
		return nil, errors.Wrapf(ErrModelNotFound, "%s referenced by %s", item, setFile)
	}
	data, err = p.files.Load(meshFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", meshFile)
	}
	pmg, err := formats.ParsePMG(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", meshFile)
	}

	model := &Model{
		ClassID:   entry.ClassID,
		ClassName: entry.ClassName,
		Entry:     entry,
		SetFile:   setFile,
		MeshFile:  meshFile,
	}
	for i := range pmg.Meshes {
		mesh := &pmg.Meshes[i]
		if skipMesh(mesh) {
			p.log.Debug("skipping mesh", zap.String("mesh", mesh.Name), zap.String("file", meshFile))
			continue
		}
		model.Parts = append(model.Parts, Part{
			Name: mesh.Name,
			Mesh: mesh,
			Local: Transform{
				Position: mesh.Transform.Position(),
				Rotation: mesh.Transform.Rotation(),
				Scale:    mesh.Transform.LossyScale(),
			},
			ColorIndex: mesh.ColorIndex,
			Material:   p.materials.Resolve(mesh.TextureName),
		})
	}
	return model, nil
}
