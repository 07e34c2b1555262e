package terrain

import (
	"fmt"
	"iter"

	"github.com/Faultbox/erinn/internal/material"
	"github.com/Faultbox/erinn/pkg/formats"
	"github.com/Faultbox/erinn/pkg/math"
)

// Resolver resolves terrain material slots.
type Resolver interface {
	ResolveSlot(slot uint32) *material.Material
}

// Options configure mesh generation.
type Options struct {
	WorldScale float32 // source millimetres to scene units
	PlaneSize  float32 // sample spacing in millimetres
	UVMode     UVMode
	Revision   formats.Revision // format revision assumed by Area
}

// Builder converts areas into batches. It holds no per-build state and its
// sequences can be iterated any number of times.
type Builder struct {
	opts      Options
	materials Resolver
}

// NewBuilder creates a builder. materials may be nil, leaving batches
// without material.
func NewBuilder(opts Options, materials Resolver) *Builder {
	return &Builder{opts: opts, materials: materials}
}

// Area yields a batch for every visible AreaPlane of area in row-major order.
func (b *Builder) Area(area *formats.Area) iter.Seq[Batch] {
	return b.area(area, b.opts.Revision)
}

// Region yields the batches of every area of region.
func (b *Builder) Region(region *formats.Region) iter.Seq2[*formats.Area, Batch] {
	return func(yield func(*formats.Area, Batch) bool) {
		for i := range region.Areas {
			area := &region.Areas[i]
			for batch := range b.area(area, region.Version) {
				if !yield(area, batch) {
					return
				}
			}
		}
	}
}

func (b *Builder) area(area *formats.Area, rev formats.Revision) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		for i := range area.AreaPlanes {
			ap := &area.AreaPlanes[i]
			if ap.Hidden() {
				continue
			}
			x, y := area.AreaPlaneCoord(i)
			if !yield(b.Build(area, ap, x, y, rev)) {
				return
			}
		}
	}
}

// planeSize returns the sample spacing in scene units.
func (b *Builder) planeSize() float32 {
	return b.opts.PlaneSize * b.opts.WorldScale
}

// Build creates the batch of one AreaPlane at grid coordinate (x, y).
func (b *Builder) Build(area *formats.Area, ap *formats.AreaPlane, x, y int, rev formats.Revision) Batch {
	s := b.planeSize()
	block := s * (formats.PlaneGridSize - 1)

	batch := Batch{
		Name: fmt.Sprintf("AreaPlane_%d_%d", x, y),
		Area: area.Name,
		X:    x,
		Y:    y,
		Origin: [3]float32{
			area.BottomLeftX*b.opts.WorldScale + float32(x)*block,
			0,
			area.BottomLeftY*b.opts.WorldScale + float32(y)*block,
		},
	}

	if ap.Flat() {
		buildFlat(&batch, ap.MinHeight*b.opts.WorldScale, block)
	} else {
		mode := b.opts.UVMode
		if mode == UVStored && !rev.HasPlaneUV() {
			mode = UVQuarterGrid
		}
		buildGrid(&batch, ap, s, b.opts.WorldScale, mode)
	}

	batch.Normals = computeNormals(batch.Positions, batch.Indices)
	batch.Bounds = computeBounds(batch.Origin, batch.Positions)

	if b.materials != nil {
		if slot, ok := ap.PrimarySlot(); ok {
			batch.Material = b.materials.ResolveSlot(slot)
		}
	}
	return batch
}

// buildFlat covers the whole block with one quad at height h.
func buildFlat(batch *Batch, h, block float32) {
	batch.Flat = true
	batch.Positions = [][3]float32{
		{0, h, 0},
		{0, h, block},
		{block, h, 0},
		{block, h, block},
	}
	batch.Indices = []uint32{1, 2, 0, 1, 3, 2}

	batch.UVs = make([][2]float32, len(batch.Positions))
	for i, p := range batch.Positions {
		uv := math.Vec3{X: p[0], Z: p[2]}.Normalize()
		batch.UVs[i] = [2]float32{uv.X, uv.Z}
	}
}

// buildGrid emits all 25 samples and two triangles per cell.
func buildGrid(batch *Batch, ap *formats.AreaPlane, s, worldScale float32, mode UVMode) {
	const n = formats.PlaneGridSize

	batch.UVMode = mode
	batch.Positions = make([][3]float32, formats.PlanesPerAreaPlane)
	batch.UVs = make([][2]float32, formats.PlanesPerAreaPlane)
	for i := range ap.Planes {
		x, y := formats.PlaneCoord(i)
		batch.Positions[i] = [3]float32{float32(x) * s, ap.Planes[i].Height * worldScale, float32(y) * s}

		switch mode {
		case UVGrid:
			batch.UVs[i] = [2]float32{float32(x), float32(y)}
		case UVStored:
			batch.UVs[i] = [2]float32{ap.Planes[i].U, ap.Planes[i].V}
		default:
			batch.UVs[i] = [2]float32{float32(x) * 0.25, float32(y) * 0.25}
		}
	}

	batch.Indices = make([]uint32, 0, (n-1)*(n-1)*6)
	for y := range n - 1 {
		for x := range n - 1 {
			i := uint32(y*n + x)
			batch.Indices = append(batch.Indices,
				i+1, i+n, i,
				i+1, i+n+1, i+n,
			)
		}
	}
}

// computeNormals averages face normals per vertex. Flat and general batches
// wind in opposite directions, so face normals are turned upward.
func computeNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	sums := make([]math.Vec3, len(positions))
	for t := 0; t+2 < len(indices); t += 3 {
		a := math.Vec3FromArray(positions[indices[t]])
		b := math.Vec3FromArray(positions[indices[t+1]])
		c := math.Vec3FromArray(positions[indices[t+2]])
		n := c.Sub(a).Cross(b.Sub(a))
		if n.Y < 0 {
			n = n.Scale(-1)
		}
		for _, idx := range indices[t : t+3] {
			sums[idx] = sums[idx].Add(n)
		}
	}

	normals := make([][3]float32, len(positions))
	for i, sum := range sums {
		if sum.Length() < 1e-8 {
			normals[i] = [3]float32{0, 1, 0}
			continue
		}
		normals[i] = sum.Normalize().Array()
	}
	return normals
}

func computeBounds(origin [3]float32, positions [][3]float32) Bounds {
	o := math.Vec3FromArray(origin)
	lo := math.Vec3{X: 1e10, Y: 1e10, Z: 1e10}
	hi := math.Vec3{X: -1e10, Y: -1e10, Z: -1e10}
	for _, p := range positions {
		world := o.Add(math.Vec3FromArray(p))
		lo = lo.Min(world)
		hi = hi.Max(world)
	}
	return Bounds{Min: lo.Array(), Max: hi.Array()}
}
