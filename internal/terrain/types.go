// Package terrain builds triangle mesh batches from region height grids.
//
// Scene space is Y up with source X mapped to scene X and source Y to
// scene Z.
package terrain

import (
	"fmt"

	"github.com/Faultbox/erinn/internal/material"
)

// UVMode selects how general-case batches get texture coordinates.
type UVMode int

const (
	// UVQuarterGrid repeats the texture once per four cells.
	UVQuarterGrid UVMode = iota
	// UVGrid repeats the texture once per cell.
	UVGrid
	// UVStored uses per-sample UVs. Only regions with plane UVs carry
	// them; others fall back to UVQuarterGrid.
	UVStored
)

// String returns the config name of the mode.
func (m UVMode) String() string {
	switch m {
	case UVQuarterGrid:
		return "quarter"
	case UVGrid:
		return "grid"
	case UVStored:
		return "stored"
	default:
		return fmt.Sprintf("UVMode(%d)", int(m))
	}
}

// ParseUVMode parses a config name.
func ParseUVMode(s string) (UVMode, error) {
	switch s {
	case "quarter", "":
		return UVQuarterGrid, nil
	case "grid":
		return UVGrid, nil
	case "stored":
		return UVStored, nil
	}
	return UVQuarterGrid, fmt.Errorf("unknown uv mode %q", s)
}

// Bounds holds an axis-aligned bounding box in scene units.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Batch is the mesh of one AreaPlane.
type Batch struct {
	Name   string // AreaPlane_<x>_<y>
	Area   string
	X, Y   int        // AreaPlane grid coordinate within the area
	Origin [3]float32 // scene position of the local origin

	Positions [][3]float32 // local to Origin
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint32

	Bounds   Bounds // scene space
	Flat     bool
	UVMode   UVMode // mode actually applied; flat batches use normalized corners
	Material *material.Material
}

// TriangleCount returns the number of triangles.
func (b *Batch) TriangleCount() int {
	return len(b.Indices) / 3
}
