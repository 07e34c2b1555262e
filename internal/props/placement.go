// Package props places region props into the scene and materializes their models.
package props

import (
	gomath "math"

	"github.com/Faultbox/erinn/pkg/codec"
	"github.com/Faultbox/erinn/pkg/formats"
	"github.com/Faultbox/erinn/pkg/math"
)

// rotationOffset turns the source's facing axis onto scene forward, in degrees.
const rotationOffset = 90

// Placement is a prop transform in scene space.
type Placement struct {
	Position  math.Vec3
	RotationY float32 // degrees around the vertical axis
	Rotation  math.Quat
	Scale     float32 // uniform
}

// Matrix returns the placement as a transform matrix.
func (p Placement) Matrix() math.Mat4 {
	return math.Compose(p.Position, p.Rotation, math.Vec3{X: p.Scale, Y: p.Scale, Z: p.Scale})
}

// ToScene converts a stored prop transform into scene space.
//
// Source axes are X east, Y north, Z up in millimetres with rotation in
// radians. Scene axes are Y up: the position becomes (x, z, y) scaled by
// worldScale, the rotation is negated into degrees and shifted by -90, and
// the stored scale is multiplied by worldScale.
func ToScene(p *formats.Prop, worldScale float32) Placement {
	deg := -p.Rotation*180/gomath.Pi - rotationOffset
	return Placement{
		Position: math.Vec3{
			X: p.Position[0] * worldScale,
			Y: p.Position[2] * worldScale,
			Z: p.Position[1] * worldScale,
		},
		RotationY: deg,
		Rotation:  math.QuatFromAxisAngle(math.Vec3{Y: 1}, deg*gomath.Pi/180),
		Scale:     p.Scale * worldScale,
	}
}

// TextureFactor converts a colour override into a tint where 0x80 is neutral.
func TextureFactor(c codec.Color) [4]float32 {
	channel := func(v uint8) float32 {
		return min(float32(v)/128, 1)
	}
	return [4]float32{channel(c.R), channel(c.G), channel(c.B), 1}
}

// White is the tint of meshes without a colour override.
var White = [4]float32{1, 1, 1, 1}
