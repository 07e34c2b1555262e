package props

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/erinn/pkg/codec"
	"github.com/Faultbox/erinn/pkg/formats"
	"github.com/Faultbox/erinn/pkg/math"
)

func near(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-4
}

func TestToScene(t *testing.T) {
	tests := []struct {
		name     string
		prop     formats.Prop
		position math.Vec3
		rotation float32
		scale    float32
	}{
		{
			name:     "axis swap",
			prop:     formats.Prop{Position: [3]float32{1000, 2000, 300}, Scale: 1},
			position: math.Vec3{X: 10, Y: 3, Z: 20},
			rotation: -90,
			scale:    0.01,
		},
		{
			name:     "half turn",
			prop:     formats.Prop{Rotation: gomath.Pi, Scale: 2},
			rotation: -270,
			scale:    0.02,
		},
		{
			name:     "negative rotation",
			prop:     formats.Prop{Rotation: -gomath.Pi / 2, Scale: 1},
			rotation: 0,
			scale:    0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ToScene(&tt.prop, 0.01)
			if !near(p.Position.X, tt.position.X) || !near(p.Position.Y, tt.position.Y) || !near(p.Position.Z, tt.position.Z) {
				t.Errorf("position: expected %v, got %v", tt.position, p.Position)
			}
			if !near(p.RotationY, tt.rotation) {
				t.Errorf("rotation: expected %f, got %f", tt.rotation, p.RotationY)
			}
			if !near(p.Scale, tt.scale) {
				t.Errorf("scale: expected %f, got %f", tt.scale, p.Scale)
			}
			if q := p.Rotation; !near(q.X, 0) || !near(q.Z, 0) {
				t.Errorf("rotation must be around Y only, got %+v", q)
			}
		})
	}
}

func TestPlacementMatrix(t *testing.T) {
	p := ToScene(&formats.Prop{Position: [3]float32{100, 0, 0}, Rotation: -gomath.Pi / 2, Scale: 100}, 0.01)
	m := p.Matrix()
	if pos := m.Position(); !near(pos.X, 1) || !near(pos.Y, 0) || !near(pos.Z, 0) {
		t.Errorf("unexpected translation %v", pos)
	}
	if s := m.LossyScale(); !near(s.X, 1) || !near(s.Y, 1) || !near(s.Z, 1) {
		t.Errorf("unexpected scale %v", s)
	}
}

func TestTextureFactor(t *testing.T) {
	tests := []struct {
		color codec.Color
		want  [4]float32
	}{
		{codec.Color{A: 0xFF, R: 0x80, G: 0x80, B: 0x80}, [4]float32{1, 1, 1, 1}},
		{codec.Color{R: 0x40, G: 0x00, B: 0xFF}, [4]float32{0.5, 0, 1, 1}},
		{codec.Color{A: 0x10, R: 0x20, G: 0x60, B: 0x7F}, [4]float32{0.25, 0.75, 127.0 / 128, 1}},
	}

	for _, tt := range tests {
		got := TextureFactor(tt.color)
		for i := range got {
			if !near(got[i], tt.want[i]) {
				t.Errorf("TextureFactor(%+v) = %v, want %v", tt.color, got, tt.want)
				break
			}
		}
	}
}
