package math

import (
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 0, 4}.Normalize()
	if l := n.Length(); l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should stay zero")
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3FromArray([3]float32{1, -2, 3})
	b := Vec3{X: -1, Y: 4, Z: 3}

	if got := a.Min(b); got != (Vec3{X: -1, Y: -2, Z: 3}) {
		t.Errorf("Min = %v", got)
	}
	if got := a.Max(b); got != (Vec3{X: 1, Y: 4, Z: 3}) {
		t.Errorf("Max = %v", got)
	}
	if a.Array() != [3]float32{1, -2, 3} {
		t.Errorf("Array round trip = %v", a.Array())
	}
}
