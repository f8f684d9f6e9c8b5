package core

import (
	"math"
	"testing"
)

const geomTol = 1e-12

func pointsClose(a, b Point) bool {
	return math.Abs(a.X-b.X) < geomTol && math.Abs(a.Y-b.Y) < geomTol && math.Abs(a.Z-b.Z) < geomTol
}

func TestRotationsAreRightHanded(t *testing.T) {
	cases := []struct {
		name string
		got  Point
		want Point
	}{
		{"x turns y into z", Point{Y: 1}.RotatedX(math.Pi / 2), Point{Z: 1}},
		{"y turns z into x", Point{Z: 1}.RotatedY(math.Pi / 2), Point{X: 1}},
		{"z turns x into y", Point{X: 1}.RotatedZ(math.Pi / 2), Point{Y: 1}},
		{"full turn", Point{X: 0.3, Y: -0.4, Z: 0.5}.RotatedY(2 * math.Pi), Point{X: 0.3, Y: -0.4, Z: 0.5}},
	}
	for _, tc := range cases {
		if !pointsClose(tc.got, tc.want) {
			t.Errorf("%s: got %+v, want %+v", tc.name, tc.got, tc.want)
		}
	}
}

func TestRotationPreservesNorm(t *testing.T) {
	p := Point{X: 0.2, Y: 0.7, Z: -0.1}
	q := p.RotatedX(0.3).RotatedY(-1.1).RotatedZ(2.4)
	if math.Abs(p.Norm()-q.Norm()) > geomTol {
		t.Fatalf("norm changed: %v -> %v", p.Norm(), q.Norm())
	}
}

func TestCross(t *testing.T) {
	got := Point{X: 1}.Cross(Point{Y: 1})
	if !pointsClose(got, Point{Z: 1}) {
		t.Fatalf("x × y = %+v, want z", got)
	}
}

func TestNewBoundsOrdersEnds(t *testing.T) {
	if got := NewBounds(1, 0); got != (Bounds{Lower: 0, Upper: 1}) {
		t.Fatalf("NewBounds(1, 0) = %+v, want {0 1}", got)
	}
	if got := NewBounds(-2, 3); got != (Bounds{Lower: -2, Upper: 3}) {
		t.Fatalf("NewBounds(-2, 3) = %+v, want {-2 3}", got)
	}
	if got := NewBounds(4, 4); got.Width() != 0 {
		t.Fatalf("NewBounds(4, 4).Width() = %v, want 0", got.Width())
	}
}

func TestBoundsClip(t *testing.T) {
	b, ok := NewBounds(-1.5, 0.5).Clip(-1, 1)
	if !ok || b != (Bounds{Lower: -1, Upper: 0.5}) {
		t.Fatalf("Clip = %+v, %v, want {-1 0.5}, true", b, ok)
	}
	if _, ok := NewBounds(2, 3).Clip(-1, 1); ok {
		t.Fatalf("Clip of disjoint interval reported non-empty")
	}
}

func TestLinspaceAndFloatRange(t *testing.T) {
	xs := Linspace(-1, 1, 5)
	want := []float64{-1, -0.5, 0, 0.5, 1}
	for i := range want {
		if xs[i] != want[i] {
			t.Fatalf("Linspace[%d] = %v, want %v", i, xs[i], want[i])
		}
	}

	var got []float64
	for v := range FloatRange(0, 1, 0.25) {
		got = append(got, v)
	}
	if len(got) != 5 || got[4] != 1 {
		t.Fatalf("FloatRange(0, 1, 0.25) = %v, want 5 values ending at 1", got)
	}

	got = got[:0]
	for v := range FloatRange(0.3, 0.3, 0.1) {
		got = append(got, v)
	}
	if len(got) != 1 || got[0] != 0.3 {
		t.Fatalf("degenerate FloatRange = %v, want [0.3]", got)
	}
}
