package core

import "math"

// Point is a position in the observer frame, in units of the stellar radius.
// The x axis points at the observer; y and z span the plane of the sky.
type Point struct {
	X, Y, Z float64
}

// RotatedX returns p rotated by angle radians about the x axis.
func (p Point) RotatedX(angle float64) Point {
	sin, cos := math.Sincos(angle)
	return Point{
		X: p.X,
		Y: p.Y*cos - p.Z*sin,
		Z: p.Y*sin + p.Z*cos,
	}
}

// RotatedY returns p rotated by angle radians about the y axis.
func (p Point) RotatedY(angle float64) Point {
	sin, cos := math.Sincos(angle)
	return Point{
		X: p.Z*sin + p.X*cos,
		Y: p.Y,
		Z: p.Z*cos - p.X*sin,
	}
}

// RotatedZ returns p rotated by angle radians about the z axis.
func (p Point) RotatedZ(angle float64) Point {
	sin, cos := math.Sincos(angle)
	return Point{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
		Z: p.Z,
	}
}

// Scale returns p multiplied by k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k, Z: p.Z * k}
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

// Dot returns the dot product of two points taken as vectors.
func (p Point) Dot(other Point) float64 {
	return p.X*other.X + p.Y*other.Y + p.Z*other.Z
}

// Cross returns the cross product p × other.
func (p Point) Cross(other Point) Point {
	return Point{
		X: p.Y*other.Z - p.Z*other.Y,
		Y: p.Z*other.X - p.X*other.Z,
		Z: p.X*other.Y - p.Y*other.X,
	}
}

// Norm returns the Euclidean norm of the vector.
func (p Point) Norm() float64 {
	return math.Sqrt(p.Dot(p))
}

// DistanceTo returns the straight-line distance between two points.
func (p Point) DistanceTo(other Point) float64 {
	return p.Sub(other).Norm()
}

// Bounds is a closed interval with Lower <= Upper.
type Bounds struct {
	Lower, Upper float64
}

// NewBounds builds an interval from two values in either order.
func NewBounds(a, b float64) Bounds {
	if b < a {
		a, b = b, a
	}
	return Bounds{Lower: a, Upper: b}
}

// Width returns Upper - Lower.
func (b Bounds) Width() float64 { return b.Upper - b.Lower }

// Contains reports whether v lies in the closed interval.
func (b Bounds) Contains(v float64) bool { return v >= b.Lower && v <= b.Upper }

// Clip returns the intersection of b with [lo, hi] and whether it is non-empty.
func (b Bounds) Clip(lo, hi float64) (Bounds, bool) {
	out := Bounds{Lower: math.Max(b.Lower, lo), Upper: math.Min(b.Upper, hi)}
	if out.Lower > out.Upper {
		return Bounds{}, false
	}
	return out, true
}
