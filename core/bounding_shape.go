package core

import "math"

// growthFraction is the share of a mortal spot's lifetime spent growing from
// nothing to full size, and again shrinking at the end.
const growthFraction = 0.1

// BoundingShape is the image-plane footprint of one spot at one instant. The
// spot is a cap on the unit sphere; its rim is the circle
// CircleCenter + CircleRadius·(a·cos θ + b·sin θ).
type BoundingShape struct {
	Center       Point   // cap centre on the unit sphere
	Radius       float64 // chord radius after growth
	CircleCenter Point
	CircleRadius float64

	a, b         Point
	visible      bool
	onEdge       bool
	gridInterval float64
}

// ZSweep carries the z extent of the previous row of a y sweep so the next
// row can start its edge walk from there. The zero value starts a new sweep.
type ZSweep struct {
	prev  Bounds
	valid bool
}

// Reset forgets the previous row.
func (z *ZSweep) Reset() { *z = ZSweep{} }

// NewBoundingShape builds the footprint of spot at time t (days).
func NewBoundingShape(spot *Spot, t float64) BoundingShape {
	return newBoundingShape(spot, t, spot.RadiusAt(t))
}

func newBoundingShape(spot *Spot, t, radius float64) BoundingShape {
	star := spot.star
	center := sphericalPosition(star, spot.Latitude, spot.Longitude, t)

	depth := math.Sqrt(1 - radius*radius)
	circleRadius := math.Sqrt(radius*radius - (1-depth)*(1-depth))
	circleCenter := center.Scale(depth)

	shape := BoundingShape{
		Center:       center,
		Radius:       radius,
		CircleCenter: circleCenter,
		CircleRadius: circleRadius,
		gridInterval: 2 / float64(star.GridSize),
	}
	if !(radius > 0) || math.IsNaN(circleRadius) || math.IsNaN(depth) {
		return shape
	}

	shape.a, shape.b = rimBasis(center)
	// a.X is zero, so the rim reaches x = cc.x ± R·|b.x|.
	reach := circleRadius * math.Abs(shape.b.X)
	shape.visible = circleCenter.X+reach > 0
	shape.onEdge = circleCenter.X-reach <= 0
	return shape
}

// sphericalPosition returns the direction of a surface point at latitude and
// longitude (radians) after the star has turned for t days, seen from the
// observer on +x.
func sphericalPosition(star *Star, latitude, longitude, t float64) Point {
	phase := math.Mod(t, star.Period) / star.Period * 2 * math.Pi
	theta := phase + longitude
	phi := math.Pi/2 - latitude
	sinPhi, cosPhi := math.Sincos(phi)
	sinTheta, cosTheta := math.Sincos(theta)
	p := Point{X: sinPhi * cosTheta, Y: sinPhi * sinTheta, Z: cosPhi}
	return p.RotatedY(star.Inclination - math.Pi/2)
}

// rimBasis returns an orthonormal pair spanning the plane perpendicular to the
// unit vector center, with a.X == 0.
func rimBasis(center Point) (a, b Point) {
	h := math.Hypot(center.Y, center.Z)
	if h == 0 {
		a = Point{Z: 1}
	} else {
		a = Point{Y: -center.Z / h, Z: center.Y / h}
	}
	b = center.Cross(a)
	return a, b.Scale(1 / b.Norm())
}

// Visible reports whether any part of the rim lies on the front hemisphere.
func (s BoundingShape) Visible() bool { return s.visible }

// rim returns the rim point at angle theta.
func (s BoundingShape) rim(theta float64) Point {
	sin, cos := math.Sincos(theta)
	return s.CircleCenter.Add(s.a.Scale(s.CircleRadius * cos)).Add(s.b.Scale(s.CircleRadius * sin))
}

// YBounds returns the y range covered by the spot on the disk, or false when
// the spot is entirely behind the limb.
func (s BoundingShape) YBounds() (Bounds, bool) {
	if !s.visible {
		return Bounds{}, false
	}
	half := s.CircleRadius * math.Hypot(s.a.Y, s.b.Y)
	yb := NewBounds(s.CircleCenter.Y-half, s.CircleCenter.Y+half)
	if s.onEdge {
		// Part of the cap is on the limb, so its outline is not the rim.
		yb = NewBounds(s.Center.Y-s.Radius, s.Center.Y+s.Radius)
	}
	if math.IsNaN(yb.Lower) || math.IsNaN(yb.Upper) {
		return Bounds{}, false
	}
	return yb.Clip(-1, 1)
}

// ZBounds returns the z extent of the visible part of the spot on row y, or
// false when the row misses it. Consecutive rows of one sweep should share
// the same ZSweep.
func (s BoundingShape) ZBounds(y float64, sweep *ZSweep) (Bounds, bool) {
	if !s.visible || math.Abs(y) >= 1 {
		sweep.Reset()
		return Bounds{}, false
	}

	var (
		zb Bounds
		ok bool
	)
	if s.onEdge {
		zb, ok = s.walkZBounds(y, sweep)
	} else {
		zb, ok = s.closedZBounds(y)
	}
	if !ok {
		sweep.Reset()
		return Bounds{}, false
	}
	sweep.prev, sweep.valid = zb, true
	return zb, true
}

// ZSpans appends the on-spot z intervals of row y to dst. A cap centred just
// behind the limb can show two arcs on one row, one at each end, and ZSpans
// returns them separately instead of the single extent ZBounds reports.
func (s BoundingShape) ZSpans(y float64, sweep *ZSweep, dst []Bounds) []Bounds {
	zb, ok := s.ZBounds(y, sweep)
	if !ok {
		return dst
	}
	if !s.onEdge {
		return append(dst, zb)
	}
	gap, ok := s.limbGap(y)
	if !ok || gap.Lower <= zb.Lower || gap.Upper >= zb.Upper {
		return append(dst, zb)
	}
	return append(dst, Bounds{Lower: zb.Lower, Upper: gap.Lower}, Bounds{Lower: gap.Upper, Upper: zb.Upper})
}

// limbGap returns the off-spot z interval separating two visible arcs on row
// y, if there is one. The row is the circle x = w·cos φ, z = w·sin φ and the
// cap keeps the arc where p·c ≥ 1 - r²/2, so the gap is the complementary arc
// when it lies wholly on the front half.
func (s BoundingShape) limbGap(y float64) (Bounds, bool) {
	w := math.Sqrt(1 - y*y)
	c := s.Center
	amp := math.Hypot(c.X, c.Z)
	if !(w > 0) || amp == 0 {
		return Bounds{}, false
	}
	k := (1 - s.Radius*s.Radius/2 - c.Y*y) / (w * amp)
	if !(k > -1 && k < 1) {
		return Bounds{}, false
	}
	centre := math.Atan2(-c.Z, -c.X)
	half := math.Pi - math.Acos(k)
	lo, hi := centre-half, centre+half
	if lo <= -math.Pi/2 || hi >= math.Pi/2 {
		return Bounds{}, false
	}
	return Bounds{Lower: w * math.Sin(lo), Upper: w * math.Sin(hi)}, true
}

// closedZBounds intersects the projected rim with the row y. It is exact as
// long as the whole rim is in front of the limb.
func (s BoundingShape) closedZBounds(y float64) (Bounds, bool) {
	amp := math.Hypot(s.a.Y, s.b.Y)
	if amp == 0 || s.CircleRadius == 0 {
		return Bounds{}, false
	}
	k := (y - s.CircleCenter.Y) / (s.CircleRadius * amp)
	if math.IsNaN(k) || k < -1 || k > 1 {
		return Bounds{}, false
	}
	phase := math.Atan2(s.b.Y, s.a.Y)
	delta := math.Acos(k)
	z1 := s.rim(phase + delta).Z
	z2 := s.rim(phase - delta).Z
	if math.IsNaN(z1) || math.IsNaN(z2) {
		return Bounds{}, false
	}
	return NewBounds(z1, z2), true
}

// walkZBounds finds the row extent by stepping along z and testing OnSpot.
// It starts from the previous row when there is one and otherwise sweeps the
// full height of the cap.
func (s BoundingShape) walkZBounds(y float64, sweep *ZSweep) (Bounds, bool) {
	if sweep.valid {
		if zb, ok := s.ansatzZBounds(y, sweep.prev); ok {
			return zb, true
		}
	}
	return s.bruteZBounds(y)
}

func (s BoundingShape) ansatzZBounds(y float64, guess Bounds) (Bounds, bool) {
	step := s.gridInterval
	maxSteps := int(2/step) + 2

	lower, upper := guess.Lower, guess.Upper
	if s.OnSpot(y, lower) {
		lower = s.walkOutward(y, lower, -step, maxSteps)
	} else {
		found := false
		for i := 0; i < maxSteps && lower <= upper; i++ {
			lower += step
			if s.OnSpot(y, lower) {
				found = true
				break
			}
		}
		if !found {
			return Bounds{}, false
		}
	}

	if s.OnSpot(y, upper) {
		upper = s.walkOutward(y, upper, step, maxSteps)
	} else {
		found := false
		for i := 0; i < maxSteps && upper >= lower; i++ {
			upper -= step
			if s.OnSpot(y, upper) {
				found = true
				break
			}
		}
		if !found {
			return Bounds{}, false
		}
	}
	return NewBounds(lower, upper), true
}

// walkOutward steps from z (on the spot) by step while the next point is
// still on the spot and returns the last point that was.
func (s BoundingShape) walkOutward(y, z, step float64, maxSteps int) float64 {
	for i := 0; i < maxSteps; i++ {
		next := z + step
		if !s.OnSpot(y, next) {
			break
		}
		z = next
	}
	return z
}

func (s BoundingShape) bruteZBounds(y float64) (Bounds, bool) {
	lo := math.Max(s.Center.Z-s.Radius, -1)
	hi := math.Min(s.Center.Z+s.Radius, 1)
	var (
		zb    Bounds
		found bool
	)
	for z := range FloatRange(lo, hi, s.gridInterval) {
		if !s.OnSpot(y, z) {
			continue
		}
		if !found {
			zb.Lower = z
			found = true
		}
		zb.Upper = z
	}
	return zb, found
}

// OnSpot reports whether the disk point (y, z) is on the visible face of the
// star and within the spot.
func (s BoundingShape) OnSpot(y, z float64) bool {
	r2 := y*y + z*z
	if r2 > 1 {
		return false
	}
	p := Point{X: math.Sqrt(1 - r2), Y: y, Z: z}
	d := p.Sub(s.Center)
	return d.Dot(d) <= s.Radius*s.Radius
}

// CollidesWith reports whether the full-size footprints of two spots overlap.
// Both are placed at t = 0 and growth is ignored.
func (s BoundingShape) CollidesWith(other BoundingShape) bool {
	return s.Center.DistanceTo(other.Center) < s.Radius+other.Radius
}
