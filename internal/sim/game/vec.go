package game

import "math"

// Vec3 is a right-handed world-space vector. All simulation geometry is
// float64; the wire format carries [3]float64 arrays.
type Vec3 struct {
	X, Y, Z float64
}

func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func FromArr(a [3]float64) Vec3 { return Vec3{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3) Arr() [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) LenSq() float64 { return v.Dot(v) }

func (v Vec3) Len() float64 { return math.Sqrt(v.LenSq()) }

// Normalized returns the unit vector, or the zero vector for degenerate
// input so callers never divide by zero.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l < 1e-9 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

func (v Vec3) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

func Dist(a, b Vec3) float64 { return a.Sub(b).Len() }

func DistSq(a, b Vec3) float64 { return a.Sub(b).LenSq() }

// closestOnSegment returns the point on [a,b] nearest to p and its
// normalized parameter t along the segment.
func closestOnSegment(a, b, p Vec3) (Vec3, float64) {
	ab := b.Sub(a)
	denom := ab.LenSq()
	if denom < 1e-12 {
		return a, 0
	}
	t := p.Sub(a).Dot(ab) / denom
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Scale(t)), t
}
