package fixed

// Vec2 is an ordinary pair of Fixed, mirroring a plain Vector2 algebra
// but closed over fixed-point.
type Vec2 struct {
	X, Y Fixed
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X.Add(o.X), v.Y.Add(o.Y)} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X.Sub(o.X), v.Y.Sub(o.Y)} }

// Scale returns v * s.
func (v Vec2) Scale(s Fixed) Vec2 { return Vec2{v.X.Mul(s), v.Y.Mul(s)} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) Fixed { return v.X.Mul(o.X).Add(v.Y.Mul(o.Y)) }

// LengthSq returns the squared length of v.
func (v Vec2) LengthSq() Fixed { return v.Dot(v) }

// Length returns the length of v.
func (v Vec2) Length() (Fixed, error) { return v.LengthSq().Sqrt() }

// Normalized returns v scaled to unit length, or the zero vector if v
// is the zero vector.
func (v Vec2) Normalized() (Vec2, error) {
	length, err := v.Length()
	if err != nil {
		return Vec2{}, err
	}
	if length == 0 {
		return Vec2{}, nil
	}
	inv, err := One.Div(length)
	if err != nil {
		return Vec2{}, err
	}
	return v.Scale(inv), nil
}

// Rotated rotates v by the given angle: (x*cos - y*sin, x*sin + y*cos).
func (v Vec2) Rotated(angle Degrees) Vec2 {
	s := Sin(angle)
	c := Cos(angle)
	return Vec2{
		X: v.X.Mul(c).Sub(v.Y.Mul(s)),
		Y: v.X.Mul(s).Add(v.Y.Mul(c)),
	}
}

// Equal reports bit-exact equality of both components.
func (v Vec2) Equal(o Vec2) bool { return v.X.Equal(o.X) && v.Y.Equal(o.Y) }

// Rect is an axis-aligned rectangle in fixed-point, the simulation's
// collision-broad-phase primitive, ported from a float64 AABB shape.
type Rect struct {
	X, Y, W, H Fixed
}

// Center returns the rectangle's center point.
func (r Rect) Center() Vec2 {
	half := FromRaw(1 << (Shift - 1)) // 0.5 in Q20.12
	return Vec2{r.X.Add(r.W.Mul(half)), r.Y.Add(r.H.Mul(half))}
}

// Overlaps reports whether r and o intersect.
func (r Rect) Overlaps(o Rect) bool {
	return r.X.Less(o.X.Add(o.W)) &&
		o.X.Less(r.X.Add(r.W)) &&
		r.Y.Less(o.Y.Add(o.H)) &&
		o.Y.Less(r.Y.Add(r.H))
}

// Contains reports whether point p lies inside r.
func (r Rect) Contains(p Vec2) bool {
	return !p.X.Less(r.X) && p.X.Less(r.X.Add(r.W)) &&
		!p.Y.Less(r.Y) && p.Y.Less(r.Y.Add(r.H))
}

// Penetration returns the minimum-translation vector to separate o out
// of r along whichever axis has the smaller overlap, or the zero
// vector if they do not overlap.
func (r Rect) Penetration(o Rect) Vec2 {
	if !r.Overlaps(o) {
		return Vec2{}
	}

	left := o.X.Add(o.W).Sub(r.X)
	right := r.X.Add(r.W).Sub(o.X)
	top := o.Y.Add(o.H).Sub(r.Y)
	bottom := r.Y.Add(r.H).Sub(o.Y)

	var dx, dy Fixed
	if left.Less(right) {
		dx = left.Neg()
	} else {
		dx = right
	}
	if top.Less(bottom) {
		dy = top.Neg()
	} else {
		dy = bottom
	}

	if dx.Abs().Less(dy.Abs()) {
		return Vec2{X: dx}
	}
	return Vec2{Y: dy}
}
