package fixed

import "testing"

func TestVec2AddSub(t *testing.T) {
	a := Vec2{X: FromInt(3), Y: FromInt(4)}
	b := Vec2{X: FromInt(1), Y: FromInt(2)}

	sum := a.Add(b)
	if sum.Sub(b) != a {
		t.Fatalf("Vec2 Sub(Add) round trip failed: got %+v want %+v", sum.Sub(b), a)
	}
}

func TestVec2Length(t *testing.T) {
	v := Vec2{X: FromInt(3), Y: FromInt(4)}
	length, err := v.Length()
	if err != nil {
		t.Fatalf("Length returned error: %v", err)
	}
	if length != FromInt(5) {
		t.Fatalf("Length of (3,4) = %v, want 5", length)
	}
}

func TestVec2Dot(t *testing.T) {
	a := Vec2{X: FromInt(1), Y: FromInt(0)}
	b := Vec2{X: FromInt(0), Y: FromInt(1)}
	if a.Dot(b) != 0 {
		t.Fatalf("Dot of perpendicular unit vectors = %v, want 0", a.Dot(b))
	}
}

func TestVec2RotatedCardinal(t *testing.T) {
	v := Vec2{X: One, Y: 0}
	rotated := v.Rotated(90)
	tolerance := FromRaw(8)
	if !closeEnough(rotated.X, 0, tolerance) || !closeEnough(rotated.Y, One, tolerance) {
		t.Fatalf("Rotated(90) = %+v, want ~(0,1)", rotated)
	}
}

func TestRectOverlaps(t *testing.T) {
	a := Rect{X: FromInt(0), Y: FromInt(0), W: FromInt(10), H: FromInt(10)}
	b := Rect{X: FromInt(5), Y: FromInt(5), W: FromInt(10), H: FromInt(10)}
	c := Rect{X: FromInt(20), Y: FromInt(20), W: FromInt(5), H: FromInt(5)}

	if !a.Overlaps(b) {
		t.Fatalf("expected a to overlap b")
	}
	if a.Overlaps(c) {
		t.Fatalf("expected a not to overlap c")
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: FromInt(0), Y: FromInt(0), W: FromInt(10), H: FromInt(10)}
	inside := Vec2{X: FromInt(5), Y: FromInt(5)}
	outside := Vec2{X: FromInt(20), Y: FromInt(20)}

	if !r.Contains(inside) {
		t.Fatalf("expected r to contain %+v", inside)
	}
	if r.Contains(outside) {
		t.Fatalf("expected r not to contain %+v", outside)
	}
}

func TestRectPenetrationNoOverlap(t *testing.T) {
	a := Rect{X: FromInt(0), Y: FromInt(0), W: FromInt(5), H: FromInt(5)}
	b := Rect{X: FromInt(20), Y: FromInt(20), W: FromInt(5), H: FromInt(5)}

	pen := a.Penetration(b)
	if pen != (Vec2{}) {
		t.Fatalf("Penetration of non-overlapping rects = %+v, want zero", pen)
	}
}

func TestRectPenetrationOverlap(t *testing.T) {
	a := Rect{X: FromInt(0), Y: FromInt(0), W: FromInt(10), H: FromInt(10)}
	b := Rect{X: FromInt(8), Y: FromInt(0), W: FromInt(10), H: FromInt(10)}

	pen := a.Penetration(b)
	if pen.Y != 0 {
		t.Fatalf("expected horizontal-only penetration, got %+v", pen)
	}
	if pen.X == 0 {
		t.Fatalf("expected nonzero X penetration, got %+v", pen)
	}
}
