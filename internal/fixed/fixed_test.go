package fixed

import "testing"

func TestArithmeticRoundTrip(t *testing.T) {
	a := FromInt(7)
	b := FromInt(3)

	sum := a.Add(b)
	if sum.Sub(b) != a {
		t.Fatalf("Sub(Add) round trip failed: got %v want %v", sum.Sub(b), a)
	}

	prod := a.Mul(b)
	quot, err := prod.Div(b)
	if err != nil {
		t.Fatalf("Div returned error: %v", err)
	}
	if quot != a {
		t.Fatalf("Mul/Div round trip failed: got %v want %v", quot, a)
	}
}

func TestFromRatio(t *testing.T) {
	half, err := FromRatio(1, 2)
	if err != nil {
		t.Fatalf("FromRatio returned error: %v", err)
	}
	if half.Mul(FromInt(2)) != One {
		t.Fatalf("FromRatio(1,2)*2 = %v, want One", half.Mul(FromInt(2)))
	}

	if _, err := FromRatio(1, 0); err != ErrDivideByZero {
		t.Fatalf("FromRatio(1,0) error = %v, want ErrDivideByZero", err)
	}
}

func TestDivModByZero(t *testing.T) {
	a := FromInt(5)
	if _, err := a.Div(0); err != ErrDivideByZero {
		t.Fatalf("Div(0) error = %v, want ErrDivideByZero", err)
	}
	if _, err := a.Mod(0); err != ErrDivideByZero {
		t.Fatalf("Mod(0) error = %v, want ErrDivideByZero", err)
	}
}

func TestSqrtZero(t *testing.T) {
	got, err := FromInt(0).Sqrt()
	if err != nil {
		t.Fatalf("Sqrt(0) returned error: %v", err)
	}
	if got != 0 {
		t.Fatalf("Sqrt(0) = %v, want 0", got)
	}
}

func TestSqrtNegativeFails(t *testing.T) {
	_, err := FromInt(-1).Sqrt()
	if err != ErrNegativeSqrt {
		t.Fatalf("Sqrt(-1) error = %v, want ErrNegativeSqrt", err)
	}
}

func TestSqrtPerfectSquare(t *testing.T) {
	got, err := FromInt(16).Sqrt()
	if err != nil {
		t.Fatalf("Sqrt(16) returned error: %v", err)
	}
	if got != FromInt(4) {
		t.Fatalf("Sqrt(16) = %v, want 4", got)
	}
}

func TestBitExactEquality(t *testing.T) {
	a := FromRaw(12345)
	b := FromRaw(12345)
	c := FromRaw(12346)

	if !a.Equal(b) {
		t.Fatalf("expected %v to equal %v", a, b)
	}
	if a.Equal(c) {
		t.Fatalf("expected %v not to equal %v", a, c)
	}
}

func TestMinMaxAbsNeg(t *testing.T) {
	a := FromInt(-4)
	b := FromInt(3)

	if a.Min(b) != a {
		t.Fatalf("Min(-4,3) = %v, want -4", a.Min(b))
	}
	if a.Max(b) != b {
		t.Fatalf("Max(-4,3) = %v, want 3", a.Max(b))
	}
	if a.Abs() != FromInt(4) {
		t.Fatalf("Abs(-4) = %v, want 4", a.Abs())
	}
	if a.Neg() != FromInt(4) {
		t.Fatalf("Neg(-4) = %v, want 4", a.Neg())
	}
}

func TestShiftOps(t *testing.T) {
	a := FromInt(1)
	if a.Shl(1) != FromInt(2) {
		t.Fatalf("Shl(1,1) = %v, want 2", a.Shl(1))
	}
	two := FromInt(2)
	if two.Shr(1) != a {
		t.Fatalf("Shr(2,1) = %v, want 1", two.Shr(1))
	}
}
