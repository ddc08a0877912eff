package fixed

import "math"

// sinTable holds sin(0deg..90deg) in Q20.12, one entry per degree,
// generated once at package init from math.Sin so every compliant
// build bakes in the same 91-entry table. Quadrant folding below means
// only the first quadrant needs to be tabulated.
var sinTable [91]Fixed

func init() {
	for deg := 0; deg <= 90; deg++ {
		rad := float64(deg) * math.Pi / 180
		sinTable[deg] = Fixed(math.Round(math.Sin(rad) * float64(One)))
	}
}

// degreesPerTurn is the integer period Normalize wraps angles into.
// Floating point is used only to build the table at init time; no
// simulation-touching path uses it.
const degreesPerTurn = 360

// Degrees is a whole-degree angle in [0, 360) used to index the trig
// table. Callers convert radians-equivalent game angles into degrees
// before calling Sin/Cos, keeping the simulation free of float math.
type Degrees int32

// Normalize wraps d into [0, 360).
func (d Degrees) Normalize() Degrees {
	d = d % degreesPerTurn
	if d < 0 {
		d += degreesPerTurn
	}
	return d
}

// Sin returns sin(d) via the 91-entry first-quadrant table with
// quadrant folding.
func Sin(d Degrees) Fixed {
	d = d.Normalize()
	switch {
	case d <= 90:
		return sinTable[d]
	case d <= 180:
		return sinTable[180-d]
	case d <= 270:
		return -sinTable[d-180]
	default:
		return -sinTable[360-d]
	}
}

// Cos returns cos(d) as sin(d+90).
func Cos(d Degrees) Fixed {
	return Sin(d + 90)
}

// Tan returns sin(d)/cos(d).
func Tan(d Degrees) (Fixed, error) {
	return Sin(d).Div(Cos(d))
}

// Asin returns the angle in [-90, 90] degrees whose sine is closest to
// f, found by a linear scan of the monotonic first-quadrant table
// (small and fixed cost, deterministic across builds).
func Asin(f Fixed) Degrees {
	neg := f < 0
	if neg {
		f = -f
	}
	best := Degrees(0)
	bestDiff := f.Abs()
	for deg := 1; deg <= 90; deg++ {
		diff := (sinTable[deg] - f).Abs()
		if diff < bestDiff {
			bestDiff = diff
			best = Degrees(deg)
		}
	}
	if neg {
		return -best
	}
	return best
}

// Atan approximates arctangent via the identity atan(x) == asin(x / sqrt(1+x^2)).
func Atan(f Fixed) (Degrees, error) {
	one := One
	denom, err := one.Add(f.Mul(f)).Sqrt()
	if err != nil {
		return 0, err
	}
	ratio, err := f.Div(denom)
	if err != nil {
		return 0, err
	}
	return Asin(ratio), nil
}

// Atan2 returns the angle of the vector (x, y) in [0, 360) degrees,
// resolving the quadrant ambiguity that plain Atan cannot.
func Atan2(y, x Fixed) (Degrees, error) {
	if x == 0 && y == 0 {
		return 0, nil
	}
	if x == 0 {
		if y > 0 {
			return 90, nil
		}
		return 270, nil
	}

	ratio, err := y.Div(x)
	if err != nil {
		return 0, err
	}
	angle, err := Atan(ratio)
	if err != nil {
		return 0, err
	}

	switch {
	case x > 0 && y >= 0:
		return angle.Normalize(), nil
	case x < 0:
		return (angle + 180).Normalize(), nil
	default: // x > 0, y < 0
		return (angle + 360).Normalize(), nil
	}
}
