// Package angle provides the degree-based helpers used by the camera: clamping,
// wrapping and a polynomial atan2 matching the game's own angle math.
package angle

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Look limits for the first-person pitch, in degrees.
const (
	PitchMin float32 = -80
	PitchMax float32 = 80
)

// atanEpsilon is the magnitude below which both atan2 inputs count as zero.
const atanEpsilon = 0.0001

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	return mgl32.Clamp(v, lo, hi)
}

// ClampPitch limits a look pitch to [PitchMin, PitchMax].
func ClampPitch(p float32) float32 {
	return Clamp(p, PitchMin, PitchMax)
}

// Normalize wraps deg into [0, 360).
func Normalize(deg float32) float32 {
	r := math.Mod(float64(deg), 360)
	if r < 0 {
		r += 360
	}
	out := float32(r)
	// float32 rounding can land exactly on 360
	if out >= 360 {
		out -= 360
	}
	return out
}

// Signed wraps deg into [-180, 180).
func Signed(deg float32) float32 {
	n := Normalize(deg)
	if n >= 180 {
		n -= 360
	}
	return n
}

// Delta returns the shortest signed rotation from one heading to another.
func Delta(from, to float32) float32 {
	return Signed(to - from)
}

// SinDeg is sin for an angle in degrees.
func SinDeg(deg float32) float32 {
	return float32(math.Sin(float64(mgl32.DegToRad(deg))))
}

// CosDeg is cos for an angle in degrees.
func CosDeg(deg float32) float32 {
	return float32(math.Cos(float64(mgl32.DegToRad(deg))))
}

// Atan2Deg approximates atan2(y, x) in degrees with a quarter-circle
// polynomial, good to about 0.3 degrees. Returns 0 when both inputs are
// effectively zero.
func Atan2Deg(y, x float32) float32 {
	absX := mgl32.Abs(x)
	absY := mgl32.Abs(y)

	if absX < atanEpsilon && absY < atanEpsilon {
		return 0
	}

	var r float32
	if absX >= absY {
		r = atanPoly(absY / absX)
	} else {
		r = 90 - atanPoly(absX/absY)
	}

	if x < 0 {
		r = 180 - r
	}
	if y < 0 {
		r = -r
	}
	return r
}

// Odd fifth-order minimax fit of atan on [0, 1], in degrees.
const (
	atanC1 float32 = 57.0296
	atanC3 float32 = -16.5401
	atanC5 float32 = 4.5454
)

// atanPoly evaluates atan(a) in degrees for a in [0, 1].
func atanPoly(a float32) float32 {
	s := a * a
	return ((atanC5*s+atanC3)*s + atanC1) * a
}
