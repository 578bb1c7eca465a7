package lidar

import "math"

// DepthPrecision is the fixed-point scale of the depth image (1 << 16)
const DepthPrecision = 1 << 16

// ValueFraction remaps a forward distance into [0, 1] via |(v - r) / r|.
// A non-positive range falls back to DefaultValueRange.
func ValueFraction(value, valueRange float64) float64 {
	if valueRange <= 0 {
		valueRange = DefaultValueRange
	}
	return clamp01(math.Abs((value - valueRange) / valueRange))
}

// Quantize maps t in [0, 1] to [0, 65536]: min(65536, round(65536 * t)).
// The upper bound is inclusive, so t = 1 yields 65536.
func Quantize(t float64) int {
	t = clamp01(t)
	q := int(math.Round(DepthPrecision * t))
	if q > DepthPrecision {
		q = DepthPrecision
	}
	return q
}

// Quantize16 is Quantize saturated to what a 16-bit channel can hold
func Quantize16(t float64) uint16 {
	q := Quantize(t)
	if q > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(q)
}

func clamp01(t float64) float64 {
	switch {
	case math.IsNaN(t):
		return 0
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}
