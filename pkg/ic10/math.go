package ic10

import "math"

// The chip stores every value as a float64. Bitwise operations work on the
// value truncated to a 64-bit integer.

// Mod is the chip's mod: the result takes the sign of the divisor.
func Mod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// Round rounds half away from zero.
func Round(v float64) float64 { return math.Round(v) }

func ShiftLeft(a, b float64) float64 { return float64(int64(a) << uint(b)) }

// ShiftRight is a logical shift: zeros come in from the left.
func ShiftRight(a, b float64) float64 { return float64(int64(uint64(int64(a)) >> uint(b))) }

// ShiftRightArith keeps the sign bit.
func ShiftRightArith(a, b float64) float64 { return float64(int64(a) >> uint(b)) }

func And(a, b float64) float64 { return float64(int64(a) & int64(b)) }
func Or(a, b float64) float64  { return float64(int64(a) | int64(b)) }
func Xor(a, b float64) float64 { return float64(int64(a) ^ int64(b)) }
func Nor(a, b float64) float64 { return float64(^(int64(a) | int64(b))) }
func Not(a float64) float64    { return float64(^int64(a)) }

// Bool is 1 for true and 0 for false.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
