package mathx

import "math/bits"

// RoundDiv returns floor((a + b/2)/b), classic rounding for positives.
// A zero divisor yields 0.
func RoundDiv[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// RoundDiv128 returns round((hi<<64 | lo) / d) with halves rounded up; ok is
// false when d is zero or the quotient needs more than 64 bits.
func RoundDiv128(hi, lo, d uint64) (q uint64, ok bool) {
	if d == 0 {
		return 0, false
	}
	if hi == 0 && lo <= ^uint64(0)-d/2 {
		return RoundDiv(lo, d), true
	}
	var carry uint64
	lo, carry = bits.Add64(lo, d/2, 0)
	hi, carry = bits.Add64(hi, carry, 0)
	if carry != 0 || hi >= d {
		return 0, false
	}
	q, _ = bits.Div64(hi, lo, d)
	return q, true
}
