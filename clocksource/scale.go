package clocksource

import (
	"math/bits"

	"boardcore/errcode"
	"boardcore/x/mathx"
)

// NsPerSec is the usual scaling target: nanoseconds per second.
const NsPerSec uint64 = 1_000_000_000

// maxShift is the first candidate shift CalcMultShift tries.
const maxShift = 32

// Mask returns the wraparound mask for a counter of the given bit width.
func Mask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// CalcMultShift derives the fixed-point pair (mult, shift) converting ticks
// at rate from into units at rate to, such that (dt*mult)>>shift ≈ dt*to/from.
//
// Starting at shift 32, mult = round((to<<shift)/from); the shift is lowered
// until (from*maxsec+1)*(mult+1) fits in 64 bits, so any delta accumulated
// over maxsec seconds can be scaled in a single 64-bit multiply.
func CalcMultShift(from, to, maxsec uint64) (mult uint64, shift uint32, err error) {
	if from == 0 || to == 0 || maxsec == 0 {
		return 0, 0, errcode.New(errcode.InvalidParams, "clocksource.CalcMultShift", "zero argument")
	}
	hi, maxTicks := bits.Mul64(from, maxsec)
	if hi != 0 || maxTicks == ^uint64(0) {
		return 0, 0, errcode.New(errcode.OutOfRange, "clocksource.CalcMultShift", "from*maxsec overflows")
	}
	for sft := uint32(maxShift); ; sft-- {
		m, ok := roundedRatio(to, sft, from)
		if ok && m < ^uint64(0) {
			if hi, _ := bits.Mul64(m+1, maxTicks+1); hi == 0 {
				return m, sft, nil
			}
		}
		if sft == 0 {
			break
		}
	}
	return 0, 0, errcode.New(errcode.OutOfRange, "clocksource.CalcMultShift", "no shift keeps the product in 64 bits")
}

// roundedRatio returns round((to << sft) / from); ok is false if it exceeds 64 bits.
func roundedRatio(to uint64, sft uint32, from uint64) (uint64, bool) {
	nhi, nlo := to>>(64-sft), to<<sft // to>>64 is 0 when sft is 0
	return mathx.RoundDiv128(nhi, nlo, from)
}

// Scale computes (cycles*mult)>>shift with a 128-bit intermediate, so the
// result is exact for every input; it never carries state between calls.
// Results that do not fit 64 bits saturate.
func Scale(cycles, mult uint64, shift uint32) uint64 {
	hi, lo := bits.Mul64(cycles, mult)
	if shift == 0 {
		if hi != 0 {
			return ^uint64(0)
		}
		return lo
	}
	if hi>>shift != 0 {
		return ^uint64(0)
	}
	return lo>>shift | hi<<(64-shift)
}

// Delta returns the tick distance from prev to now, tolerating one wrap of
// a counter with the given mask.
func Delta(now, prev, mask uint64) uint64 {
	return (now - prev) & mask
}
