// Package clocksource holds the monotonic time sources registered by timer
// drivers and the fixed-point arithmetic that turns raw ticks into
// nanoseconds.
//
// Consumers take deltas with Delta(now, prev, cs.Mask) and convert them
// with cs.ToNs; a ClockSource never remembers previous reads.
package clocksource

import (
	"time"

	"boardcore/errcode"
)

// DefaultMaxSec is the longest interval, in seconds, a single ToNs
// conversion is sized for when drivers do not choose one.
const DefaultMaxSec = 10

// DefaultFreq is used when neither the descriptor nor the hardware report
// a counter frequency.
const DefaultFreq uint64 = 1_000_000

// Reader returns the raw counter value. Implementations must be lock-free
// and safe to call from any context, including interrupt handlers.
type Reader interface {
	Read() uint64
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func() uint64

func (f ReaderFunc) Read() uint64 { return f() }

// ClockSource is a monotonic counter plus its tick→ns scaling.
// Mult and Shift are fixed at construction.
type ClockSource struct {
	Name  string
	Mask  uint64
	Mult  uint64
	Shift uint32
	Freq  uint64

	Reader Reader
	Priv   any
}

// New builds a ClockSource for a counter of width bits ticking at freq Hz,
// with scaling sized for deltas of up to maxsec seconds.
func New(name string, freq uint64, width uint, r Reader, maxsec uint64) (*ClockSource, error) {
	if name == "" || r == nil {
		return nil, errcode.New(errcode.InvalidParams, "clocksource.New", "name and reader required")
	}
	if freq == 0 {
		return nil, errcode.New(errcode.InvalidParams, "clocksource.New", name+": zero frequency")
	}
	if maxsec == 0 {
		maxsec = DefaultMaxSec
	}
	mult, shift, err := CalcMultShift(freq, NsPerSec, maxsec)
	if err != nil {
		return nil, err
	}
	return &ClockSource{
		Name:   name,
		Mask:   Mask(width),
		Mult:   mult,
		Shift:  shift,
		Freq:   freq,
		Reader: r,
	}, nil
}

// Read returns the current tick count bounded by the mask.
func (cs *ClockSource) Read() uint64 { return cs.Reader.Read() & cs.Mask }

// Frequency returns ticks per second.
func (cs *ClockSource) Frequency() uint64 { return cs.Freq }

// ToNs converts a tick delta to nanoseconds.
func (cs *ClockSource) ToNs(cycles uint64) uint64 { return Scale(cycles, cs.Mult, cs.Shift) }

// Since returns the duration elapsed since a previous Read value.
func (cs *ClockSource) Since(prev uint64) time.Duration {
	return time.Duration(cs.ToNs(Delta(cs.Read(), prev, cs.Mask)))
}

// -----------------------------------------------------------------------------
// Split counters
// -----------------------------------------------------------------------------

// SplitCounter is a 64-bit counter that hardware exposes as two 32-bit halves.
type SplitCounter interface {
	ReadHigh() uint32
	ReadLow() uint32
}

// DefaultSplitRetries bounds ReadSplit when callers pass zero.
const DefaultSplitRetries = 8

var errSplitFault = errcode.New(errcode.HardwareFault, "clocksource.ReadSplit", "high word unstable")

// ReadSplit reads high, low, high and accepts the pair once both high reads
// agree, so a carry out of the low word between accesses is never returned
// torn. More than maxRetries disagreements mean the counter is faulty.
func ReadSplit(c SplitCounter, maxRetries int) (uint64, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultSplitRetries
	}
	hi := c.ReadHigh()
	for i := 0; i < maxRetries; i++ {
		lo := c.ReadLow()
		again := c.ReadHigh()
		if again == hi {
			return uint64(hi)<<32 | uint64(lo), nil
		}
		hi = again
	}
	return 0, errSplitFault
}
