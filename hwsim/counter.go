// Package hwsim simulates the hardware the core talks to: a free-running
// counter (whole or as split 32-bit halves) and I²C buses. Tests and the
// host CLI use it in place of real registers.
package hwsim

import "sync/atomic"

// Counter is a free-running tick counter advanced explicitly. It satisfies
// the timer drivers' hardware interfaces.
type Counter struct {
	ticks atomic.Uint64
	freq  uint64
}

// NewCounter returns a counter whose frequency register reports freq.
// A zero freq models firmware that never programmed the register.
func NewCounter(freq uint64) *Counter { return &Counter{freq: freq} }

func (c *Counter) Advance(n uint64) { c.ticks.Add(n) }
func (c *Counter) Set(v uint64)     { c.ticks.Store(v) }

func (c *Counter) Read() uint64                  { return c.ticks.Load() }
func (c *Counter) ReadRawCounter() uint64        { return c.ticks.Load() }
func (c *Counter) ReadFrequencyRegister() uint64 { return c.freq }

// SplitCounter exposes a Counter as two 32-bit registers. Carries queued
// with InjectCarry move the counter to the next 2^32 boundary right after a
// low-word read, the way a real counter can roll over between accesses.
type SplitCounter struct {
	*Counter
	carries atomic.Int32
}

func NewSplitCounter(c *Counter) *SplitCounter { return &SplitCounter{Counter: c} }

// InjectCarry queues n rollovers, one per subsequent low-word read.
func (s *SplitCounter) InjectCarry(n int) { s.carries.Add(int32(n)) }

func (s *SplitCounter) ReadHigh() uint32 { return uint32(s.ticks.Load() >> 32) }

func (s *SplitCounter) ReadLow() uint32 {
	v := s.ticks.Load()
	if s.carries.Load() > 0 {
		s.carries.Add(-1)
		s.ticks.Store((v | 0xFFFFFFFF) + 1)
	}
	return uint32(v)
}
