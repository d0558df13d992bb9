package clocksource

import (
	"sync"
	"time"
)

// Timekeeper turns a free-running counter into a monotonic duration since
// the keeper started. It must be sampled at least once per counter period
// (Mask+1 ticks) or wraps are lost.
type Timekeeper struct {
	mu    sync.Mutex
	cs    *ClockSource
	last  uint64
	ticks uint64 // total elapsed ticks; scaled as a whole so no rounding accumulates
}

func NewTimekeeper(cs *ClockSource) *Timekeeper {
	return &Timekeeper{cs: cs, last: cs.Read()}
}

// Source returns the underlying clock source.
func (tk *Timekeeper) Source() *ClockSource { return tk.cs }

// Now samples the counter and returns the elapsed time since NewTimekeeper.
func (tk *Timekeeper) Now() time.Duration {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	now := tk.cs.Read()
	tk.ticks += Delta(now, tk.last, tk.cs.Mask)
	tk.last = now
	return time.Duration(tk.cs.ToNs(tk.ticks))
}
