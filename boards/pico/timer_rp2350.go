//go:build rp2350

package pico

import "device/rp"

const sramSize = 520 << 10

// Timer reads TIMER0 through its unlatched raw registers.
type Timer struct{}

func (Timer) ReadHigh() uint32 { return rp.TIMER0.TIMERAWH.Get() }
func (Timer) ReadLow() uint32  { return rp.TIMER0.TIMERAWL.Get() }

// ReadFrequencyRegister reports the 1 MHz tick the watchdog generates.
func (Timer) ReadFrequencyRegister() uint64 { return 1_000_000 }
