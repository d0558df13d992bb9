//go:build rp2040

package pico

import "device/rp"

const sramSize = 264 << 10

// Timer reads the free-running timer through its unlatched raw registers,
// so torn reads are possible and must go through clocksource.ReadSplit.
type Timer struct{}

func (Timer) ReadHigh() uint32 { return rp.TIMER.TIMERAWH.Get() }
func (Timer) ReadLow() uint32  { return rp.TIMER.TIMERAWL.Get() }

// ReadFrequencyRegister reports the 1 MHz tick the watchdog generates.
func (Timer) ReadFrequencyRegister() uint64 { return 1_000_000 }
