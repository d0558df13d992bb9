// Package cssplit registers a 64-bit system timer that is only reachable
// as two 32-bit registers.
//
// Each read goes through clocksource.ReadSplit. When the high word never
// settles the source repeats its last good value, so readers still see a
// non-decreasing counter, and the fault is counted.
package cssplit

import (
	"sync/atomic"

	"boardcore/clocksource"
	"boardcore/device"
	"boardcore/errcode"
	"boardcore/x/logx"
)

const Name = "cs-split-timer"

// freqRegister is implemented by counters that can report their own rate.
type freqRegister interface {
	ReadFrequencyRegister() uint64
}

type Driver struct {
	device.NopPower

	hw      clocksource.SplitCounter
	sources *clocksource.Registry
	log     *logx.Logger
}

func New(hw clocksource.SplitCounter, sources *clocksource.Registry, log *logx.Logger) *Driver {
	return &Driver{hw: hw, sources: sources, log: log.With(Name)}
}

func (d *Driver) Name() string { return Name }

// Timer is the per-device state kept in Device.Priv.
type Timer struct {
	CS      *clocksource.ClockSource
	hw      clocksource.SplitCounter
	retries int
	last    atomic.Uint64
	faults  atomic.Uint64
}

// Read never blocks longer than the retry bound. last only moves forward,
// so a reader that lost a race never hands out an older value.
func (t *Timer) Read() uint64 {
	v, err := clocksource.ReadSplit(t.hw, t.retries)
	if err != nil {
		t.faults.Add(1)
		return t.last.Load()
	}
	for {
		prev := t.last.Load()
		if v <= prev {
			return prev
		}
		if t.last.CompareAndSwap(prev, v) {
			return v
		}
	}
}

// Faults counts reads that fell back to the last good value.
func (t *Timer) Faults() uint64 { return t.faults.Load() }

func (d *Driver) Probe(dev *device.Device) error {
	if d.hw == nil || d.sources == nil {
		return errcode.New(errcode.InvalidParams, Name, "no counter or clock registry")
	}
	n := dev.Node
	rate := d.rate(n.ReadInt("clock-frequency", 0))
	t := &Timer{
		hw:      d.hw,
		retries: int(n.ReadInt("retries", clocksource.DefaultSplitRetries)),
	}
	cs, err := clocksource.New(dev.Name, rate, 64, t, uint64(n.ReadInt("max-seconds", clocksource.DefaultMaxSec)))
	if err != nil {
		return err
	}
	cs.Priv = t
	t.CS = cs
	if err := d.sources.Register(cs); err != nil {
		return err
	}
	dev.Priv = t
	d.log.Infof("%s: %d Hz, %d retries", dev.Name, rate, t.retries)
	return nil
}

// rate prefers the node property, then the counter's own register.
func (d *Driver) rate(prop int64) uint64 {
	if prop > 0 {
		return uint64(prop)
	}
	if fr, ok := d.hw.(freqRegister); ok {
		if f := fr.ReadFrequencyRegister(); f > 0 {
			return f
		}
	}
	return clocksource.DefaultFreq
}

func (d *Driver) Remove(dev *device.Device) {
	t, ok := device.Priv[*Timer](dev)
	if !ok {
		return
	}
	if err := d.sources.Unregister(t.CS); err != nil {
		d.log.Warnf("%s: %s", dev.Name, err.Error())
	}
	if f := t.Faults(); f > 0 {
		d.log.Warnf("%s: %d torn reads dropped", dev.Name, f)
	}
	dev.Priv = nil
}
