// Package csarmv7 registers the ARMv7 generic timer as a clock source.
//
// The counter is 64 bits wide and never wraps in practice. Its rate comes
// from the node's "clock-frequency" property, then from the CNTFRQ
// register, then falls back to 1 MHz.
package csarmv7

import (
	"boardcore/clocksource"
	"boardcore/device"
	"boardcore/errcode"
	"boardcore/x/logx"
)

const Name = "cs-armv7-timer"

// Counter is the slice of the generic timer the driver needs.
type Counter interface {
	ReadRawCounter() uint64        // CNTPCT
	ReadFrequencyRegister() uint64 // CNTFRQ, 0 when firmware left it unset
}

type Driver struct {
	device.NopPower

	hw      Counter
	sources *clocksource.Registry
	maxsec  uint64
	log     *logx.Logger
}

type Option func(*Driver)

// WithMaxSec sizes the scaling for deltas up to s seconds.
func WithMaxSec(s uint64) Option { return func(d *Driver) { d.maxsec = s } }

func WithLogger(l *logx.Logger) Option { return func(d *Driver) { d.log = l } }

func New(hw Counter, sources *clocksource.Registry, opts ...Option) *Driver {
	d := &Driver{hw: hw, sources: sources, maxsec: clocksource.DefaultMaxSec}
	for _, o := range opts {
		o(d)
	}
	d.log = d.log.With(Name)
	return d
}

func (d *Driver) Name() string { return Name }

// Rate resolves the counter frequency for dev's node.
func (d *Driver) Rate(dev *device.Device) uint64 {
	if f := dev.Node.ReadInt("clock-frequency", 0); f > 0 {
		return uint64(f)
	}
	if f := d.hw.ReadFrequencyRegister(); f > 0 {
		return f
	}
	return clocksource.DefaultFreq
}

func (d *Driver) Probe(dev *device.Device) error {
	if d.hw == nil || d.sources == nil {
		return errcode.New(errcode.InvalidParams, Name, "no counter or clock registry")
	}
	rate := d.Rate(dev)
	cs, err := clocksource.New(dev.Name, rate, 64, clocksource.ReaderFunc(d.hw.ReadRawCounter), d.maxsec)
	if err != nil {
		return err
	}
	if err := d.sources.Register(cs); err != nil {
		return err
	}
	dev.Priv = cs
	d.log.Infof("%s: %d Hz, mult %d shift %d", dev.Name, rate, cs.Mult, cs.Shift)
	return nil
}

func (d *Driver) Remove(dev *device.Device) {
	if cs, ok := device.Priv[*clocksource.ClockSource](dev); ok {
		if err := d.sources.Unregister(cs); err != nil {
			d.log.Warnf("%s: %s", dev.Name, err.Error())
		}
	}
	dev.Priv = nil
}
