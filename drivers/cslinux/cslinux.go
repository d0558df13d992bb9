//go:build linux

// Package cslinux exposes the host's CLOCK_MONOTONIC_RAW as a clock source
// so the core can run unmodified on a Linux development machine.
package cslinux

import (
	"golang.org/x/sys/unix"

	"boardcore/clocksource"
	"boardcore/device"
	"boardcore/errcode"
	"boardcore/x/logx"
)

const Name = "cs-linux-monotonic"

// The raw monotonic clock already counts nanoseconds.
const rate = clocksource.NsPerSec

var clockGettime = unix.ClockGettime

type Driver struct {
	device.NopPower
	sources *clocksource.Registry
	log     *logx.Logger
}

func New(sources *clocksource.Registry, log *logx.Logger) *Driver {
	return &Driver{sources: sources, log: log.With(Name)}
}

func (d *Driver) Name() string { return Name }

func read() uint64 {
	var ts unix.Timespec
	if err := clockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return 0
	}
	return uint64(ts.Nano())
}

func (d *Driver) Probe(dev *device.Device) error {
	if d.sources == nil {
		return errcode.New(errcode.InvalidParams, Name, "no clock registry")
	}
	var ts unix.Timespec
	if err := clockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return errcode.Wrap(errcode.Unsupported, Name, err)
	}
	cs, err := clocksource.New(dev.Name, rate, 64, clocksource.ReaderFunc(read), clocksource.DefaultMaxSec)
	if err != nil {
		return err
	}
	if err := d.sources.Register(cs); err != nil {
		return err
	}
	dev.Priv = cs
	d.log.Infof("%s: mult %d shift %d", dev.Name, cs.Mult, cs.Shift)
	return nil
}

func (d *Driver) Remove(dev *device.Device) {
	if cs, ok := device.Priv[*clocksource.ClockSource](dev); ok {
		_ = d.sources.Unregister(cs)
	}
	dev.Priv = nil
}
