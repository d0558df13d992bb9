// Package shtc3 binds Sensirion SHTC3 sensors to "sensor-shtc3" nodes
// using the tinygo chip driver. The chip sleeps between samples and across
// system suspend.
package shtc3

import (
	"sync"

	"tinygo.org/x/drivers"
	sensirion "tinygo.org/x/drivers/shtc3"

	"boardcore/bus"
	"boardcore/device"
	"boardcore/errcode"
	"boardcore/types"
	"boardcore/x/logx"
	"boardcore/x/mathx"
)

const Name = "sensor-shtc3"

// BusProvider resolves a node's "bus" property.
type BusProvider interface {
	ByID(id string) (drivers.I2C, bool)
}

type Driver struct {
	buses  BusProvider
	events *bus.Connection
	log    *logx.Logger
}

func New(buses BusProvider, events *bus.Connection, log *logx.Logger) *Driver {
	return &Driver{buses: buses, events: events, log: log.With(Name)}
}

func (d *Driver) Name() string { return Name }

// Sensor is the per-device state kept in Device.Priv.
type Sensor struct {
	name   string
	events *bus.Connection

	mu        sync.Mutex
	chip      sensirion.Device
	suspended bool
}

func (d *Driver) Probe(dev *device.Device) error {
	if d.buses == nil {
		return errcode.New(errcode.InvalidParams, Name, "no bus provider")
	}
	id := dev.Node.ReadString("bus", "i2c0")
	i2c, ok := d.buses.ByID(id)
	if !ok {
		return errcode.New(errcode.NotFound, Name, "bus "+id)
	}
	// The chip driver drops bus errors, so check for an ACK ourselves.
	if err := i2c.Tx(sensirion.SHTC3_ADDRESS, []byte(sensirion.SHTC3_CMD_WAKEUP), nil); err != nil {
		return err
	}
	s := &Sensor{name: dev.Name, events: d.events, chip: sensirion.New(i2c)}
	_ = s.chip.Sleep()
	dev.Priv = s
	d.log.Infof("%s on %s", dev.Name, id)
	return nil
}

func (d *Driver) Remove(dev *device.Device) {
	if s, ok := device.Priv[*Sensor](dev); ok {
		s.mu.Lock()
		_ = s.chip.Sleep()
		s.mu.Unlock()
		s.events.Clear(s.topic(), nil)
	}
	dev.Priv = nil
}

func (d *Driver) Suspend(dev *device.Device) {
	if s, ok := device.Priv[*Sensor](dev); ok {
		s.mu.Lock()
		s.suspended = true
		_ = s.chip.Sleep()
		s.mu.Unlock()
	}
}

// Resume only clears the flag; Sample wakes the chip on demand.
func (d *Driver) Resume(dev *device.Device) {
	if s, ok := device.Priv[*Sensor](dev); ok {
		s.mu.Lock()
		s.suspended = false
		s.mu.Unlock()
	}
}

func (s *Sensor) topic() bus.Topic { return bus.T("env", s.name) }

// Sample wakes the chip, measures and puts it back to sleep.
func (s *Sensor) Sample() (types.EnvReading, error) {
	s.mu.Lock()
	if s.suspended {
		s.mu.Unlock()
		return types.EnvReading{}, errcode.New(errcode.InvalidState, s.name, "suspended")
	}
	_ = s.chip.WakeUp()
	tmc, rhx100, err := s.chip.ReadTemperatureHumidity()
	_ = s.chip.Sleep()
	s.mu.Unlock()
	if err != nil {
		return types.EnvReading{}, errcode.Wrap(errcode.HardwareFault, s.name, err)
	}

	r := types.EnvReading{
		Sensor: "shtc3",
		DeciC:  int16(mathx.Clamp(tmc/100, -32768, 32767)),
		RHx100: uint16(mathx.Clamp(rhx100, 0, 10000)),
	}
	s.events.Set(s.topic(), r)
	return r, nil
}
