package aht20

import (
	"tinygo.org/x/drivers"

	"boardcore/bus"
	"boardcore/device"
	"boardcore/errcode"
	"boardcore/types"
	"boardcore/x/logx"
	"boardcore/x/mathx"
)

const Name = "sensor-aht20"

// BusProvider resolves a node's "bus" property ("i2c0", "i2c1", ...).
type BusProvider interface {
	ByID(id string) (drivers.I2C, bool)
}

type Driver struct {
	device.NopPower

	buses  BusProvider
	timing Timing
	events *bus.Connection
	log    *logx.Logger
}

type Option func(*Driver)

func WithTiming(t Timing) Option { return func(d *Driver) { d.timing = t } }

// WithBus publishes readings retained on env/<device>.
func WithBus(c *bus.Connection) Option { return func(d *Driver) { d.events = c } }

func WithLogger(l *logx.Logger) Option { return func(d *Driver) { d.log = l } }

func New(buses BusProvider, opts ...Option) *Driver {
	d := &Driver{buses: buses}
	for _, o := range opts {
		o(d)
	}
	d.log = d.log.With(Name)
	return d
}

func (d *Driver) Name() string { return Name }

// Sensor is the per-device state kept in Device.Priv.
type Sensor struct {
	name   string
	chip   *Chip
	events *bus.Connection
}

func (d *Driver) Probe(dev *device.Device) error {
	id := dev.Node.ReadString("bus", "i2c0")
	if d.buses == nil {
		return errcode.New(errcode.InvalidParams, Name, "no bus provider")
	}
	i2c, ok := d.buses.ByID(id)
	if !ok {
		return errcode.New(errcode.NotFound, Name, "bus "+id)
	}
	addr := uint16(dev.Node.ReadInt("reg", Address))
	chip := NewChip(i2c, addr, d.timing)
	if err := chip.Init(); err != nil {
		return err
	}
	dev.Priv = &Sensor{name: dev.Name, chip: chip, events: d.events}
	d.log.Infof("%s on %s@0x%x", dev.Name, id, addr)
	return nil
}

func (d *Driver) Remove(dev *device.Device) {
	if s, ok := device.Priv[*Sensor](dev); ok {
		s.events.Clear(s.topic(), nil)
	}
	dev.Priv = nil
}

// Resume soft-resets the chip, which may have lost power while the
// machine slept.
func (d *Driver) Resume(dev *device.Device) {
	s, ok := device.Priv[*Sensor](dev)
	if !ok {
		return
	}
	if err := s.chip.Reset(); err != nil {
		d.log.Warnf("%s: reset after resume: %s", dev.Name, err.Error())
	}
}

func (s *Sensor) topic() bus.Topic { return bus.T("env", s.name) }

// Sample takes one measurement and publishes it when a bus is attached.
func (s *Sensor) Sample() (types.EnvReading, error) {
	raw, err := s.chip.Read()
	if err != nil {
		return types.EnvReading{}, errcode.Wrap(errcode.HardwareFault, s.name, err)
	}
	r := types.EnvReading{
		Sensor: "aht20",
		DeciC:  int16(mathx.Clamp(raw.DeciCelsius(), -32768, 32767)),
		RHx100: uint16(mathx.Clamp(raw.RelHumidityX100(), 0, 10000)),
	}
	s.events.Set(s.topic(), r)
	return r, nil
}
