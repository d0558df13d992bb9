// Package aht20 drives the AHT20 temperature/humidity sensor and binds it
// to "sensor-aht20" descriptor nodes.
//
// Measurements are two-phase: Trigger starts a conversion and Collect
// fetches it, returning ErrNotReady while the chip is busy. Read does both
// with bounded polling. Conversions are fixed-point (tenths of a unit).
//
// I2C.Tx must issue a repeated-start read when both w and r are given.
package aht20

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"boardcore/x/mathx"
)

const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

var (
	ErrTimeout  = errors.New("aht20: timeout")
	ErrNotReady = errors.New("aht20: not ready")
)

// Timing defaults to the datasheet's 80 ms conversion, polled every 15 ms
// for at most 250 ms.
type Timing struct {
	PollInterval   time.Duration
	CollectTimeout time.Duration
}

func (t *Timing) fill() {
	if t.PollInterval <= 0 {
		t.PollInterval = 15 * time.Millisecond
	}
	if t.CollectTimeout <= 0 {
		t.CollectTimeout = 250 * time.Millisecond
	}
}

// Chip is one AHT20 on a bus.
type Chip struct {
	bus    drivers.I2C
	addr   uint16
	timing Timing
	buf    [7]byte
}

// NewChip does not touch the bus.
func NewChip(bus drivers.I2C, addr uint16, timing Timing) *Chip {
	if addr == 0 {
		addr = Address
	}
	timing.fill()
	return &Chip{bus: bus, addr: addr, timing: timing}
}

func (c *Chip) Addr() uint16 { return c.addr }

// Status reads the status byte.
func (c *Chip) Status() (byte, error) {
	var st [1]byte
	if err := c.bus.Tx(c.addr, []byte{cmdStatus}, st[:]); err != nil {
		return 0, err
	}
	return st[0], nil
}

// Init loads calibration unless the chip reports it already. A chip that
// does not answer the status read is reported absent.
func (c *Chip) Init() error {
	st, err := c.Status()
	if err != nil {
		return err
	}
	if st&statusCalibrated != 0 {
		return nil
	}
	if err := c.bus.Tx(c.addr, []byte{cmdInitialize, 0x08, 0x00}, nil); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// Reset soft-resets the chip, waits the ~20 ms it needs and reloads
// calibration.
func (c *Chip) Reset() error {
	if err := c.bus.Tx(c.addr, []byte{cmdSoftReset}, nil); err != nil {
		return err
	}
	time.Sleep(20 * time.Millisecond)
	return c.Init()
}

func (c *Chip) Trigger() error {
	return c.bus.Tx(c.addr, []byte{cmdTrigger, 0x33, 0x00}, nil)
}

// Collect reads one finished measurement.
func (c *Chip) Collect() (Sample, error) {
	data := c.buf[:]
	if err := c.bus.Tx(c.addr, nil, data); err != nil {
		return Sample{}, err
	}
	if data[0]&statusCalibrated == 0 || data[0]&statusBusy != 0 {
		return Sample{}, ErrNotReady
	}
	return Sample{
		RawHumidity: uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4,
		RawTemp:     uint32(data[3]&0x0F)<<16 | uint32(data[4])<<8 | uint32(data[5]),
	}, nil
}

// Read triggers and polls until a sample is ready or the timeout passes.
func (c *Chip) Read() (Sample, error) {
	if err := c.Trigger(); err != nil {
		return Sample{}, err
	}
	deadline := time.Now().Add(c.timing.CollectTimeout)
	for {
		s, err := c.Collect()
		if err != ErrNotReady {
			return s, err
		}
		if time.Now().After(deadline) {
			return Sample{}, ErrTimeout
		}
		time.Sleep(c.timing.PollInterval)
	}
}

// Sample holds the 20-bit raw readings.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

// DeciRelHumidity returns tenths of %RH.
func (s Sample) DeciRelHumidity() int32 {
	return (int32(s.RawHumidity) * 1000) / 0x100000
}

// RelHumidityX100 returns hundredths of %RH, rounded to nearest.
func (s Sample) RelHumidityX100() uint32 {
	return uint32(mathx.RoundDiv(uint64(s.RawHumidity)*10000, 0x100000))
}

// DeciCelsius returns tenths of °C.
func (s Sample) DeciCelsius() int32 {
	return ((int32(s.RawTemp) * 2000) / 0x100000) - 500
}
