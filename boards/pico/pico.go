//go:build rp2040 || rp2350

// Package pico is the Raspberry Pi Pico / Pico 2 board: on-chip SRAM, the
// 64-bit microsecond timer and the two I²C controllers on their default
// pins.
package pico

import (
	"encoding/hex"
	"machine"

	"tinygo.org/x/drivers"

	core "boardcore/machine"
	"boardcore/x/logx"
)

const Name = "pico"

type Board struct {
	core.Base
}

func New() *Board {
	return &Board{Base: core.Base{
		BoardName: Name,
		BoardDesc: "Raspberry Pi Pico (RP2 family)",
		Memory:    []core.Bank{{Start: 0x20000000, Size: sramSize}, {}},
	}}
}

func (*Board) Detect() bool   { return true }
func (*Board) PowerOn() bool  { return true }
func (*Board) PowerOff() bool { return false }
func (*Board) Sleep() bool    { return false }
func (*Board) Cleanup() bool  { return true }

// Reboot resets the core through the watchdog and does not return.
func (*Board) Reboot() bool {
	machine.CPUReset()
	return true
}

// UniqueID is the QSPI flash's 64-bit unique id.
func (*Board) UniqueID() (string, bool) {
	id := machine.DeviceID()
	if len(id) == 0 {
		return "", false
	}
	return hex.EncodeToString(id), true
}

// Buses maps descriptor bus ids to the I²C controllers.
type Buses map[string]drivers.I2C

// DefaultBuses configures i2c0 and i2c1 at 400 kHz on the board default
// pins. A controller that fails to configure is logged and left out, so
// nodes on it fail to probe.
func DefaultBuses(log *logx.Logger) Buses {
	buses := Buses{}
	for _, c := range []struct {
		id       string
		bus      *machine.I2C
		sda, scl machine.Pin
	}{
		{"i2c0", machine.I2C0, machine.I2C0_SDA_PIN, machine.I2C0_SCL_PIN},
		{"i2c1", machine.I2C1, machine.I2C1_SDA_PIN, machine.I2C1_SCL_PIN},
	} {
		err := c.bus.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz, SDA: c.sda, SCL: c.scl})
		if err != nil {
			log.Errorf("%s: configure: %s", c.id, err.Error())
			continue
		}
		buses[c.id] = c.bus
	}
	return buses
}

func (b Buses) ByID(id string) (drivers.I2C, bool) {
	i2c, ok := b[id]
	return i2c, ok
}

const DeviceTree = `
cs-split-timer@0: {}
sensor-aht20@0:
  bus: i2c0
sensor-shtc3@0:
  bus: i2c1
`
