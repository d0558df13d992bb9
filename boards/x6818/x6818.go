// Package x6818 describes the Samsung S5P6818 based x6818 board.
package x6818

import "boardcore/machine"

const (
	Name = "x6818"
	Desc = "X6818 Based On Samsung S5P6818"
)

// Board needs no probing; every hook except power-off and sleep succeeds.
type Board struct {
	machine.Base
}

func New() *Board {
	return &Board{Base: machine.Base{
		BoardName: Name,
		BoardDesc: Desc,
		Memory: []machine.Bank{
			{Start: 0x40000000, Size: machine.SZ_512M},
			{Start: 0x60000000, Size: machine.SZ_512M},
			{Start: 0, Size: 0},
		},
	}}
}

func (*Board) Detect() bool   { return true }
func (*Board) PowerOn() bool  { return true }
func (*Board) PowerOff() bool { return false }
func (*Board) Reboot() bool   { return true }
func (*Board) Sleep() bool    { return false }
func (*Board) Cleanup() bool  { return true }

// UniqueID is not exposed by this SoC.
func (*Board) UniqueID() (string, bool) { return "", false }

// DeviceTree is the board's built-in descriptor tree.
const DeviceTree = `
cs-armv7-timer@0:
  clock-frequency: 24000000
sensor-aht20@0:
  bus: i2c0
  status: disabled
`
