// Package types holds the payloads the core publishes on the event bus.
package types

// ---- Device lifecycle (retained on device/<name>) ----

type DeviceState string

const (
	DeviceProbed    DeviceState = "probed"
	DeviceSuspended DeviceState = "suspended"
	DeviceResumed   DeviceState = "resumed"
	DeviceRemoved   DeviceState = "removed"
)

type DeviceEvent struct {
	Name   string      `json:"name"`   // e.g. "cs-armv7-timer.0"
	Driver string      `json:"driver"` // e.g. "cs-armv7-timer"
	Node   string      `json:"node"`   // descriptor path, e.g. "cs-armv7-timer@0"
	State  DeviceState `json:"state"`
}

// ---- Clock sources (retained on clocksource/<name>) ----

type ClockEvent struct {
	Name       string `json:"name"`
	FreqHz     uint64 `json:"freq_hz"`
	Mult       uint64 `json:"mult"`
	Shift      uint32 `json:"shift"`
	Registered bool   `json:"registered"`
}

// ---- Machine (retained on machine/state) ----

type MachineEvent struct {
	Name  string `json:"name"`
	State string `json:"state"` // machine.State string form
}

// ---- Boot summary (retained on kernel/state) ----

type KernelState struct {
	Level   string `json:"level"` // "booting", "running", "suspended", "stopped"
	Devices int    `json:"devices"`
	Clocks  int    `json:"clocks"`
}

// ---- Environment sensors (retained on env/<device>) ----

type EnvReading struct {
	Sensor string `json:"sensor"`  // chip family, e.g. "aht20"
	DeciC  int16  `json:"deci_c"`  // tenths of °C, 231 => 23.1 °C
	RHx100 uint16 `json:"rh_x100"` // hundredths of %RH, 0..10000
}
