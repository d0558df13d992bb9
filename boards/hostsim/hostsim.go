// Package hostsim is a simulated board for host builds and tests.
package hostsim

import (
	"sync"

	"github.com/google/uuid"

	"boardcore/machine"
	"boardcore/x/logx"
)

const Name = "hostsim"

// Namespace scopes unique ids derived from board serials.
var Namespace = uuid.MustParse("6f1c0b5e-2a51-4f63-9d0e-5b1c3e7a9a10")

type Config struct {
	Name   string
	Desc   string
	Banks  []machine.Bank
	Serial string // empty: no unique id

	Absent      bool // Detect fails
	NoPowerOn   bool
	CanPowerOff bool
	CanSleep    bool
	NoReboot    bool
}

// DefaultConfig mirrors a small 1 GiB board with sleep support.
func DefaultConfig() Config {
	return Config{
		Name: Name,
		Desc: "Simulated host board",
		Banks: []machine.Bank{
			{Start: 0x40000000, Size: machine.SZ_512M},
			{Start: 0x60000000, Size: machine.SZ_512M},
			{},
		},
		Serial:   "hostsim-0001",
		CanSleep: true,
	}
}

type Board struct {
	machine.Base
	cfg Config
	log *logx.Logger

	mu    sync.Mutex
	calls []string
}

func New(cfg Config, log *logx.Logger) *Board {
	if cfg.Name == "" {
		cfg.Name = Name
	}
	return &Board{
		Base: machine.Base{BoardName: cfg.Name, BoardDesc: cfg.Desc, Memory: cfg.Banks},
		cfg:  cfg,
		log:  log.With(cfg.Name),
	}
}

func (b *Board) record(call string, ok bool) bool {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
	b.log.Debugf("%s -> %v", call, ok)
	return ok
}

// Calls returns the lifecycle hooks invoked so far, oldest first.
func (b *Board) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *Board) Detect() bool   { return b.record("detect", !b.cfg.Absent) }
func (b *Board) PowerOn() bool  { return b.record("poweron", !b.cfg.NoPowerOn) }
func (b *Board) PowerOff() bool { return b.record("poweroff", b.cfg.CanPowerOff) }
func (b *Board) Reboot() bool   { return b.record("reboot", !b.cfg.NoReboot) }
func (b *Board) Sleep() bool    { return b.record("sleep", b.cfg.CanSleep) }
func (b *Board) Cleanup() bool  { return b.record("cleanup", true) }

// UniqueID is a name-based UUID of the serial, stable across runs.
func (b *Board) UniqueID() (string, bool) {
	if b.cfg.Serial == "" {
		return "", false
	}
	return uuid.NewSHA1(Namespace, []byte(b.cfg.Serial)).String(), true
}

// DeviceTree wires every simulated peripheral the host CLI knows about.
const DeviceTree = `
cs-armv7-timer@0:
  clock-frequency: 24000000
cs-split-timer@0:
  clock-frequency: 32768
sensor-aht20@0:
  bus: i2c0
  reg: 0x38
sensor-shtc3@0:
  bus: i2c1
uart@0:
  status: disabled
`
