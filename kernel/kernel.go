// Package kernel ties the registries together and runs the boot sequence:
// core initcalls (boards), driver initcalls, machine power-on, then a probe
// pass over the descriptor tree. Shutdown unwinds it in reverse.
package kernel

import (
	"sort"
	"strings"
	"sync"

	"boardcore/bus"
	"boardcore/clocksource"
	"boardcore/device"
	"boardcore/dtree"
	"boardcore/errcode"
	"boardcore/machine"
	"boardcore/types"
	"boardcore/x/logx"
)

type Tier uint8

const (
	TierCore   Tier = iota // machine descriptors
	TierDriver             // peripheral and timer drivers
)

func (t Tier) String() string {
	if t == TierCore {
		return "core"
	}
	return "driver"
}

// Initcall is one boot hook. Exit, when set, runs at shutdown only if Init
// succeeded.
type Initcall struct {
	Tier Tier
	Name string
	Init func(k *Kernel) error
	Exit func(k *Kernel) error
}

// Level is the kernel's coarse lifecycle stage, published on kernel/state.
type Level string

const (
	LevelCreated   Level = "created"
	LevelBooting   Level = "booting"
	LevelRunning   Level = "running"
	LevelSuspended Level = "suspended"
	LevelStopped   Level = "stopped"
)

var topicState = bus.T("kernel", "state")

// Capacities bounds each registry; zero means unbounded.
type Capacities struct {
	Drivers  int
	Clocks   int
	Machines int
}

type Kernel struct {
	Bus      *bus.Bus
	Devices  *device.Registry
	Clocks   *clocksource.Registry
	Machines *machine.Registry
	Log      *logx.Logger

	conn *bus.Connection

	mu    sync.Mutex
	calls []Initcall
	ran   []Initcall
	level Level
}

type config struct {
	log      *logx.Logger
	caps     Capacities
	queueLen int
}

type Option func(*config)

func WithLogger(l *logx.Logger) Option { return func(c *config) { c.log = l } }
func WithCapacities(caps Capacities) Option { return func(c *config) { c.caps = caps } }
func WithQueueLen(n int) Option { return func(c *config) { c.queueLen = n } }

func New(opts ...Option) *Kernel {
	c := config{queueLen: 16}
	for _, o := range opts {
		o(&c)
	}
	b := bus.NewBus(c.queueLen)
	k := &Kernel{
		Bus:   b,
		Log:   c.log,
		conn:  b.NewConnection("kernel"),
		level: LevelCreated,
	}
	k.Devices = device.NewRegistry(
		device.WithCapacity(c.caps.Drivers),
		device.WithBus(b.NewConnection("device")),
		device.WithLogger(c.log.With("device")),
	)
	k.Clocks = clocksource.NewRegistry(
		clocksource.WithCapacity(c.caps.Clocks),
		clocksource.WithBus(b.NewConnection("clocksource")),
		clocksource.WithLogger(c.log.With("clocksource")),
	)
	k.Machines = machine.NewRegistry(
		machine.WithCapacity(c.caps.Machines),
		machine.WithBus(b.NewConnection("machine")),
		machine.WithLogger(c.log.With("machine")),
	)
	return k
}

// Add queues initcalls. It fails once Boot has started.
func (k *Kernel) Add(calls ...Initcall) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.level != LevelCreated {
		return errcode.New(errcode.InvalidState, "kernel.Add", string(k.level))
	}
	for _, c := range calls {
		if c.Init == nil {
			return errcode.New(errcode.InvalidParams, "kernel.Add", c.Name+": no init")
		}
	}
	k.calls = append(k.calls, calls...)
	return nil
}

func (k *Kernel) Level() Level {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.level
}

// Boot runs initcalls tier by tier in the order added, powers on the
// active machine and probes t (which may be nil). A failing initcall is
// logged and skipped, and a missing machine only warns. When power-on
// fails Boot unwinds the initcalls that ran and leaves the kernel stopped.
func (k *Kernel) Boot(t *dtree.Tree) error {
	const op = "kernel.Boot"
	k.mu.Lock()
	if k.level != LevelCreated {
		k.mu.Unlock()
		return errcode.New(errcode.InvalidState, op, string(k.level))
	}
	calls := append([]Initcall(nil), k.calls...)
	k.mu.Unlock()
	k.setLevel(LevelBooting)

	sort.SliceStable(calls, func(i, j int) bool { return calls[i].Tier < calls[j].Tier })
	for _, c := range calls {
		if err := c.Init(k); err != nil {
			k.Log.Warnf("initcall %s/%s: %s", c.Tier, c.Name, err.Error())
			continue
		}
		k.Log.Debugf("initcall %s/%s", c.Tier, c.Name)
		k.mu.Lock()
		k.ran = append(k.ran, c)
		k.mu.Unlock()
	}

	if m, ok := k.Machines.Active(); !ok {
		k.Log.Warnf("no machine detected, booting without one")
	} else if err := k.Machines.PowerOn(); err != nil {
		k.Log.Errorf("power on: %s", err.Error())
		k.unwind()
		k.setLevel(LevelStopped)
		return err
	} else {
		k.Log.Infof("machine %s (%s), %d MiB", m.Name(), m.Desc(), k.Machines.TotalMemory()>>20)
	}

	n := 0
	if t != nil {
		n = k.Devices.ProbeAll(t)
	}
	k.Log.Infof("booted: %d devices, %d clock sources", n, k.Clocks.Len())
	k.setLevel(LevelRunning)
	return nil
}

// Shutdown removes every device, runs exit calls in reverse and cleans up
// the machine. Drivers or clock sources still registered afterwards are
// leaks and reported as Busy.
func (k *Kernel) Shutdown() error {
	const op = "kernel.Shutdown"
	if lv := k.Level(); lv == LevelCreated || lv == LevelStopped {
		return errcode.New(errcode.InvalidState, op, string(lv))
	}

	if removed := k.Devices.Teardown(); len(removed) > 0 {
		k.Log.Infof("removed %s", strings.Join(removed, " "))
	}

	k.unwind()
	k.setLevel(LevelStopped)

	var leaked []string
	for _, d := range k.Devices.Drivers() {
		leaked = append(leaked, "driver:"+d.Name())
	}
	for _, cs := range k.Clocks.Sources() {
		leaked = append(leaked, "clocksource:"+cs.Name)
	}
	if len(leaked) > 0 {
		return errcode.New(errcode.Busy, op, strings.Join(leaked, " "))
	}
	return nil
}

// unwind runs the exit calls of successful initcalls in reverse, then the
// machine cleanup.
func (k *Kernel) unwind() {
	k.mu.Lock()
	ran := k.ran
	k.ran = nil
	k.mu.Unlock()
	for i := len(ran) - 1; i >= 0; i-- {
		c := ran[i]
		if c.Exit == nil {
			continue
		}
		if err := c.Exit(k); err != nil {
			k.Log.Warnf("exit %s/%s: %s", c.Tier, c.Name, err.Error())
		}
	}
	k.Machines.Cleanup()
}

// Suspend quiesces devices and puts the machine to sleep. When the board
// cannot sleep the devices are resumed again and the error returned.
func (k *Kernel) Suspend() error {
	if lv := k.Level(); lv != LevelRunning {
		return errcode.New(errcode.InvalidState, "kernel.Suspend", string(lv))
	}
	k.Devices.SuspendAll()
	if err := k.Machines.Sleep(); err != nil {
		k.Devices.ResumeAll()
		return err
	}
	k.setLevel(LevelSuspended)
	return nil
}

// Resume is called once wake hardware has brought the machine back.
func (k *Kernel) Resume() error {
	if lv := k.Level(); lv != LevelSuspended {
		return errcode.New(errcode.InvalidState, "kernel.Resume", string(lv))
	}
	if err := k.Machines.Wake(); err != nil {
		return err
	}
	k.Devices.ResumeAll()
	k.setLevel(LevelRunning)
	return nil
}

// Clock returns a timekeeper over the best registered clock source.
func (k *Kernel) Clock() (*clocksource.Timekeeper, error) {
	cs, ok := k.Clocks.Best()
	if !ok {
		return nil, errcode.New(errcode.NotFound, "kernel.Clock", "no clock source")
	}
	return clocksource.NewTimekeeper(cs), nil
}

func (k *Kernel) setLevel(lv Level) {
	k.mu.Lock()
	k.level = lv
	k.mu.Unlock()
	k.conn.Set(topicState, types.KernelState{
		Level:   string(lv),
		Devices: len(k.Devices.Devices()),
		Clocks:  k.Clocks.Len(),
	})
}
