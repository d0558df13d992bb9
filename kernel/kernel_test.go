package kernel

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardcore/boards/hostsim"
	"boardcore/bus"
	"boardcore/device"
	"boardcore/drivers/csarmv7"
	"boardcore/dtree"
	"boardcore/errcode"
	"boardcore/hwsim"
	"boardcore/types"
	"boardcore/x/logx"
)

// journalDriver records power callbacks in a shared journal.
type journalDriver struct {
	name    string
	journal *[]string
}

func (d *journalDriver) Name() string { return d.name }
func (d *journalDriver) Probe(dev *device.Device) error {
	*d.journal = append(*d.journal, "probe "+dev.Name)
	return nil
}
func (d *journalDriver) Remove(dev *device.Device)  { *d.journal = append(*d.journal, "remove "+dev.Name) }
func (d *journalDriver) Suspend(dev *device.Device) { *d.journal = append(*d.journal, "suspend "+dev.Name) }
func (d *journalDriver) Resume(dev *device.Device)  { *d.journal = append(*d.journal, "resume "+dev.Name) }

func tree(t *testing.T) *dtree.Tree {
	t.Helper()
	tr, err := dtree.Parse([]byte(`
cs-armv7-timer@0:
  clock-frequency: 24000000
led@0: {}
led@1:
  status: disabled
uart@0: {}
`))
	require.NoError(t, err)
	return tr
}

func boot(t *testing.T, cfg hostsim.Config, journal *[]string) (*Kernel, *hostsim.Board, *hwsim.Counter) {
	t.Helper()
	k := New(WithLogger(logx.Discard()))
	board := hostsim.New(cfg, logx.Discard())
	hw := hwsim.NewCounter(0)
	require.NoError(t, k.Add(
		Driver(&journalDriver{name: "led", journal: journal}),
		Driver(csarmv7.New(hw, k.Clocks)),
		Board(board),
	))
	require.NoError(t, k.Boot(tree(t)))
	return k, board, hw
}

func TestBootOrder(t *testing.T) {
	var journal []string
	k, board, _ := boot(t, hostsim.DefaultConfig(), &journal)

	assert.Equal(t, LevelRunning, k.Level())
	assert.Equal(t, []string{"detect", "poweron"}, board.Calls())
	assert.Equal(t, []string{"probe led.0"}, journal)
	assert.Len(t, k.Devices.Devices(), 2)

	cs, ok := k.Clocks.Lookup("cs-armv7-timer.0")
	require.True(t, ok)
	assert.Equal(t, uint64(24_000_000), cs.Frequency())
}

func TestCoreTierRunsFirst(t *testing.T) {
	var order []string
	k := New()
	mk := func(tier Tier, name string) Initcall {
		return Initcall{Tier: tier, Name: name, Init: func(*Kernel) error { order = append(order, name); return nil }}
	}
	require.NoError(t, k.Add(mk(TierDriver, "d1"), mk(TierCore, "c1"), mk(TierDriver, "d2"), mk(TierCore, "c2")))
	require.NoError(t, k.Add(Board(hostsim.New(hostsim.DefaultConfig(), nil))))
	require.NoError(t, k.Boot(nil))
	assert.Equal(t, []string{"c1", "c2", "d1", "d2"}, order)

	assert.Equal(t, errcode.InvalidState, errcode.Of(k.Add(mk(TierCore, "late"))))
	assert.Equal(t, errcode.InvalidState, errcode.Of(k.Boot(nil)))
}

func TestFailedInitSkipsExit(t *testing.T) {
	exited := false
	k := New()
	require.NoError(t, k.Add(
		Board(hostsim.New(hostsim.DefaultConfig(), nil)),
		Initcall{
			Tier: TierDriver, Name: "broken",
			Init: func(*Kernel) error { return errors.New("no hardware") },
			Exit: func(*Kernel) error { exited = true; return nil },
		},
	))
	require.NoError(t, k.Boot(nil))
	require.NoError(t, k.Shutdown())
	assert.False(t, exited)
}

func TestBootWithoutMachine(t *testing.T) {
	var journal []string
	cfg := hostsim.DefaultConfig()
	cfg.Absent = true
	k, board, _ := boot(t, cfg, &journal)

	assert.Equal(t, LevelRunning, k.Level())
	assert.Equal(t, []string{"detect"}, board.Calls())
	assert.Equal(t, []string{"probe led.0"}, journal)
	_, ok := k.Machines.Active()
	assert.False(t, ok)
	require.NoError(t, k.Shutdown())
}

func TestBootPowerOnFailureUnwinds(t *testing.T) {
	var journal []string
	cfg := hostsim.DefaultConfig()
	cfg.NoPowerOn = true
	k := New(WithLogger(logx.Discard()))
	board := hostsim.New(cfg, logx.Discard())
	require.NoError(t, k.Add(
		Driver(&journalDriver{name: "led", journal: &journal}),
		Board(board),
	))

	err := k.Boot(tree(t))
	require.Error(t, err)
	assert.Equal(t, errcode.Failed, errcode.Of(err))
	assert.Equal(t, 1, strings.Count(err.Error(), string(errcode.Failed)))
	assert.Equal(t, LevelStopped, k.Level())
	assert.Empty(t, journal)
	assert.Empty(t, k.Devices.Drivers())
	assert.Empty(t, k.Machines.Machines())
	assert.Equal(t, []string{"detect", "poweron", "cleanup"}, board.Calls())
}

func TestShutdownUnwinds(t *testing.T) {
	var journal []string
	k, board, _ := boot(t, hostsim.DefaultConfig(), &journal)

	require.NoError(t, k.Shutdown())
	assert.Equal(t, LevelStopped, k.Level())
	assert.Equal(t, []string{"probe led.0", "remove led.0"}, journal)
	assert.Empty(t, k.Devices.Drivers())
	assert.Zero(t, k.Clocks.Len())
	assert.Equal(t, "cleanup", board.Calls()[len(board.Calls())-1])
	_, ok := k.Machines.Active()
	assert.False(t, ok)

	assert.Equal(t, errcode.InvalidState, errcode.Of(k.Shutdown()))
}

func TestShutdownReportsLeaks(t *testing.T) {
	k := New()
	require.NoError(t, k.Add(
		Board(hostsim.New(hostsim.DefaultConfig(), nil)),
		Initcall{Tier: TierDriver, Name: "led", Init: func(k *Kernel) error {
			var j []string
			return k.Devices.Register(&journalDriver{name: "led", journal: &j})
		}},
	))
	require.NoError(t, k.Boot(nil))
	err := k.Shutdown()
	assert.Equal(t, errcode.Busy, errcode.Of(err))
	assert.Contains(t, err.Error(), "driver:led")
}

func TestSuspendResume(t *testing.T) {
	var journal []string
	k, _, _ := boot(t, hostsim.DefaultConfig(), &journal)
	journal = journal[:0]

	require.NoError(t, k.Suspend())
	assert.Equal(t, LevelSuspended, k.Level())
	assert.Equal(t, errcode.InvalidState, errcode.Of(k.Suspend()))
	require.NoError(t, k.Resume())
	assert.Equal(t, LevelRunning, k.Level())
	assert.Equal(t, []string{"suspend led.0", "resume led.0"}, journal)
}

func TestSuspendUnsupportedResumesDevices(t *testing.T) {
	var journal []string
	cfg := hostsim.DefaultConfig()
	cfg.CanSleep = false
	k, _, _ := boot(t, cfg, &journal)
	journal = journal[:0]

	err := k.Suspend()
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))
	assert.Equal(t, LevelRunning, k.Level())
	assert.Equal(t, []string{"suspend led.0", "resume led.0"}, journal)
}

func TestClock(t *testing.T) {
	var journal []string
	k, _, hw := boot(t, hostsim.DefaultConfig(), &journal)

	tk, err := k.Clock()
	require.NoError(t, err)
	hw.Advance(24_000_000)
	assert.InDelta(t, 1e9, float64(tk.Now()), 1e3)

	require.NoError(t, k.Shutdown())
	_, err = k.Clock()
	assert.Equal(t, errcode.NotFound, errcode.Of(err))
}

func TestStatePublished(t *testing.T) {
	var journal []string
	k, _, _ := boot(t, hostsim.DefaultConfig(), &journal)

	sub := k.Bus.NewConnection("t").Subscribe(bus.T("kernel", "state"))
	m := <-sub.Channel()
	assert.Equal(t, types.KernelState{Level: "running", Devices: 2, Clocks: 1}, m.Payload)
}

func TestQueueLenBoundsSubscribers(t *testing.T) {
	k := New(WithQueueLen(1))
	require.NoError(t, k.Add(Board(hostsim.New(hostsim.DefaultConfig(), nil))))
	sub := k.Bus.NewConnection("t").Subscribe(bus.T("kernel", "state"))

	require.NoError(t, k.Boot(nil))
	require.Len(t, sub.Channel(), 1)
	m := <-sub.Channel()
	assert.Equal(t, "running", m.Payload.(types.KernelState).Level)
}
