package device

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardcore/bus"
	"boardcore/dtree"
	"boardcore/errcode"
	"boardcore/types"
)

// fakeDriver records every callback into a shared journal.
type fakeDriver struct {
	name    string
	journal *[]string
	decline map[string]bool // node paths to refuse
	live    int
}

func newFake(name string, journal *[]string) *fakeDriver {
	return &fakeDriver{name: name, journal: journal, decline: map[string]bool{}}
}

func (f *fakeDriver) Name() string { return f.name }

func (f *fakeDriver) Probe(dev *Device) error {
	*f.journal = append(*f.journal, "probe "+dev.Name)
	if f.decline[dev.Node.Path()] {
		return errors.New("no hardware")
	}
	f.live++
	dev.Priv = dev.Node.ReadInt("value", 0)
	return nil
}

func (f *fakeDriver) Remove(dev *Device) {
	f.live--
	*f.journal = append(*f.journal, "remove "+dev.Name)
}
func (f *fakeDriver) Suspend(dev *Device) { *f.journal = append(*f.journal, "suspend "+dev.Name) }
func (f *fakeDriver) Resume(dev *Device)  { *f.journal = append(*f.journal, "resume "+dev.Name) }

func node(path string, props map[string]any) dtree.Node { return dtree.NewNode(path, props) }

func TestRegisterDuplicateName(t *testing.T) {
	var j []string
	r := NewRegistry()
	require.NoError(t, r.Register(newFake("cs-armv7-timer", &j)))

	err := r.Register(newFake("cs-armv7-timer", &j))
	assert.Equal(t, errcode.DuplicateName, errcode.Of(err))

	count := 0
	for _, d := range r.Drivers() {
		if d.Name() == "cs-armv7-timer" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	var j []string
	r := NewRegistry()
	before := r.Drivers()

	drv := newFake("led", &j)
	require.NoError(t, r.Register(drv))
	_, ok := r.LookupDriver("led")
	assert.True(t, ok)

	require.NoError(t, r.Unregister(drv))
	assert.Equal(t, before, r.Drivers())
	_, ok = r.LookupDriver("led")
	assert.False(t, ok)

	assert.Equal(t, errcode.NotFound, errcode.Of(r.Unregister(drv)))
	// same name, different identity
	require.NoError(t, r.Register(drv))
	assert.Equal(t, errcode.NotFound, errcode.Of(r.Unregister(newFake("led", &j))))
}

func TestRegisterValidatesAndBounds(t *testing.T) {
	var j []string
	r := NewRegistry(WithCapacity(1))
	assert.Equal(t, errcode.InvalidParams, errcode.Of(r.Register(nil)))
	assert.Equal(t, errcode.InvalidParams, errcode.Of(r.Register(newFake("", &j))))

	require.NoError(t, r.Register(newFake("a", &j)))
	assert.Equal(t, errcode.OutOfMemory, errcode.Of(r.Register(newFake("b", &j))))
	assert.Len(t, r.Drivers(), 1)
}

func TestProbeBindsByName(t *testing.T) {
	var j []string
	r := NewRegistry()
	drv := newFake("sensor", &j)
	require.NoError(t, r.Register(drv))

	dev, err := r.Probe(node("sensor@3", map[string]any{"value": 7}))
	require.NoError(t, err)
	assert.Equal(t, "sensor.3", dev.Name)
	assert.Same(t, drv, dev.Driver)
	v, ok := Priv[int64](dev)
	require.True(t, ok)
	assert.Equal(t, int64(7), v)

	// indexless nodes take the lowest free index
	a, err := r.Probe(node("sensor", nil))
	require.NoError(t, err)
	assert.Equal(t, "sensor.0", a.Name)
	b, err := r.Probe(node("sensor@", nil))
	require.NoError(t, err)
	assert.Equal(t, "sensor.1", b.Name)

	got, ok := r.DeviceFor("sensor@3")
	require.True(t, ok)
	assert.Same(t, dev, got)
	got, ok = r.LookupDevice("sensor.0")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, "sensor", got.DriverName())
}

func TestProbeFailuresLeaveRegistryUnchanged(t *testing.T) {
	var j []string
	r := NewRegistry()
	drv := newFake("sensor", &j)
	drv.decline["sensor@0"] = true
	require.NoError(t, r.Register(drv))

	_, err := r.Probe(node("sensor@0", nil))
	assert.Equal(t, errcode.ProbeFailed, errcode.Of(err))
	assert.Empty(t, r.Devices())

	_, err = r.Probe(node("nobody@0", nil))
	assert.Equal(t, errcode.NotFound, errcode.Of(err))

	_, err = r.Probe(nil)
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))

	n := node("sensor@1", nil)
	_, err = r.Probe(n)
	require.NoError(t, err)
	_, err = r.Probe(n)
	assert.Equal(t, errcode.DuplicateName, errcode.Of(err), "a node binds once")
	assert.Len(t, r.Devices(), 1)
}

func TestRemoveIsNotIdempotentSuccess(t *testing.T) {
	var j []string
	r := NewRegistry()
	drv := newFake("led", &j)
	require.NoError(t, r.Register(drv))
	dev, err := r.Probe(node("led@0", nil))
	require.NoError(t, err)

	require.NoError(t, r.Remove(dev))
	assert.Equal(t, 0, drv.live)
	assert.Equal(t, errcode.NotFound, errcode.Of(r.Remove(dev)))
	assert.Equal(t, errcode.NotFound, errcode.Of(r.Remove(nil)))
	assert.Equal(t, []string{"probe led.0", "remove led.0"}, j)

	// the node can be probed again after removal
	_, err = r.Probe(node("led@0", nil))
	assert.NoError(t, err)
}

func TestUnregisterBusyWhileBound(t *testing.T) {
	var j []string
	r := NewRegistry()
	drv := newFake("led", &j)
	require.NoError(t, r.Register(drv))
	dev, err := r.Probe(node("led@0", nil))
	require.NoError(t, err)

	assert.Equal(t, errcode.Busy, errcode.Of(r.Unregister(drv)))
	require.NoError(t, r.Remove(dev))
	assert.NoError(t, r.Unregister(drv))
}

// gatedDriver blocks in Probe until release is closed.
type gatedDriver struct {
	NopPower
	entered chan struct{}
	release chan struct{}
}

func (g *gatedDriver) Name() string { return "gate" }
func (g *gatedDriver) Probe(*Device) error {
	close(g.entered)
	<-g.release
	return nil
}
func (g *gatedDriver) Remove(*Device) {}

func TestUnregisterWaitsForProbe(t *testing.T) {
	r := NewRegistry()
	drv := &gatedDriver{entered: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, r.Register(drv))

	probed := make(chan error, 1)
	go func() {
		_, err := r.Probe(node("gate@0", nil))
		probed <- err
	}()
	<-drv.entered

	unregistered := make(chan error, 1)
	go func() { unregistered <- r.Unregister(drv) }()
	select {
	case err := <-unregistered:
		t.Fatalf("Unregister returned during Probe: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(drv.release)
	require.NoError(t, <-probed)
	assert.Equal(t, errcode.Busy, errcode.Of(<-unregistered))
	dev, ok := r.LookupDevice("gate.0")
	require.True(t, ok)
	assert.Same(t, Driver(drv), dev.Driver)
}

func TestSuspendResumeOrdering(t *testing.T) {
	var j []string
	r := NewRegistry()
	require.NoError(t, r.Register(newFake("clk", &j)))
	require.NoError(t, r.Register(newFake("i2c", &j)))
	require.NoError(t, r.Register(newFake("sensor", &j)))
	for _, p := range []string{"clk@0", "i2c@0", "sensor@0"} {
		_, err := r.Probe(node(p, nil))
		require.NoError(t, err)
	}
	j = nil

	r.SuspendAll()
	r.ResumeAll()
	assert.Equal(t, []string{
		"suspend clk.0", "suspend i2c.0", "suspend sensor.0",
		"resume sensor.0", "resume i2c.0", "resume clk.0",
	}, j)
}

func TestResumeSkipsDevicesRemovedWhileSuspended(t *testing.T) {
	var j []string
	r := NewRegistry()
	require.NoError(t, r.Register(newFake("a", &j)))
	require.NoError(t, r.Register(newFake("b", &j)))
	_, err := r.Probe(node("a@0", nil))
	require.NoError(t, err)
	b, err := r.Probe(node("b@0", nil))
	require.NoError(t, err)

	r.SuspendAll()
	require.NoError(t, r.Remove(b))
	j = nil
	r.ResumeAll()
	assert.Equal(t, []string{"resume a.0"}, j)
}

func TestProbeAllContinuesPastFailures(t *testing.T) {
	var j []string
	r := NewRegistry()
	drv := newFake("sensor", &j)
	drv.decline["sensor@1"] = true
	require.NoError(t, r.Register(drv))

	tr, err := dtree.New(
		node("sensor@0", nil),
		node("sensor@1", nil),
		node("orphan@0", nil),
		node("sensor@2", map[string]any{"status": "disabled"}),
		node("sensor@3", nil),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, r.ProbeAll(tr))
	var names []string
	for _, d := range r.Devices() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"sensor.0", "sensor.3"}, names)
}

func TestTeardownDrainsNewestFirst(t *testing.T) {
	var j []string
	r := NewRegistry()
	drv := newFake("x", &j)
	require.NoError(t, r.Register(drv))
	for _, p := range []string{"x@0", "x@1", "x@2"} {
		_, err := r.Probe(node(p, nil))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"x.2", "x.1", "x.0"}, r.Teardown())
	assert.Empty(t, r.Devices())
	assert.Equal(t, 0, drv.live)
	assert.Empty(t, r.Teardown())
}

func TestRegistryPublishesDeviceState(t *testing.T) {
	var j []string
	b := bus.NewBus(16)
	r := NewRegistry(WithBus(b.NewConnection("device")))
	require.NoError(t, r.Register(newFake("led", &j)))
	dev, err := r.Probe(node("led@0", nil))
	require.NoError(t, err)
	r.SuspendAll()

	// a late subscriber sees the retained latest state
	sub := b.NewConnection("watch").Subscribe(bus.T("device", "led.0"))
	m := <-sub.Channel()
	ev := m.Payload.(types.DeviceEvent)
	assert.Equal(t, types.DeviceSuspended, ev.State)
	assert.Equal(t, "led@0", ev.Node)

	require.NoError(t, r.Remove(dev))
	m = <-sub.Channel()
	assert.Equal(t, types.DeviceRemoved, m.Payload.(types.DeviceEvent).State)
}
