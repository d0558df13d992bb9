package shtc3

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sensirion "tinygo.org/x/drivers/shtc3"

	"boardcore/device"
	"boardcore/dtree"
	"boardcore/errcode"
	"boardcore/hwsim"
	"boardcore/types"
	"boardcore/x/logx"
)

// fakeChip reports raw 0x8000 for both channels: 42.5 °C and 50 %RH.
type fakeChip struct {
	mu    sync.Mutex
	cmds  []string
	awake bool
}

func (f *fakeChip) respond(_ uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch string(w) {
	case sensirion.SHTC3_CMD_WAKEUP:
		f.awake = true
		f.cmds = append(f.cmds, "wake")
	case sensirion.SHTC3_CMD_SLEEP:
		f.awake = false
		f.cmds = append(f.cmds, "sleep")
	case sensirion.SHTC3_CMD_MEASURE_HP:
		f.cmds = append(f.cmds, "measure")
		if f.awake {
			copy(r, []byte{0x80, 0x00, 0x00, 0x80, 0x00, 0x00})
		}
	}
	return nil
}

func (f *fakeChip) log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cmds...)
}

func setup(t *testing.T) (*fakeChip, *device.Registry, *device.Device) {
	t.Helper()
	buses := hwsim.DefaultBuses()
	f := &fakeChip{}
	buses["i2c0"].(*hwsim.I2C).Attach(sensirion.SHTC3_ADDRESS, f.respond)

	devs := device.NewRegistry()
	require.NoError(t, devs.Register(New(buses, nil, logx.Discard())))
	dev, err := devs.Probe(dtree.NewNode(Name+"@0", nil))
	require.NoError(t, err)
	return f, devs, dev
}

func TestProbeLeavesChipAsleep(t *testing.T) {
	f, _, _ := setup(t)
	assert.Equal(t, []string{"wake", "sleep"}, f.log())
}

func TestSample(t *testing.T) {
	f, _, dev := setup(t)
	s, ok := device.Priv[*Sensor](dev)
	require.True(t, ok)

	r, err := s.Sample()
	require.NoError(t, err)
	assert.Equal(t, types.EnvReading{
		Sensor: "shtc3",
		DeciC:  425,
		RHx100: 5000,
	}, r)
	assert.Equal(t, []string{"wake", "sleep", "wake", "measure", "sleep"}, f.log())
}

func TestSuspendResume(t *testing.T) {
	f, devs, dev := setup(t)
	s, _ := device.Priv[*Sensor](dev)

	devs.SuspendAll()
	_, err := s.Sample()
	assert.Equal(t, errcode.InvalidState, errcode.Of(err))
	assert.Equal(t, "sleep", f.log()[len(f.log())-1])

	devs.ResumeAll()
	_, err = s.Sample()
	assert.NoError(t, err)
}

func TestProbeWithoutChip(t *testing.T) {
	devs := device.NewRegistry()
	require.NoError(t, devs.Register(New(hwsim.DefaultBuses(), nil, logx.Discard())))
	_, err := devs.Probe(dtree.NewNode(Name+"@0", nil))
	assert.Equal(t, errcode.ProbeFailed, errcode.Of(err))

	_, err = devs.Probe(dtree.NewNode(Name+"@1", map[string]any{"bus": "spi0"}))
	assert.Equal(t, errcode.NotFound, errcode.Of(err))
}
