//go:build linux

package linuxhost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"boardcore/errcode"
	"boardcore/machine"
	"boardcore/x/logx"
)

func stubHost(t *testing.T, rebootErr error) *[]int {
	t.Helper()
	var cmds []int
	oldReboot, oldSync := rebootFn, syncFn
	rebootFn = func(cmd int) error { cmds = append(cmds, cmd); return rebootErr }
	syncFn = func() {}
	t.Cleanup(func() { rebootFn, syncFn = oldReboot, oldSync })
	return &cmds
}

func TestDetectAndBanks(t *testing.T) {
	b := New(logx.Discard())
	assert.True(t, b.Detect())
	banks := machine.UsableBanks(b.Banks())
	require.Len(t, banks, 1)
	assert.NotZero(t, banks[0].Size)
}

func TestRefusedPowerOffIsUnsupported(t *testing.T) {
	cmds := stubHost(t, unix.EPERM)
	r := machine.NewRegistry()
	require.NoError(t, r.Register(New(logx.Discard())))
	require.NoError(t, r.PowerOn())

	assert.Equal(t, errcode.Unsupported, errcode.Of(r.PowerOff()))
	assert.Equal(t, machine.Running, r.State())
	assert.Equal(t, []int{unix.LINUX_REBOOT_CMD_POWER_OFF}, *cmds)
}

func TestRebootIssuesRestart(t *testing.T) {
	cmds := stubHost(t, nil)
	r := machine.NewRegistry()
	require.NoError(t, r.Register(New(logx.Discard())))
	require.NoError(t, r.PowerOn())

	require.NoError(t, r.Reboot())
	assert.Equal(t, machine.Rebooting, r.State())
	assert.Equal(t, []int{unix.LINUX_REBOOT_CMD_RESTART}, *cmds)
}

func TestUniqueIDFromMachineID(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad")
	good := filepath.Join(dir, "good")
	require.NoError(t, os.WriteFile(bad, []byte("not-an-id\n"), 0o644))
	require.NoError(t, os.WriteFile(good, []byte("0123456789abcdef0123456789abcdef\n"), 0o644))

	old := machineIDPaths
	t.Cleanup(func() { machineIDPaths = old })

	machineIDPaths = []string{filepath.Join(dir, "missing"), bad, good}
	id, ok := New(logx.Discard()).UniqueID()
	require.True(t, ok)
	assert.Equal(t, "01234567-89ab-cdef-0123-456789abcdef", id)

	machineIDPaths = []string{bad}
	_, ok = New(logx.Discard()).UniqueID()
	assert.False(t, ok)
}
