package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardcore/errcode"
)

func boardctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	err := run(append([]string{"--log-level", "error"}, args...), &out, &logs)
	return out.String(), err
}

func TestBanks(t *testing.T) {
	out, err := boardctl(t, "banks")
	require.NoError(t, err)
	assert.Contains(t, out, "bank0  0x40000000-0x5fffffff  512 MiB")
	assert.Contains(t, out, "bank1  0x60000000-0x7fffffff  512 MiB")
	assert.NotContains(t, out, "bank2")
	assert.Contains(t, out, "total  1024 MiB")

	out, err = boardctl(t, "--board", "x6818", "banks")
	require.NoError(t, err)
	assert.Contains(t, out, "total  1024 MiB")
}

func TestDevices(t *testing.T) {
	out, err := boardctl(t, "devices")
	require.NoError(t, err)
	for _, name := range []string{"cs-armv7-timer.0", "cs-split-timer.0", "sensor-aht20.0", "sensor-shtc3.0"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, "uart")
}

func TestClocks(t *testing.T) {
	out, err := boardctl(t, "clocks")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "* cs-armv7-timer.0"), lines[0])
	assert.Contains(t, lines[1], "32768 Hz")
}

func TestSensors(t *testing.T) {
	out, err := boardctl(t, "sensors")
	require.NoError(t, err)
	assert.Contains(t, out, "sensor-aht20.0")
	assert.Contains(t, out, "23.4 C  45.00 %RH")
	assert.Contains(t, out, "sensor-shtc3.0")
}

func TestLifecycle(t *testing.T) {
	out, err := boardctl(t, "lifecycle", "sleep")
	require.NoError(t, err)
	assert.Equal(t, "state suspended\nstate running\n", out)

	_, err = boardctl(t, "lifecycle", "poweroff")
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))

	out, err = boardctl(t, "lifecycle", "reboot")
	require.NoError(t, err)
	assert.Equal(t, "state rebooting\n", out)

	_, err = boardctl(t, "--board", "x6818", "lifecycle", "sleep")
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))

	_, err = boardctl(t, "lifecycle")
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestUniqueID(t *testing.T) {
	out, err := boardctl(t, "uniqueid")
	require.NoError(t, err)
	_, err = uuid.Parse(strings.TrimSpace(out))
	assert.NoError(t, err)

	again, err := boardctl(t, "--serial", "other", "uniqueid")
	require.NoError(t, err)
	assert.NotEqual(t, out, again)

	_, err = boardctl(t, "--board", "x6818", "uniqueid")
	assert.Equal(t, errcode.Unsupported, errcode.Of(err))
}

func TestDeviceTreeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dt.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cs-split-timer@4": {"clock-frequency": "0x8000"}}`), 0o644))

	out, err := boardctl(t, "--dt", path, "devices")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "cs-split-timer.4")
}

func TestBadInvocations(t *testing.T) {
	_, err := boardctl(t, "frobnicate")
	assert.Equal(t, errcode.InvalidParams, errcode.Of(err))

	_, err = boardctl(t, "--board", "vax", "banks")
	assert.Equal(t, errcode.NotFound, errcode.Of(err))

	var out, logs bytes.Buffer
	require.NoError(t, run([]string{"--help"}, &out, &logs))
	assert.Contains(t, logs.String(), "Commands:")
	assert.Empty(t, out.String())
}
