//go:build linux

// Package linuxhost treats the running Linux system as the board.
package linuxhost

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"boardcore/machine"
	"boardcore/x/logx"
)

const Name = "linuxhost"

// Hooks into the host. Tests replace them; nothing else should.
var (
	rebootFn       = unix.Reboot
	syncFn         = unix.Sync
	machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}
)

type Board struct {
	machine.Base
	log *logx.Logger
}

// New sizes a single bank from the kernel's view of physical memory.
func New(log *logx.Logger) *Board {
	b := &Board{log: log.With(Name)}
	b.BoardName = Name
	b.BoardDesc = "Linux host"

	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err == nil {
		size := uint64(si.Totalram) * uint64(si.Unit)
		b.Memory = []machine.Bank{{Start: 0, Size: size}, {}}
	} else {
		b.log.Warnf("sysinfo: %v", err)
	}
	return b
}

func (b *Board) Detect() bool {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return false
	}
	return unix.ByteSliceToString(u.Sysname[:]) == "Linux"
}

func (b *Board) PowerOn() bool { return true }
func (b *Board) Cleanup() bool { return true }

func (b *Board) PowerOff() bool { return b.reboot("power off", unix.LINUX_REBOOT_CMD_POWER_OFF) }
func (b *Board) Reboot() bool   { return b.reboot("reboot", unix.LINUX_REBOOT_CMD_RESTART) }
func (b *Board) Sleep() bool    { return b.reboot("suspend", unix.LINUX_REBOOT_CMD_SW_SUSPEND) }

// reboot returns only when the kernel refused, typically EPERM.
func (b *Board) reboot(what string, cmd int) bool {
	syncFn()
	if err := rebootFn(cmd); err != nil {
		b.log.Warnf("%s: %v", what, err)
		return false
	}
	return true
}

// UniqueID formats the systemd machine id as a UUID.
func (b *Board) UniqueID() (string, bool) {
	for _, p := range machineIDPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		id, err := uuid.Parse(strings.TrimSpace(string(data)))
		if err != nil {
			b.log.Debugf("%s: %v", p, err)
			continue
		}
		return id.String(), true
	}
	return "", false
}

const DeviceTree = `
cs-linux-monotonic@0: {}
`
