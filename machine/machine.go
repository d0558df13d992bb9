// Package machine holds board descriptors: memory layout plus the power
// lifecycle every board honours the same way.
//
//	Uninitialized → Detected → Running → {Suspended, Rebooting, PoweredOff}
//	Suspended → Running (wake)
//
// Rebooting and PoweredOff end the session. Board callbacks report
// capability with a bool: false means the board cannot do it and nothing
// changed.
package machine

// Machine is implemented by each board.
type Machine interface {
	Name() string
	Desc() string
	// Banks lists memory regions; a zero-size entry ends the list.
	Banks() []Bank

	Detect() bool
	PowerOn() bool
	PowerOff() bool
	Reboot() bool
	Sleep() bool
	// Cleanup is idempotent teardown, valid in any state.
	Cleanup() bool
	// UniqueID returns a board identity if the hardware has one.
	UniqueID() (string, bool)
}

// Bank is a contiguous memory region.
type Bank struct {
	Start uint64
	Size  uint64
}

// End returns the first address past the bank.
func (b Bank) End() uint64 { return b.Start + b.Size }

// UsableBanks returns banks up to, not including, the first zero-size entry.
func UsableBanks(banks []Bank) []Bank {
	for i, b := range banks {
		if b.Size == 0 {
			return banks[:i]
		}
	}
	return banks
}

// State is the lifecycle position of the active machine.
type State uint8

const (
	Uninitialized State = iota
	Detected
	Running
	Suspended
	Rebooting
	PoweredOff
)

func (s State) String() string {
	switch s {
	case Detected:
		return "detected"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Rebooting:
		return "rebooting"
	case PoweredOff:
		return "powered_off"
	default:
		return "uninitialized"
	}
}

// Terminal reports whether s ends the session.
func (s State) Terminal() bool { return s == Rebooting || s == PoweredOff }

// Base supplies the fixed parts of a board descriptor; boards embed it and
// implement the lifecycle callbacks.
type Base struct {
	BoardName string
	BoardDesc string
	Memory    []Bank
}

func (b *Base) Name() string  { return b.BoardName }
func (b *Base) Desc() string  { return b.BoardDesc }
func (b *Base) Banks() []Bank { return b.Memory }

// SZ_* sizes for bank tables.
const (
	SZ_1M   uint64 = 1 << 20
	SZ_512M uint64 = 512 * SZ_1M
	SZ_1G   uint64 = 1 << 30
)
