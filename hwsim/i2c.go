package hwsim

import (
	"sync"

	"tinygo.org/x/drivers"
)

// Responder answers one I²C transaction by filling r. Returning an error
// models a NACK or bus fault.
type Responder func(addr uint16, w, r []byte) error

// I2C implements tinygo drivers.I2C for host-side tests.
type I2C struct {
	mu      sync.Mutex
	devices map[uint16]Responder
	LastTx  struct {
		Addr uint16
		W    []byte
		Rn   int
	}
	Count int
}

// Attach answers transactions to addr with fn.
func (b *I2C) Attach(addr uint16, fn Responder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.devices == nil {
		b.devices = map[uint16]Responder{}
	}
	b.devices[addr] = fn
}

func (b *I2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	b.LastTx.Addr = addr
	b.LastTx.W = append([]byte(nil), w...)
	b.LastTx.Rn = len(r)
	b.Count++
	fn := b.devices[addr]
	b.mu.Unlock()
	if fn == nil {
		return ErrNoDevice
	}
	return fn(addr, w, r)
}

// Buses is a named set of I²C buses, e.g. "i2c0", "i2c1".
type Buses map[string]drivers.I2C

func (m Buses) ByID(id string) (drivers.I2C, bool) {
	b, ok := m[id]
	return b, ok
}

// DefaultBuses creates inert buses "i2c0" and "i2c1".
func DefaultBuses() Buses {
	return Buses{"i2c0": &I2C{}, "i2c1": &I2C{}}
}

var _ drivers.I2C = (*I2C)(nil)
