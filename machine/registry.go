package machine

import (
	"sync"

	"boardcore/bus"
	"boardcore/errcode"
	"boardcore/types"
	"boardcore/x/logx"
)

var topicState = bus.T("machine", "state")

// Registry keeps registered boards and drives the active one's lifecycle.
// Board callbacks run with the registry locked and must not call back into it.
type Registry struct {
	mu       sync.Mutex
	machines []Machine
	byName   map[string]Machine

	active Machine
	state  State

	capacity int
	events   *bus.Connection
	log      *logx.Logger
}

type Option func(*Registry)

// WithCapacity bounds the number of machines; 0 means unbounded.
func WithCapacity(n int) Option { return func(r *Registry) { r.capacity = n } }

// WithBus publishes lifecycle changes on machine/state.
func WithBus(c *bus.Connection) Option { return func(r *Registry) { r.events = c } }

func WithLogger(l *logx.Logger) Option { return func(r *Registry) { r.log = l } }

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{byName: map[string]Machine{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds m. The first registered machine whose Detect succeeds
// becomes active.
func (r *Registry) Register(m Machine) error {
	const op = "machine.Register"
	if m == nil || m.Name() == "" {
		return errcode.New(errcode.InvalidParams, op, "nil or unnamed machine")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[m.Name()]; dup {
		return errcode.New(errcode.DuplicateName, op, m.Name())
	}
	if r.capacity > 0 && len(r.machines) >= r.capacity {
		return errcode.New(errcode.OutOfMemory, op, m.Name())
	}
	r.machines = append(r.machines, m)
	r.byName[m.Name()] = m
	r.log.Infof("register machine '%s'", m.Name())

	if r.active == nil && m.Detect() {
		r.active = m
		r.setState(Detected)
		r.log.Infof("machine '%s' detected: %s", m.Name(), m.Desc())
	}
	return nil
}

// Unregister removes m by identity. The active machine is cleaned up first.
func (r *Registry) Unregister(m Machine) error {
	const op = "machine.Unregister"
	if m == nil {
		return errcode.New(errcode.NotFound, op, "nil machine")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byName[m.Name()] != m {
		return errcode.New(errcode.NotFound, op, m.Name())
	}
	if r.active == m {
		m.Cleanup()
		r.active = nil
		r.setState(Uninitialized)
	}
	delete(r.byName, m.Name())
	for i, x := range r.machines {
		if x == m {
			r.machines = append(r.machines[:i], r.machines[i+1:]...)
			break
		}
	}
	r.log.Infof("unregister machine '%s'", m.Name())
	return nil
}

// Active returns the active machine, if any.
func (r *Registry) Active() (Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.active != nil
}

func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Machines returns a snapshot in registration order.
func (r *Registry) Machines() []Machine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Machine(nil), r.machines...)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// transition runs fn on the active machine if the state is from. A true
// result moves to to; false yields failCode and leaves the state alone.
func (r *Registry) transition(op string, from, to State, failCode errcode.Code, fn func(Machine) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return errcode.New(errcode.NotFound, op, "no active machine")
	}
	if r.state != from {
		return errcode.New(errcode.InvalidState, op, r.state.String())
	}
	if !fn(r.active) {
		r.log.Warnf("%s: %s on '%s'", op, string(failCode), r.active.Name())
		return errcode.New(failCode, op, r.active.Name())
	}
	r.setState(to)
	return nil
}

// PowerOn brings a detected machine to Running.
func (r *Registry) PowerOn() error {
	return r.transition("machine.PowerOn", Detected, Running, errcode.Failed, Machine.PowerOn)
}

// PowerOff may not return on real hardware. Unsupported leaves the machine Running.
func (r *Registry) PowerOff() error {
	return r.transition("machine.PowerOff", Running, PoweredOff, errcode.Unsupported, Machine.PowerOff)
}

// Reboot may not return on real hardware. Unsupported leaves the machine Running.
func (r *Registry) Reboot() error {
	return r.transition("machine.Reboot", Running, Rebooting, errcode.Unsupported, Machine.Reboot)
}

// Sleep suspends a running machine. Unsupported leaves it Running.
func (r *Registry) Sleep() error {
	return r.transition("machine.Sleep", Running, Suspended, errcode.Unsupported, Machine.Sleep)
}

// Wake records that wake hardware resumed a suspended machine.
func (r *Registry) Wake() error {
	return r.transition("machine.Wake", Suspended, Running, errcode.Failed, func(Machine) bool { return true })
}

// Cleanup runs the active machine's teardown without changing state.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		r.active.Cleanup()
	}
}

// UniqueID is valid in any state.
func (r *Registry) UniqueID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", false
	}
	return r.active.UniqueID()
}

// Banks returns the active machine's usable banks.
func (r *Registry) Banks() []Bank {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	return UsableBanks(r.active.Banks())
}

// TotalMemory sums the usable banks.
func (r *Registry) TotalMemory() uint64 {
	var n uint64
	for _, b := range r.Banks() {
		n += b.Size
	}
	return n
}

// setState runs with r.mu held.
func (r *Registry) setState(s State) {
	r.state = s
	name := ""
	if r.active != nil {
		name = r.active.Name()
	}
	r.events.Set(topicState, types.MachineEvent{Name: name, State: s.String()})
}
