package clocksource

import (
	"sync"

	"boardcore/bus"
	"boardcore/errcode"
	"boardcore/types"
	"boardcore/x/logx"
)

// Registry holds the registered clock sources in registration order.
type Registry struct {
	mu     sync.Mutex
	list   []*ClockSource
	byName map[string]*ClockSource

	capacity int
	events   *bus.Connection
	log      *logx.Logger
}

type Option func(*Registry)

// WithCapacity bounds the number of sources; 0 means unbounded.
func WithCapacity(n int) Option { return func(r *Registry) { r.capacity = n } }

// WithBus publishes registrations on clocksource/<name>.
func WithBus(c *bus.Connection) Option { return func(r *Registry) { r.events = c } }

func WithLogger(l *logx.Logger) Option { return func(r *Registry) { r.log = l } }

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{byName: map[string]*ClockSource{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

func topic(name string) bus.Topic { return bus.T("clocksource", name) }

func event(cs *ClockSource, registered bool) types.ClockEvent {
	return types.ClockEvent{Name: cs.Name, FreqHz: cs.Freq, Mult: cs.Mult, Shift: cs.Shift, Registered: registered}
}

// Register adds cs. Nothing is registered on failure.
func (r *Registry) Register(cs *ClockSource) error {
	const op = "clocksource.Register"
	if cs == nil || cs.Name == "" || cs.Reader == nil {
		return errcode.New(errcode.InvalidParams, op, "nil source or reader")
	}
	if cs.Mult == 0 || cs.Freq == 0 {
		return errcode.New(errcode.InvalidParams, op, cs.Name+": unscaled source")
	}

	r.mu.Lock()
	if _, dup := r.byName[cs.Name]; dup {
		r.mu.Unlock()
		return errcode.New(errcode.DuplicateName, op, cs.Name)
	}
	if r.capacity > 0 && len(r.list) >= r.capacity {
		r.mu.Unlock()
		return errcode.New(errcode.OutOfMemory, op, cs.Name)
	}
	r.list = append(r.list, cs)
	r.byName[cs.Name] = cs
	r.mu.Unlock()

	r.log.Infof("registered %s (%d Hz, mult=%d shift=%d)", cs.Name, cs.Freq, cs.Mult, cs.Shift)
	r.events.Set(topic(cs.Name), event(cs, true))
	return nil
}

// Unregister removes cs by identity.
func (r *Registry) Unregister(cs *ClockSource) error {
	if cs == nil {
		return errcode.New(errcode.NotFound, "clocksource.Unregister", "nil source")
	}
	r.mu.Lock()
	if r.byName[cs.Name] != cs {
		r.mu.Unlock()
		return errcode.New(errcode.NotFound, "clocksource.Unregister", cs.Name)
	}
	delete(r.byName, cs.Name)
	for i, s := range r.list {
		if s == cs {
			r.list = append(r.list[:i], r.list[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.log.Infof("unregistered %s", cs.Name)
	r.events.Clear(topic(cs.Name), event(cs, false))
	return nil
}

func (r *Registry) Lookup(name string) (*ClockSource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cs, ok := r.byName[name]
	return cs, ok
}

// Sources returns a snapshot in registration order.
func (r *Registry) Sources() []*ClockSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*ClockSource(nil), r.list...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

// Best returns the highest-frequency source; the earliest registered wins ties.
func (r *Registry) Best() (*ClockSource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *ClockSource
	for _, cs := range r.list {
		if best == nil || cs.Freq > best.Freq {
			best = cs
		}
	}
	return best, best != nil
}
