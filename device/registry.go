package device

import (
	"strconv"
	"sync"

	"boardcore/bus"
	"boardcore/dtree"
	"boardcore/errcode"
	"boardcore/types"
	"boardcore/x/logx"
)

// Registry owns registered drivers and the devices they produced.
//
// Driver callbacks run serialised and without the registry's data lock
// held, so a callback may query the registry but must not probe, remove,
// suspend or resume through it.
type Registry struct {
	op sync.Mutex // serialises driver callbacks
	mu sync.Mutex // guards the fields below

	drivers  []Driver
	byDriver map[string]Driver

	devices []*Device // probe order
	byNode  map[string]*Device
	byName  map[string]*Device

	suspended []*Device // order of the last SuspendAll

	capacity int
	events   *bus.Connection
	log      *logx.Logger
}

type Option func(*Registry)

// WithCapacity bounds the number of drivers; 0 means unbounded.
func WithCapacity(n int) Option { return func(r *Registry) { r.capacity = n } }

// WithBus publishes device state on device/<name>.
func WithBus(c *bus.Connection) Option { return func(r *Registry) { r.events = c } }

func WithLogger(l *logx.Logger) Option { return func(r *Registry) { r.log = l } }

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byDriver: map[string]Driver{},
		byNode:   map[string]*Device{},
		byName:   map[string]*Device{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// -----------------------------------------------------------------------------
// Drivers
// -----------------------------------------------------------------------------

func (r *Registry) Register(drv Driver) error {
	const op = "device.Register"
	if drv == nil || drv.Name() == "" {
		return errcode.New(errcode.InvalidParams, op, "nil or unnamed driver")
	}
	name := drv.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byDriver[name]; dup {
		return errcode.New(errcode.DuplicateName, op, name)
	}
	if r.capacity > 0 && len(r.drivers) >= r.capacity {
		return errcode.New(errcode.OutOfMemory, op, name)
	}
	r.drivers = append(r.drivers, drv)
	r.byDriver[name] = drv
	r.log.Debugf("driver %s registered", name)
	return nil
}

// Unregister removes drv by identity. A driver with live devices is Busy.
// It waits for any driver callback in flight.
func (r *Registry) Unregister(drv Driver) error {
	const op = "device.Unregister"
	if drv == nil {
		return errcode.New(errcode.NotFound, op, "nil driver")
	}
	name := drv.Name()

	r.op.Lock()
	defer r.op.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byDriver[name] != drv {
		return errcode.New(errcode.NotFound, op, name)
	}
	for _, d := range r.devices {
		if d.Driver == drv {
			return errcode.New(errcode.Busy, op, name+" still bound to "+d.Name)
		}
	}
	delete(r.byDriver, name)
	for i, d := range r.drivers {
		if d == drv {
			r.drivers = append(r.drivers[:i], r.drivers[i+1:]...)
			break
		}
	}
	r.log.Debugf("driver %s unregistered", name)
	return nil
}

func (r *Registry) LookupDriver(name string) (Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byDriver[name]
	return d, ok
}

// Drivers returns a snapshot in registration order.
func (r *Registry) Drivers() []Driver {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Driver(nil), r.drivers...)
}

// -----------------------------------------------------------------------------
// Devices
// -----------------------------------------------------------------------------

// Probe offers node to the driver whose name equals node.ReadName(). On
// success the new Device is recorded against the node path.
func (r *Registry) Probe(node dtree.Node) (*Device, error) {
	const op = "device.Probe"
	if node == nil {
		return nil, errcode.New(errcode.InvalidParams, op, "nil node")
	}

	r.op.Lock()
	defer r.op.Unlock()

	r.mu.Lock()
	drv, ok := r.byDriver[node.ReadName()]
	if !ok {
		r.mu.Unlock()
		return nil, errcode.New(errcode.NotFound, op, "no driver for "+node.Path())
	}
	if d, bound := r.byNode[node.Path()]; bound {
		r.mu.Unlock()
		return nil, errcode.New(errcode.DuplicateName, op, node.Path()+" already bound to "+d.Name)
	}
	name, err := r.allocName(node.ReadName(), node.ReadID(-1))
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	dev := &Device{Name: name, Driver: drv, Node: node}
	if err := drv.Probe(dev); err != nil {
		if errcode.Of(err) == errcode.Error {
			err = &errcode.E{C: errcode.ProbeFailed, Op: drv.Name(), Err: err}
		}
		return nil, err
	}

	r.mu.Lock()
	r.devices = append(r.devices, dev)
	r.byNode[node.Path()] = dev
	r.byName[dev.Name] = dev
	r.mu.Unlock()

	r.log.Infof("probed %s (%s)", dev.Name, node.Path())
	r.publish(dev, types.DeviceProbed)
	return dev, nil
}

// allocName returns "<base>.<id>", or the lowest free index when id < 0.
// Caller holds r.mu.
func (r *Registry) allocName(base string, id int) (string, error) {
	if id >= 0 {
		name := base + "." + strconv.Itoa(id)
		if _, taken := r.byName[name]; taken {
			return "", errcode.New(errcode.DuplicateName, "device.Probe", name)
		}
		return name, nil
	}
	for i := 0; ; i++ {
		name := base + "." + strconv.Itoa(i)
		if _, taken := r.byName[name]; !taken {
			return name, nil
		}
	}
}

// ProbeAll offers every enabled node of t in document order. Nodes without
// a matching driver and declined probes are skipped. It returns the number
// of devices bound.
func (r *Registry) ProbeAll(t *dtree.Tree) int {
	n := 0
	for _, node := range t.Nodes() {
		if !dtree.Enabled(node) {
			r.log.Debugf("skip %s: disabled", node.Path())
			continue
		}
		if _, ok := r.LookupDriver(node.ReadName()); !ok {
			r.log.Debugf("skip %s: no driver", node.Path())
			continue
		}
		if _, err := r.Probe(node); err != nil {
			r.log.Warnf("probe %s: %s", node.Path(), err.Error())
			continue
		}
		n++
	}
	return n
}

// Remove calls the owner's Remove hook and discards the record.
func (r *Registry) Remove(dev *Device) error {
	if dev == nil {
		return errcode.New(errcode.NotFound, "device.Remove", "nil device")
	}
	r.op.Lock()
	defer r.op.Unlock()
	return r.remove(dev)
}

// remove runs with r.op held.
func (r *Registry) remove(dev *Device) error {
	r.mu.Lock()
	if r.byName[dev.Name] != dev {
		r.mu.Unlock()
		return errcode.New(errcode.NotFound, "device.Remove", dev.Name)
	}
	r.mu.Unlock()

	dev.Driver.Remove(dev)

	r.mu.Lock()
	delete(r.byName, dev.Name)
	delete(r.byNode, dev.Node.Path())
	r.devices = without(r.devices, dev)
	r.suspended = without(r.suspended, dev)
	r.mu.Unlock()

	r.log.Infof("removed %s", dev.Name)
	r.events.Clear(topic(dev), event(dev, types.DeviceRemoved))
	return nil
}

func without(list []*Device, dev *Device) []*Device {
	for i, d := range list {
		if d == dev {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func (r *Registry) LookupDevice(name string) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byName[name]
	return d, ok
}

// DeviceFor returns the device bound to a node path.
func (r *Registry) DeviceFor(path string) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byNode[path]
	return d, ok
}

// Devices returns a snapshot in probe order.
func (r *Registry) Devices() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Device(nil), r.devices...)
}

// -----------------------------------------------------------------------------
// Power sequencing
// -----------------------------------------------------------------------------

// SuspendAll suspends live devices in probe order.
func (r *Registry) SuspendAll() {
	r.op.Lock()
	defer r.op.Unlock()

	order := r.Devices()
	for _, d := range order {
		d.Driver.Suspend(d)
		r.publish(d, types.DeviceSuspended)
	}
	r.mu.Lock()
	r.suspended = order
	r.mu.Unlock()
}

// ResumeAll resumes devices in the reverse of the last SuspendAll order.
// Without a preceding SuspendAll it walks live devices in reverse probe order.
func (r *Registry) ResumeAll() {
	r.op.Lock()
	defer r.op.Unlock()

	r.mu.Lock()
	order := r.suspended
	if order == nil {
		order = append([]*Device(nil), r.devices...)
	}
	r.suspended = nil
	r.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		d := order[i]
		d.Driver.Resume(d)
		r.publish(d, types.DeviceResumed)
	}
}

// Teardown removes every live device, newest first, and returns the names
// that were still live. The registry holds no devices afterwards.
func (r *Registry) Teardown() []string {
	r.op.Lock()
	defer r.op.Unlock()

	live := r.Devices()
	var names []string
	for i := len(live) - 1; i >= 0; i-- {
		names = append(names, live[i].Name)
		_ = r.remove(live[i])
	}
	return names
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func topic(d *Device) bus.Topic { return bus.T("device", d.Name) }

func event(d *Device, st types.DeviceState) types.DeviceEvent {
	return types.DeviceEvent{Name: d.Name, Driver: d.Driver.Name(), Node: d.Node.Path(), State: st}
}

func (r *Registry) publish(d *Device, st types.DeviceState) {
	r.events.Set(topic(d), event(d, st))
}
