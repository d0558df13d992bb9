// Package device binds descriptor nodes to drivers. A driver is registered
// once under a unique name; each node whose name (the part of its key before
// '@') equals a driver name is offered to that driver's Probe. A successful
// probe yields exactly one live Device, which lives until Remove.
package device

import (
	"boardcore/dtree"
)

// Driver is implemented by every peripheral driver.
//
// Probe receives a Device whose Name, Node and Driver are already set and
// fills in Priv. Returning an error declines the node; the driver must
// release anything it allocated before returning.
//
// Suspend and Resume are advisory hooks; they must not fail and may no-op.
// Drivers are compared by identity, so implement them on pointer types.
type Driver interface {
	Name() string
	Probe(dev *Device) error
	Remove(dev *Device)
	Suspend(dev *Device)
	Resume(dev *Device)
}

// Device is a live binding of a driver to a node.
type Device struct {
	Name   string // "<node name>.<index>", e.g. "cs-armv7-timer.0"
	Driver Driver
	Node   dtree.Node

	// Priv is owned by the driver.
	Priv any
}

// DriverName returns the owning driver's name.
func (d *Device) DriverName() string { return d.Driver.Name() }

// Priv returns the device's private state as T.
func Priv[T any](d *Device) (T, bool) {
	v, ok := d.Priv.(T)
	return v, ok
}

// NopPower provides empty Suspend/Resume for drivers with nothing to save.
type NopPower struct{}

func (NopPower) Suspend(*Device) {}
func (NopPower) Resume(*Device)  {}
