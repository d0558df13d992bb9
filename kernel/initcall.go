package kernel

import (
	"boardcore/device"
	"boardcore/machine"
)

// Board registers m in the core tier and unregisters it on shutdown.
func Board(m machine.Machine) Initcall {
	return Initcall{
		Tier: TierCore,
		Name: m.Name(),
		Init: func(k *Kernel) error { return k.Machines.Register(m) },
		Exit: func(k *Kernel) error { return k.Machines.Unregister(m) },
	}
}

// Driver registers drv in the driver tier and unregisters it on shutdown.
func Driver(drv device.Driver) Initcall {
	return Initcall{
		Tier: TierDriver,
		Name: drv.Name(),
		Init: func(k *Kernel) error { return k.Devices.Register(drv) },
		Exit: func(k *Kernel) error { return k.Devices.Unregister(drv) },
	}
}
