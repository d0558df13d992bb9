package main

import (
	"time"

	"boardcore/boards/hostsim"
	"boardcore/boards/x6818"
	"boardcore/config"
	"boardcore/drivers/aht20"
	"boardcore/drivers/csarmv7"
	"boardcore/drivers/cssplit"
	"boardcore/drivers/shtc3"
	"boardcore/dtree"
	"boardcore/errcode"
	"boardcore/hwsim"
	"boardcore/kernel"
	"boardcore/x/logx"
)

// system is a booted kernel plus the simulated hardware behind it.
type system struct {
	k   *kernel.Kernel
	sim *sim

	// halted is set once the machine powered off or rebooted.
	halted bool
}

// sim keeps simulated counters in step with wall time.
type sim struct {
	start    time.Time
	counters []simCounter
	buses    hwsim.Buses
}

type simCounter struct {
	c    *hwsim.Counter
	rate uint64
}

func newSim() *sim {
	s := &sim{start: time.Now(), buses: hwsim.DefaultBuses()}
	// about 23.4 °C and 45 %RH on both sensors
	s.buses["i2c0"].(*hwsim.I2C).Attach(aht20.Address, hwsim.AHT20(0x5E000, 0x73333))
	s.buses["i2c1"].(*hwsim.I2C).Attach(0x70, hwsim.SHTC3(0x6400, 0x7333))
	return s
}

func (s *sim) counter(rate uint64) *hwsim.Counter {
	c := hwsim.NewCounter(rate)
	s.counters = append(s.counters, simCounter{c: c, rate: rate})
	return c
}

// sync advances every counter to the ticks elapsed since start.
func (s *sim) sync() {
	if s == nil {
		return
	}
	el := uint64(time.Since(s.start))
	for _, sc := range s.counters {
		sc.c.Set(el / 1000 * sc.rate / 1_000_000)
	}
}

func bringUp(cfg config.Boot, log *logx.Logger) (*system, error) {
	k := kernel.New(
		kernel.WithLogger(log),
		kernel.WithCapacities(kernel.Capacities{
			Drivers:  cfg.Capacity.Drivers,
			Clocks:   cfg.Capacity.Clocks,
			Machines: cfg.Capacity.Machines,
		}),
	)
	sys := &system{k: k}
	if err := cfg.Publish(k.Bus.NewConnection("config")); err != nil {
		return nil, err
	}

	var calls []kernel.Initcall
	var builtin string
	switch cfg.Board {
	case hostsim.Name:
		hc := hostsim.DefaultConfig()
		if cfg.Serial != "" {
			hc.Serial = cfg.Serial
		}
		sys.sim = newSim()
		split := hwsim.NewSplitCounter(sys.sim.counter(32768))
		calls = []kernel.Initcall{
			kernel.Board(hostsim.New(hc, log)),
			kernel.Driver(csarmv7.New(sys.sim.counter(cfg.Clock.Frequency), k.Clocks,
				csarmv7.WithMaxSec(cfg.Clock.MaxSeconds), csarmv7.WithLogger(log))),
			kernel.Driver(cssplit.New(split, k.Clocks, log)),
			kernel.Driver(aht20.New(sys.sim.buses, aht20.WithBus(k.Bus.NewConnection("aht20")), aht20.WithLogger(log))),
			kernel.Driver(shtc3.New(sys.sim.buses, k.Bus.NewConnection("shtc3"), log)),
		}
		builtin = hostsim.DeviceTree

	case x6818.Name:
		sys.sim = newSim()
		calls = []kernel.Initcall{
			kernel.Board(x6818.New()),
			kernel.Driver(csarmv7.New(sys.sim.counter(cfg.Clock.Frequency), k.Clocks,
				csarmv7.WithMaxSec(cfg.Clock.MaxSeconds), csarmv7.WithLogger(log))),
			kernel.Driver(aht20.New(sys.sim.buses, aht20.WithLogger(log))),
		}
		builtin = x6818.DeviceTree

	default:
		var ok bool
		calls, builtin, ok = hostBoard(cfg, k, log)
		if !ok {
			return nil, errcode.New(errcode.NotFound, "boardctl", "unknown board "+cfg.Board)
		}
	}

	var tree *dtree.Tree
	var err error
	if cfg.DeviceTree != "" {
		tree, err = dtree.Load(cfg.DeviceTree)
	} else {
		tree, err = dtree.Parse([]byte(builtin))
	}
	if err != nil {
		return nil, err
	}

	if err := k.Add(calls...); err != nil {
		return nil, err
	}
	if err := k.Boot(tree); err != nil {
		return nil, err
	}
	return sys, nil
}
