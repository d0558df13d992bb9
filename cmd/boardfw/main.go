//go:build rp2040 || rp2350

// boardfw is the Pico firmware image: it boots the core with the split
// system timer and both environment sensors, then logs a reading every
// few seconds over the console UART.
package main

import (
	"time"

	"boardcore/boards/pico"
	"boardcore/drivers/aht20"
	"boardcore/drivers/cssplit"
	"boardcore/drivers/shtc3"
	"boardcore/dtree"
	"boardcore/kernel"
	"boardcore/types"
	"boardcore/x/logx"
)

const interval = 5 * time.Second

type sampler interface {
	Sample() (types.EnvReading, error)
}

func main() {
	// Allow USB CDC to enumerate before the first line.
	time.Sleep(2 * time.Second)
	if err := logx.UseConsoleUART(); err != nil {
		println("[fw] console:", err.Error())
	}
	log := logx.New(nil, logx.LevelInfo).With("fw")

	k := kernel.New(
		kernel.WithLogger(log),
		kernel.WithCapacities(kernel.Capacities{Drivers: 8, Clocks: 2, Machines: 1}),
		kernel.WithQueueLen(4),
	)
	buses := pico.DefaultBuses(log.With("i2c"))
	if err := k.Add(
		kernel.Board(pico.New()),
		kernel.Driver(cssplit.New(pico.Timer{}, k.Clocks, log)),
		kernel.Driver(aht20.New(buses, aht20.WithBus(k.Bus.NewConnection("aht20")), aht20.WithLogger(log))),
		kernel.Driver(shtc3.New(buses, k.Bus.NewConnection("shtc3"), log)),
	); err != nil {
		log.Errorf("initcalls: %s", err.Error())
		return
	}

	tree, err := dtree.Parse([]byte(pico.DeviceTree))
	if err != nil {
		log.Errorf("device tree: %s", err.Error())
		return
	}
	if err := k.Boot(tree); err != nil {
		log.Errorf("boot: %s", err.Error())
		return
	}
	if id, ok := k.Machines.UniqueID(); ok {
		log.Infof("board id %s", id)
	}

	clock, err := k.Clock()
	if err != nil {
		log.Errorf("clock: %s", err.Error())
		return
	}
	for {
		time.Sleep(interval)
		up := clock.Now()
		for _, d := range k.Devices.Devices() {
			s, ok := d.Priv.(sampler)
			if !ok {
				continue
			}
			r, err := s.Sample()
			if err != nil {
				log.Warnf("%s: %s", d.Name, err.Error())
				continue
			}
			log.Infof("%s up %dms: %d dC, %d cRH", d.Name, int64(up/time.Millisecond), r.DeciC, r.RHx100)
		}
	}
}
