package main

import (
	"fmt"
	"io"

	"boardcore/errcode"
	"boardcore/types"
)

type command func(sys *system, args []string, w io.Writer) error

var commands = map[string]command{
	"banks":     cmdBanks,
	"devices":   cmdDevices,
	"clocks":    cmdClocks,
	"sensors":   cmdSensors,
	"lifecycle": cmdLifecycle,
	"uniqueid":  cmdUniqueID,
}

func cmdBanks(sys *system, _ []string, w io.Writer) error {
	for i, b := range sys.k.Machines.Banks() {
		fmt.Fprintf(w, "bank%d  0x%08x-0x%08x  %d MiB\n", i, b.Start, b.End()-1, b.Size>>20)
	}
	fmt.Fprintf(w, "total  %d MiB\n", sys.k.Machines.TotalMemory()>>20)
	return nil
}

func cmdDevices(sys *system, _ []string, w io.Writer) error {
	for _, d := range sys.k.Devices.Devices() {
		fmt.Fprintf(w, "%-22s %-20s %s\n", d.Name, d.DriverName(), d.Node.Path())
	}
	return nil
}

func cmdClocks(sys *system, _ []string, w io.Writer) error {
	sys.sim.sync()
	best, _ := sys.k.Clocks.Best()
	for _, cs := range sys.k.Clocks.Sources() {
		mark := " "
		if cs == best {
			mark = "*"
		}
		ticks := cs.Read()
		fmt.Fprintf(w, "%s %-22s %11d Hz  mult %-10d shift %-2d  %d ticks = %d ns\n",
			mark, cs.Name, cs.Frequency(), cs.Mult, cs.Shift, ticks, cs.ToNs(ticks))
	}
	return nil
}

type sampler interface {
	Sample() (types.EnvReading, error)
}

func cmdSensors(sys *system, _ []string, w io.Writer) error {
	for _, d := range sys.k.Devices.Devices() {
		s, ok := d.Priv.(sampler)
		if !ok {
			continue
		}
		r, err := s.Sample()
		if err != nil {
			fmt.Fprintf(w, "%-22s error: %v\n", d.Name, err)
			continue
		}
		t := int(r.DeciC)
		sign := ""
		if t < 0 {
			sign, t = "-", -t
		}
		fmt.Fprintf(w, "%-22s %s%d.%d C  %d.%02d %%RH\n", d.Name, sign, t/10, t%10, r.RHx100/100, r.RHx100%100)
	}
	return nil
}

func cmdLifecycle(sys *system, args []string, w io.Writer) error {
	if len(args) != 1 {
		return errcode.New(errcode.InvalidParams, "lifecycle", "want poweroff, reboot or sleep")
	}
	m := sys.k.Machines
	switch args[0] {
	case "poweroff":
		if err := m.PowerOff(); err != nil {
			return err
		}
		sys.halted = true
	case "reboot":
		if err := m.Reboot(); err != nil {
			return err
		}
		sys.halted = true
	case "sleep":
		if err := sys.k.Suspend(); err != nil {
			return err
		}
		fmt.Fprintf(w, "state %s\n", m.State())
		if err := sys.k.Resume(); err != nil {
			return err
		}
	default:
		return errcode.New(errcode.InvalidParams, "lifecycle", "unknown transition "+args[0])
	}
	fmt.Fprintf(w, "state %s\n", m.State())
	return nil
}

func cmdUniqueID(sys *system, _ []string, w io.Writer) error {
	id, ok := sys.k.Machines.UniqueID()
	if !ok {
		return errcode.New(errcode.Unsupported, "uniqueid", "board has no unique id")
	}
	fmt.Fprintln(w, id)
	return nil
}
