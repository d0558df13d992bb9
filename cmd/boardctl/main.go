// boardctl boots the hardware-abstraction core on the host and inspects
// it: memory banks, bound devices, clock sources, sensor readings and the
// board's power lifecycle.
//
// The default board is "hostsim", which runs entirely on simulated
// hardware. "x6818" uses the real board description over simulated
// counters. On Linux, "linuxhost" drives the running machine itself.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"boardcore/config"
	"boardcore/errcode"
	"boardcore/x/logx"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var cfgPath string
	flags := config.Default()

	fs := pflag.NewFlagSet("boardctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfgPath, "config", "", "boot configuration file (YAML)")
	flags.AddFlags(fs)
	fs.BoolP("help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(fs, stderr)
			return nil
		}
		return err
	}
	if help, _ := fs.GetBool("help"); help || fs.NArg() == 0 {
		printHelp(fs, stderr)
		return nil
	}

	cfg, err := config.Load(cfgPath, fs)
	if err != nil {
		return err
	}
	log := logx.New(stderr, cfg.Level()).With(cfg.Log.Tag)

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		return errcode.New(errcode.InvalidParams, "boardctl", "unknown command "+fs.Arg(0))
	}

	sys, err := bringUp(cfg, log)
	if err != nil {
		return err
	}
	cmdErr := cmd(sys, fs.Args()[1:], stdout)
	if sys.halted {
		return cmdErr
	}
	if err := sys.k.Shutdown(); err != nil {
		log.Warnf("shutdown: %s", err.Error())
	}
	return cmdErr
}

func printHelp(fs *pflag.FlagSet, w io.Writer) {
	fmt.Fprint(w, `boardctl inspects the board core.

Usage:
  boardctl [flags] <command> [args]

Commands:
  banks                          usable memory banks
  devices                        bound devices
  clocks                         clock sources with a current reading
  sensors                        sample every environment sensor
  lifecycle poweroff|reboot|sleep
                                 drive the machine lifecycle
  uniqueid                       the board's unique id, if any

Flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}
