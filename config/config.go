// Package config holds the boot configuration: which board to bring up,
// where its descriptor tree lives, and registry and logging settings.
// Values come from an embedded per-board default, then a YAML file, then
// command-line flags.
package config

import (
	"os"
	"sort"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"boardcore/bus"
	"boardcore/errcode"
	"boardcore/x/logx"
)

const configPrefix = "config"

type Clock struct {
	MaxSeconds uint64 `yaml:"max_seconds"` // sizing of one tick→ns conversion
	Frequency  uint64 `yaml:"frequency"`   // simulated counter rate
}

type Log struct {
	Level string `yaml:"level"`
	Tag   string `yaml:"tag"`
}

type Capacity struct {
	Drivers  int `yaml:"drivers"`
	Clocks   int `yaml:"clocks"`
	Machines int `yaml:"machines"`
}

type Boot struct {
	Board      string   `yaml:"board"`
	DeviceTree string   `yaml:"devicetree"` // empty: the board's built-in tree
	Serial     string   `yaml:"serial"`
	Clock      Clock    `yaml:"clock"`
	Log        Log      `yaml:"log"`
	Capacity   Capacity `yaml:"capacity"`
}

func Default() Boot {
	return Boot{
		Board: "hostsim",
		Clock: Clock{MaxSeconds: 10, Frequency: 24_000_000},
		Log:   Log{Level: "info", Tag: "boardcore"},
	}
}

// EmbeddedLookup resolves a board's built-in configuration.
var EmbeddedLookup = func(board string) ([]byte, bool) {
	b, ok := embedded[board]
	return b, ok
}

// ForBoard returns Default overlaid with the board's embedded config.
func ForBoard(board string) (Boot, error) {
	b := Default()
	b.Board = board
	raw, ok := EmbeddedLookup(board)
	if !ok {
		return b, nil
	}
	if err := b.Merge(raw); err != nil {
		return Boot{}, err
	}
	return b, nil
}

// Merge overlays YAML (or JSON) onto b. Keys absent from data keep their
// current values.
func (b *Boot) Merge(data []byte) error {
	if err := yaml.Unmarshal(data, b); err != nil {
		return errcode.Wrap(errcode.InvalidParams, "config.Merge", err)
	}
	return nil
}

// MergeFile overlays the file at path.
func (b *Boot) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errcode.Wrap(errcode.NotFound, "config.MergeFile", err)
	}
	return b.Merge(data)
}

// AddFlags binds command-line overrides to b. Parse the flag set after
// merging files so flags win.
func (b *Boot) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&b.Board, "board", b.Board, "board to bring up (hostsim, x6818, linuxhost)")
	fs.StringVar(&b.DeviceTree, "dt", b.DeviceTree, "descriptor tree file (YAML or JSON)")
	fs.StringVar(&b.Serial, "serial", b.Serial, "board serial for the simulated unique id")
	fs.Uint64Var(&b.Clock.MaxSeconds, "max-seconds", b.Clock.MaxSeconds, "longest interval one clock conversion must cover")
	fs.StringVar(&b.Log.Level, "log-level", b.Log.Level, "debug, info, warn or error")
}

// Load resolves the effective configuration: the board's embedded
// defaults, then the file at path (if any), then every flag the user set
// on fs. fs must have been bound with AddFlags and parsed.
func Load(path string, fs *pflag.FlagSet) (Boot, error) {
	board := Default().Board
	if f := fs.Lookup("board"); f != nil && f.Changed {
		board = f.Value.String()
	}
	b, err := ForBoard(board)
	if err != nil {
		return Boot{}, err
	}
	if path != "" {
		if err := b.MergeFile(path); err != nil {
			return Boot{}, err
		}
	}

	bound := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	b.AddFlags(bound)
	fs.Visit(func(f *pflag.Flag) {
		if bound.Lookup(f.Name) != nil && err == nil {
			err = bound.Set(f.Name, f.Value.String())
		}
	})
	if err != nil {
		return Boot{}, errcode.Wrap(errcode.InvalidParams, "config.Load", err)
	}
	return b, b.Validate()
}

func (b Boot) Validate() error {
	const op = "config.Validate"
	if b.Board == "" {
		return errcode.New(errcode.InvalidParams, op, "board required")
	}
	if b.Clock.MaxSeconds == 0 {
		return errcode.New(errcode.InvalidParams, op, "clock.max_seconds must be positive")
	}
	if b.Capacity.Drivers < 0 || b.Capacity.Clocks < 0 || b.Capacity.Machines < 0 {
		return errcode.New(errcode.InvalidParams, op, "negative capacity")
	}
	return nil
}

// Level parses the configured log level.
func (b Boot) Level() logx.Level { return logx.ParseLevel(b.Log.Level) }

// Publish puts each top-level section on config/<key>, retained.
func (b Boot) Publish(conn *bus.Connection) error {
	raw, err := yaml.Marshal(b)
	if err != nil {
		return errcode.Wrap(errcode.Error, "config.Publish", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return errcode.Wrap(errcode.Error, "config.Publish", err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		conn.Set(bus.T(configPrefix, k), m[k])
	}
	return nil
}
