package config

// Built-in per-board configuration, keyed by board name.

const cfgX6818 = `
board: x6818
clock:
  max_seconds: 10
  frequency: 24000000
capacity:
  drivers: 32
  clocks: 4
  machines: 4
`

const cfgLinuxHost = `
board: linuxhost
clock:
  max_seconds: 10
`

var embedded = map[string][]byte{
	"x6818":     []byte(cfgX6818),
	"linuxhost": []byte(cfgLinuxHost),
}
