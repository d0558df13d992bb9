//go:build linux

package main

import (
	"boardcore/boards/linuxhost"
	"boardcore/config"
	"boardcore/drivers/cslinux"
	"boardcore/kernel"
	"boardcore/x/logx"
)

func hostBoard(cfg config.Boot, k *kernel.Kernel, log *logx.Logger) ([]kernel.Initcall, string, bool) {
	if cfg.Board != linuxhost.Name {
		return nil, "", false
	}
	return []kernel.Initcall{
		kernel.Board(linuxhost.New(log)),
		kernel.Driver(cslinux.New(k.Clocks, log)),
	}, linuxhost.DeviceTree, true
}
