//go:build !linux

package main

import (
	"boardcore/config"
	"boardcore/kernel"
	"boardcore/x/logx"
)

func hostBoard(config.Boot, *kernel.Kernel, *logx.Logger) ([]kernel.Initcall, string, bool) {
	return nil, "", false
}
