//go:build rp2040 || rp2350

package logx

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"boardcore/x/fmtx"
)

// ConsoleBaud is the early console rate on RP2 boards.
const ConsoleBaud = 115200

// UseConsoleUART routes fmtx.DefaultOutput to UART0 on the board default pins.
// Call once from board bring-up before the first log line.
func UseConsoleUART() error {
	hw := uartx.UART0
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: ConsoleBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	}); err != nil {
		return err
	}
	fmtx.DefaultOutput = hw
	return nil
}
