// Package uartcheck validates a UART through its capability-bounded handle:
// a byte-exact loopback and the transmit watermark interrupt.
package uartcheck

import (
	"context"

	"uartcheck-go/cheri"
	"uartcheck-go/drivers/opentitanuart"
	"uartcheck-go/platform/sonata"
	"uartcheck-go/services/console"
	"uartcheck-go/services/harness"
	"uartcheck-go/types"
)

const (
	LoopbackTestName       = "uart_loopback_test"
	InterruptStateTestName = "uart_interrupt_state_test"
)

// LoopbackTestString is sent and read back byte for byte, terminator
// included.
const LoopbackTestString = "test string\x00"

const (
	// WatermarkLevel is the TX watermark programmed by InterruptStateTest.
	WatermarkLevel = opentitanuart.TransmitWatermarkLevel4
	// ExpectedWatermarkWrites is how many bytes it takes to clear the
	// watermark at WatermarkLevel: the threshold, plus the byte the
	// transmitter pulls out of the FIFO straight away.
	ExpectedWatermarkWrites = 5
)

// LoopbackTest puts u in system loopback with parity and checks that every
// byte of LoopbackTestString comes back in order.
func LoopbackTest(u *opentitanuart.UART) bool {
	u.Init()
	u.FifosClear()
	u.Parity()
	u.Loopback()

	for i := 0; i < len(LoopbackTestString); i++ {
		u.BlockingWrite(LoopbackTestString[i])
	}
	return matchesInOrder(LoopbackTestString, u.BlockingRead)
}

// matchesInOrder reads len(want) bytes from next and stops at the first one
// that differs from its position in want.
func matchesInOrder(want string, next func() byte) bool {
	for i := 0; i < len(want); i++ {
		if next() != want[i] {
			return false
		}
	}
	return true
}

// InterruptStateTest counts the writes needed to clear the TX watermark
// interrupt at WatermarkLevel.
func InterruptStateTest(u *opentitanuart.UART) bool {
	return WatermarkWrites(u, WatermarkLevel) == ExpectedWatermarkWrites
}

// WatermarkWrites resets u, sets the TX watermark to level and writes 'x'
// until INTR_STATE stops reporting the watermark. It returns the number of
// writes. INTR_STATE is read again before every write.
func WatermarkWrites(u *opentitanuart.UART, level opentitanuart.TransmitWatermark) int {
	u.Init()
	u.FifosClear()
	u.Parity()
	u.TransmitWatermark(level)

	count := 0
	for u.InterruptState()&opentitanuart.InterruptTransmitWatermark != 0 {
		u.BlockingWrite('x')
		count++
	}
	return count
}

// Checks lists the UART checks in the order they run.
func Checks() []harness.Check[*opentitanuart.UART] {
	return []harness.Check[*opentitanuart.UART]{
		{Name: LoopbackTestName, Fn: LoopbackTest},
		{Name: InterruptStateTestName, Fn: InterruptStateTest},
	}
}

// Run derives the handle for UART index from root and runs Checks against
// it, reporting through c. An unknown index is returned as an error before
// anything is printed.
func Run(ctx context.Context, root cheri.Root, index int, c console.Console, opts ...harness.Option) ([]types.CheckResult, error) {
	u, err := sonata.LookupUART(root, index)
	if err != nil {
		return nil, err
	}
	r := harness.New(c, append([]harness.Option{harness.WithUART(index)}, opts...)...)
	return harness.Run(ctx, r, u, Checks())
}
