// Package sonata describes the Sonata board's peripheral map and boots a
// host-side model of it.
package sonata

import "uartcheck-go/drivers/opentitanuart"

// System clock driving the peripherals.
const ClockHz = 50_000_000

// UART block instances. Instance i sits at UARTBase + i*UARTStride; its
// register block is UARTBlockSize bytes, the rest of the stride is reserved.
const (
	UARTBase      = 0x8010_0000
	UARTStride    = 0x1000
	UARTInstances = 3
	UARTBlockSize = opentitanuart.BlockSize
)

// Instance roles on the board.
const (
	UARTConsole = 0 // wired to the host console
	UARTTest    = 1 // free for loopback testing
)

// UARTRegion returns the base address of UART index.
func UARTRegion(index int) (base uint32, ok bool) {
	if index < 0 || index >= UARTInstances {
		return 0, false
	}
	return UARTBase + uint32(index)*UARTStride, true
}
