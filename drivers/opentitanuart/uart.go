package opentitanuart

import (
	"uartcheck-go/cheri"
	"uartcheck-go/errcode"
	"uartcheck-go/x/mathx"
)

// DefaultBaud is the rate Init programs.
const DefaultBaud = 115200

// UART is a handle on one UART register block. It holds the only reference
// to the block (a capability bounded to exactly BlockSize bytes, load and
// store only) and exposes register operations, never the address.
//
// Every read goes to the device: nothing is cached between calls. A handle is
// owned by one caller at a time.
type UART struct {
	regs    cheri.Capability
	clockHz uint32
}

// New wraps a capability that covers exactly one register block.
func New(c cheri.Capability, clockHz uint32) (*UART, error) {
	switch {
	case !c.Tagged():
		return nil, &errcode.E{C: errcode.TagViolation, Op: "opentitanuart.new"}
	case c.Length() != BlockSize:
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "opentitanuart.new", Msg: "capability must span exactly one register block"}
	case c.Perms()&cheri.PermLoad == 0:
		return nil, &errcode.E{C: errcode.PermitLoadViolation, Op: "opentitanuart.new"}
	case c.Perms()&cheri.PermStore == 0:
		return nil, &errcode.E{C: errcode.PermitStoreViolation, Op: "opentitanuart.new"}
	case clockHz == 0:
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "opentitanuart.new", Msg: "zero clock"}
	}
	return &UART{regs: c, clockHz: clockHz}, nil
}

// ---- configuration ----

// Init enables the transmitter and receiver at DefaultBaud and clears every
// other CTRL field (loopback, parity).
func (u *UART) Init() { u.InitBaud(DefaultBaud) }

// InitBaud is Init with an explicit rate.
func (u *UART) InitBaud(baud uint32) {
	nco := mathx.Clamp((uint64(baud)<<20)/uint64(u.clockHz), 1, CtrlNCOMask)
	u.regs.Store32(RegCtrl, uint32(nco)<<CtrlNCOShift|CtrlTransmitEnable|CtrlReceiveEnable)
}

// FifosClear discards the contents of both FIFOs, keeping the watermark
// levels.
func (u *UART) FifosClear() {
	u.regs.Store32(RegFifoCtrl, u.regs.Load32(RegFifoCtrl)|FifoCtrlReceiveReset|FifoCtrlTransmitReset)
}

// Parity enables even parity.
func (u *UART) Parity() { u.SetParity(true, false) }

func (u *UART) SetParity(enable, odd bool) {
	ctrl := u.regs.Load32(RegCtrl) &^ (CtrlParityEnable | CtrlParityOdd)
	if enable {
		ctrl |= CtrlParityEnable
		if odd {
			ctrl |= CtrlParityOdd
		}
	}
	u.regs.Store32(RegCtrl, ctrl)
}

// Loopback routes transmitted frames straight back to the receiver.
func (u *UART) Loopback() { u.SetLoopback(true, false) }

// SetLoopback selects system loopback (TX into RX) and line loopback (RX pin
// echoed on TX pin) independently.
func (u *UART) SetLoopback(system, line bool) {
	ctrl := u.regs.Load32(RegCtrl) &^ (CtrlSystemLoopback | CtrlLineLoopback)
	if system {
		ctrl |= CtrlSystemLoopback
	}
	if line {
		ctrl |= CtrlLineLoopback
	}
	u.regs.Store32(RegCtrl, ctrl)
}

// TransmitWatermark sets the TX FIFO level below which the transmit watermark
// interrupt is asserted.
func (u *UART) TransmitWatermark(level TransmitWatermark) {
	const field = FifoCtrlTransmitLevelMask << FifoCtrlTransmitLevelShift
	v := u.regs.Load32(RegFifoCtrl) &^ field
	u.regs.Store32(RegFifoCtrl, v|(uint32(level)<<FifoCtrlTransmitLevelShift)&field)
}

// ReceiveWatermark sets the RX FIFO level at which the receive watermark
// interrupt is asserted.
func (u *UART) ReceiveWatermark(level ReceiveWatermark) {
	const field = FifoCtrlReceiveLevelMask << FifoCtrlReceiveLevelShift
	v := u.regs.Load32(RegFifoCtrl) &^ field
	u.regs.Store32(RegFifoCtrl, v|(uint32(level)<<FifoCtrlReceiveLevelShift)&field)
}

// ---- interrupts ----

// InterruptState reads INTR_STATE. Status-type bits (the watermarks, TX
// empty) follow the FIFOs, so callers polling a condition must call this on
// every iteration.
func (u *UART) InterruptState() Interrupt { return Interrupt(u.regs.Load32(RegIntrState)) }

// ClearInterrupts acknowledges latched event interrupts (write 1 to clear).
func (u *UART) ClearInterrupts(i Interrupt) { u.regs.Store32(RegIntrState, uint32(i&InterruptAll)) }

func (u *UART) EnableInterrupts(i Interrupt) {
	u.regs.Store32(RegIntrEnable, u.regs.Load32(RegIntrEnable)|uint32(i&InterruptAll))
}

func (u *UART) DisableInterrupts(i Interrupt) {
	u.regs.Store32(RegIntrEnable, u.regs.Load32(RegIntrEnable)&^uint32(i))
}

// ---- data ----

// Status returns the raw STATUS register.
func (u *UART) Status() uint32 { return u.regs.Load32(RegStatus) }

// Control returns the raw CTRL register.
func (u *UART) Control() uint32 { return u.regs.Load32(RegCtrl) }

func (u *UART) CanWrite() bool { return u.regs.Load32(RegStatus)&StatusTransmitFull == 0 }
func (u *UART) CanRead() bool  { return u.regs.Load32(RegStatus)&StatusReceiveEmpty == 0 }

// TransmitLevel is the number of bytes waiting in the TX FIFO.
func (u *UART) TransmitLevel() int {
	return int(u.regs.Load32(RegFifoStatus)>>FifoStatusTransmitLevelShift) & FifoStatusLevelMask
}

// ReceiveLevel is the number of bytes waiting in the RX FIFO.
func (u *UART) ReceiveLevel() int {
	return int(u.regs.Load32(RegFifoStatus)>>FifoStatusReceiveLevelShift) & FifoStatusLevelMask
}

// BlockingWrite spins until the TX FIFO has room, then queues b. There is no
// timeout: a transmitter that never drains blocks forever.
func (u *UART) BlockingWrite(b byte) {
	for !u.CanWrite() {
	}
	u.regs.Store32(RegWData, uint32(b))
}

// BlockingRead spins until a byte is available and returns it. There is no
// timeout.
func (u *UART) BlockingRead() byte {
	for !u.CanRead() {
	}
	return byte(u.regs.Load32(RegRData))
}
