// Package opentitanuart models the OpenTitan UART register block closely
// enough to exercise a driver on the host: FIFOs, a transmit shift register
// clocked by the NCO, parity, system loopback and the interrupt state.
//
// The model has no clock of its own. Every register access advances it by one
// cycle, and Tick advances it explicitly.
package opentitanuart

import (
	"io"
	"math/bits"
	"sync"

	reg "uartcheck-go/drivers/opentitanuart"
	"uartcheck-go/x/mathx"
	"uartcheck-go/x/ring"
)

// Config describes one UART instance.
type Config struct {
	Name string
	// Line receives frames transmitted while system loopback is off.
	Line io.Writer
}

// LineFault rewrites the data of the index'th frame (0-based since reset)
// on its way from the transmitter to the receiver.
type LineFault func(index int, b byte) byte

// UART is a register-level model. It implements mmio.Device.
type UART struct {
	mu   sync.Mutex
	name string
	line io.Writer

	ctrl        uint32
	intrEnable  uint32
	events      reg.Interrupt // latched event-type interrupts
	fifoCtrl    uint32
	ovrd        uint32
	timeoutCtrl uint32

	tx *ring.Ring
	rx *ring.Ring

	shifting    bool
	shiftByte   byte
	shiftPar    bool // parity bit computed at the transmitter
	shiftHasPar bool
	shiftLeft   uint64

	frames  int
	fault   LineFault
	cycles  uint64
	lineErr error
}

func New(cfg Config) *UART {
	return &UART{
		name: cfg.Name,
		line: cfg.Line,
		tx:   ring.New(reg.FifoDepth),
		rx:   ring.New(reg.FifoDepth),
	}
}

func (u *UART) Name() string { return u.name }

// ---- mmio.Device ----

func (u *UART) Read32(off uint32) uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.step(1)

	switch off {
	case reg.RegIntrState:
		return uint32(u.intrState())
	case reg.RegIntrEnable:
		return u.intrEnable
	case reg.RegCtrl:
		return u.ctrl
	case reg.RegStatus:
		return u.status()
	case reg.RegRData:
		b, _ := u.rx.Pop()
		return uint32(b)
	case reg.RegFifoCtrl:
		return u.fifoCtrl
	case reg.RegFifoStatus:
		return uint32(u.tx.Len())<<reg.FifoStatusTransmitLevelShift |
			uint32(u.rx.Len())<<reg.FifoStatusReceiveLevelShift
	case reg.RegOvrd:
		return u.ovrd
	case reg.RegVal:
		return 0xffff // idle line, all samples high
	case reg.RegTimeoutCtrl:
		return u.timeoutCtrl
	default:
		return 0
	}
}

func (u *UART) Write32(off uint32, v uint32) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.step(1)

	switch off {
	case reg.RegIntrState:
		u.events &^= reg.Interrupt(v)
	case reg.RegIntrEnable:
		u.intrEnable = v & uint32(reg.InterruptAll)
	case reg.RegIntrTest:
		u.events |= reg.Interrupt(v) & reg.InterruptAll
	case reg.RegCtrl:
		u.ctrl = v
	case reg.RegWData:
		u.tx.Push(byte(v)) // dropped when full
	case reg.RegFifoCtrl:
		if v&reg.FifoCtrlReceiveReset != 0 {
			u.rx.Reset()
		}
		if v&reg.FifoCtrlTransmitReset != 0 {
			u.tx.Reset()
			u.shifting = false
			u.frames = 0
		}
		u.fifoCtrl = v &^ (reg.FifoCtrlReceiveReset | reg.FifoCtrlTransmitReset)
	case reg.RegOvrd:
		u.ovrd = v & 0x3
	case reg.RegTimeoutCtrl:
		u.timeoutCtrl = v
	}
}

// ---- host side ----

// Tick advances the model by n cycles.
func (u *UART) Tick(n uint64) {
	u.mu.Lock()
	u.step(n)
	u.mu.Unlock()
}

// Receive feeds bytes arriving on the external RX line. It returns how many
// were accepted; the rest overflow.
func (u *UART) Receive(p []byte) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, b := range p {
		if u.ctrl&reg.CtrlLineLoopback != 0 {
			u.emit(b)
		}
		if u.accept(b, false, false) {
			n++
		}
	}
	return n
}

// SetLineFault installs fn between transmitter and receiver. nil removes it.
func (u *UART) SetLineFault(fn LineFault) {
	u.mu.Lock()
	u.fault = fn
	u.mu.Unlock()
}

// Cycles is the number of cycles elapsed since construction.
func (u *UART) Cycles() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cycles
}

// Levels reports the FIFO fill levels without advancing the model.
func (u *UART) Levels() (tx, rx int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tx.Len(), u.rx.Len()
}

// Pending is INTR_STATE masked by INTR_ENABLE, i.e. the interrupt line.
func (u *UART) Pending() reg.Interrupt {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.intrState() & reg.Interrupt(u.intrEnable)
}

// FrameCycles is the duration of one frame under the current CTRL, or 0 if
// the NCO is not programmed.
func (u *UART) FrameCycles() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.frameCycles()
}

// LineErr is the first error returned by the external line writer.
func (u *UART) LineErr() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lineErr
}

// ---- internals (u.mu held) ----

func (u *UART) nco() uint32 { return (u.ctrl >> reg.CtrlNCOShift) & reg.CtrlNCOMask }

func (u *UART) frameCycles() uint64 {
	nco := u.nco()
	if nco == 0 {
		return 0
	}
	frameBits := uint64(10) // start, 8 data, stop
	if u.ctrl&reg.CtrlParityEnable != 0 {
		frameBits++
	}
	return frameBits * uint64(mathx.CeilDiv[uint32](1<<20, nco))
}

func (u *UART) step(n uint64) {
	u.cycles += n
	for n > 0 {
		if !u.shifting {
			frame := u.frameCycles()
			if u.ctrl&reg.CtrlTransmitEnable == 0 || frame == 0 {
				return
			}
			b, ok := u.tx.Pop()
			if !ok {
				return
			}
			u.shifting = true
			u.shiftByte = b
			u.shiftHasPar = u.ctrl&reg.CtrlParityEnable != 0
			u.shiftPar = parityBit(b, u.ctrl&reg.CtrlParityOdd != 0)
			u.shiftLeft = frame
			n-- // loading the shift register takes the cycle
			continue
		}
		if n < u.shiftLeft {
			u.shiftLeft -= n
			return
		}
		n -= u.shiftLeft
		u.shiftLeft = 0
		u.shifting = false
		u.deliver()
	}
}

func (u *UART) deliver() {
	b := u.shiftByte
	if u.fault != nil {
		b = u.fault(u.frames, b)
	}
	u.frames++

	if u.ctrl&reg.CtrlSystemLoopback != 0 {
		u.accept(b, u.shiftHasPar, u.shiftPar)
		return
	}
	u.emit(b)
}

func (u *UART) emit(b byte) {
	if u.line == nil || u.lineErr != nil {
		return
	}
	if _, err := u.line.Write([]byte{b}); err != nil {
		u.lineErr = err
	}
}

// accept places a received frame in the RX FIFO, checking parity when the
// receiver expects it.
func (u *UART) accept(b byte, hasPar, par bool) bool {
	if u.ctrl&reg.CtrlReceiveEnable == 0 {
		return false
	}
	if u.ctrl&reg.CtrlParityEnable != 0 && hasPar {
		if parityBit(b, u.ctrl&reg.CtrlParityOdd != 0) != par {
			u.events |= reg.InterruptReceiveParityErr
		}
	}
	if !u.rx.Push(b) {
		u.events |= reg.InterruptReceiveOverflow
		return false
	}
	return true
}

func (u *UART) intrState() reg.Interrupt {
	s := u.events
	txThr := reg.TransmitWatermark((u.fifoCtrl >> reg.FifoCtrlTransmitLevelShift) & reg.FifoCtrlTransmitLevelMask).Threshold()
	if u.tx.Len() < txThr {
		s |= reg.InterruptTransmitWatermark
	}
	rxThr := reg.ReceiveWatermark((u.fifoCtrl >> reg.FifoCtrlReceiveLevelShift) & reg.FifoCtrlReceiveLevelMask).Threshold()
	if u.rx.Len() >= rxThr {
		s |= reg.InterruptReceiveWatermark
	}
	if u.tx.Empty() && !u.shifting {
		s |= reg.InterruptTransmitEmpty
	}
	return s
}

func (u *UART) status() uint32 {
	var s uint32
	if u.tx.Full() {
		s |= reg.StatusTransmitFull
	}
	if u.rx.Full() {
		s |= reg.StatusReceiveFull
	}
	if u.tx.Empty() {
		s |= reg.StatusTransmitEmpty
		if !u.shifting {
			s |= reg.StatusTransmitIdle
		}
	}
	s |= reg.StatusReceiveIdle
	if u.rx.Empty() {
		s |= reg.StatusReceiveEmpty
	}
	return s
}

// parityBit is the bit that makes the frame's count of ones even (or odd).
func parityBit(b byte, odd bool) bool {
	p := bits.OnesCount8(b)&1 == 1
	if odd {
		return !p
	}
	return p
}
