// Package opentitanuart drives an OpenTitan-compatible UART register block
// reached through a capability. It also carries the register map shared with
// the peripheral model.
package opentitanuart

// Register offsets within the block.
const (
	RegIntrState   = 0x00 // R/W1C
	RegIntrEnable  = 0x04 // R/W
	RegIntrTest    = 0x08 // W
	RegAlertTest   = 0x0c // W
	RegCtrl        = 0x10 // R/W
	RegStatus      = 0x14 // R
	RegRData       = 0x18 // R
	RegWData       = 0x1c // W
	RegFifoCtrl    = 0x20 // R/W, reset bits self-clear
	RegFifoStatus  = 0x24 // R
	RegOvrd        = 0x28 // R/W
	RegVal         = 0x2c // R
	RegTimeoutCtrl = 0x30 // R/W

	// BlockSize spans every register; a handle is bounded to exactly this.
	BlockSize = 0x34

	// FifoDepth is the depth of both the transmit and receive FIFOs.
	FifoDepth = 32
)

// CTRL fields.
const (
	CtrlTransmitEnable = 1 << 0
	CtrlReceiveEnable  = 1 << 1
	CtrlNoiseFilter    = 1 << 2
	CtrlSystemLoopback = 1 << 4
	CtrlLineLoopback   = 1 << 5
	CtrlParityEnable   = 1 << 6
	CtrlParityOdd      = 1 << 7

	CtrlBreakLevelShift = 8
	CtrlBreakLevelMask  = 0x3
	CtrlNCOShift        = 16
	CtrlNCOMask         = 0xffff
)

// STATUS bits.
const (
	StatusTransmitFull  = 1 << 0
	StatusReceiveFull   = 1 << 1
	StatusTransmitEmpty = 1 << 2
	StatusTransmitIdle  = 1 << 3
	StatusReceiveIdle   = 1 << 4
	StatusReceiveEmpty  = 1 << 5
)

// FIFO_CTRL and FIFO_STATUS fields.
const (
	FifoCtrlReceiveReset  = 1 << 0
	FifoCtrlTransmitReset = 1 << 1

	FifoCtrlReceiveLevelShift  = 2
	FifoCtrlReceiveLevelMask   = 0x7
	FifoCtrlTransmitLevelShift = 5
	FifoCtrlTransmitLevelMask  = 0x3

	FifoStatusTransmitLevelShift = 0
	FifoStatusReceiveLevelShift  = 16
	FifoStatusLevelMask          = 0xff
)

// Interrupt is a snapshot of INTR_STATE.
type Interrupt uint32

const (
	InterruptTransmitWatermark Interrupt = 1 << iota
	InterruptReceiveWatermark
	InterruptTransmitEmpty
	InterruptReceiveOverflow
	InterruptReceiveFrameErr
	InterruptReceiveBreakErr
	InterruptReceiveTimeout
	InterruptReceiveParityErr

	InterruptAll Interrupt = 0xff
)

var interruptNames = [...]string{
	"tx_watermark", "rx_watermark", "tx_empty", "rx_overflow",
	"rx_frame_err", "rx_break_err", "rx_timeout", "rx_parity_err",
}

func (i Interrupt) String() string {
	if i&InterruptAll == 0 {
		return "none"
	}
	s := ""
	for bit, name := range interruptNames {
		if i&(1<<bit) != 0 {
			if s != "" {
				s += "|"
			}
			s += name
		}
	}
	return s
}

// TransmitWatermark selects the TX FIFO level below which the transmit
// watermark interrupt is asserted.
type TransmitWatermark uint8

const (
	TransmitWatermarkLevel1 TransmitWatermark = iota
	TransmitWatermarkLevel4
	TransmitWatermarkLevel8
	TransmitWatermarkLevel16
)

// Threshold is the FIFO level the watermark compares against.
func (l TransmitWatermark) Threshold() int {
	switch l & FifoCtrlTransmitLevelMask {
	case TransmitWatermarkLevel4:
		return 4
	case TransmitWatermarkLevel8:
		return 8
	case TransmitWatermarkLevel16:
		return 16
	default:
		return 1
	}
}

func (l TransmitWatermark) String() string {
	switch l {
	case TransmitWatermarkLevel1:
		return "Level1"
	case TransmitWatermarkLevel4:
		return "Level4"
	case TransmitWatermarkLevel8:
		return "Level8"
	case TransmitWatermarkLevel16:
		return "Level16"
	default:
		return "invalid"
	}
}

// ReceiveWatermark selects the RX FIFO level at or above which the receive
// watermark interrupt is asserted.
type ReceiveWatermark uint8

const (
	ReceiveWatermarkLevel1 ReceiveWatermark = iota
	ReceiveWatermarkLevel4
	ReceiveWatermarkLevel8
	ReceiveWatermarkLevel16
	ReceiveWatermarkLevel30
)

// Threshold is the FIFO level the watermark compares against.
func (l ReceiveWatermark) Threshold() int {
	switch l {
	case ReceiveWatermarkLevel4:
		return 4
	case ReceiveWatermarkLevel8:
		return 8
	case ReceiveWatermarkLevel16:
		return 16
	case ReceiveWatermarkLevel30:
		return 30
	default:
		return 1
	}
}
