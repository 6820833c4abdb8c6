package opentitanuart

import "tinygo.org/x/drivers"

// Stream adapts a UART handle to the byte-stream interface TinyGo drivers
// consume (drivers.UART). Writes block per byte; Read blocks for the first
// byte and then returns whatever else is already buffered.
type Stream struct {
	u *UART
}

var _ drivers.UART = (*Stream)(nil)

func (u *UART) Stream() *Stream { return &Stream{u: u} }

func (s *Stream) Write(p []byte) (int, error) {
	for _, b := range p {
		s.u.BlockingWrite(b)
	}
	return len(p), nil
}

func (s *Stream) WriteByte(b byte) error {
	s.u.BlockingWrite(b)
	return nil
}

func (s *Stream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = s.u.BlockingRead()
	n := 1
	for n < len(p) && s.u.CanRead() {
		p[n] = byte(s.u.regs.Load32(RegRData))
		n++
	}
	return n, nil
}

// Buffered is the number of received bytes ready to read.
func (s *Stream) Buffered() int { return s.u.ReceiveLevel() }
