package cheri

import (
	"fmt"

	"uartcheck-go/errcode"
)

// Fault is raised (as a panic value) when an access through a capability is
// rejected or the bus behind it errors.
type Fault struct {
	C    errcode.Code
	Op   string
	Addr uint64
	Cap  string
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("cheri: %s on %s at 0x%08x via %s", f.C, f.Op, f.Addr, f.Cap)
}
func (f *Fault) Unwrap() error      { return f.Err }
func (f *Fault) Code() errcode.Code { return f.C }

// Catch runs fn and returns the capability fault it raised, if any.
// Panics that are not faults propagate.
func Catch(fn func()) (fault *Fault) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			fault = f
		}
	}()
	fn()
	return nil
}
