// Package cheri models capabilities: unforgeable references that bundle an
// address range with a permission set. Every load and store through a
// capability is checked against its tag, bounds and permissions before it
// reaches memory; a failed check traps with a *Fault.
package cheri

import (
	"fmt"
	"strings"

	"uartcheck-go/errcode"
)

// Perm is a capability permission bit set.
type Perm uint16

const (
	PermGlobal Perm = 1 << iota
	PermLoad
	PermStore
	PermLoadCap
	PermStoreCap
	PermExecute

	PermAll = PermGlobal | PermLoad | PermStore | PermLoadCap | PermStoreCap | PermExecute
)

var permNames = [...]struct {
	p Perm
	s string
}{
	{PermGlobal, "G"},
	{PermLoad, "R"},
	{PermStore, "W"},
	{PermLoadCap, "c"},
	{PermStoreCap, "C"},
	{PermExecute, "X"},
}

func (p Perm) String() string {
	var b strings.Builder
	for _, n := range permNames {
		if p&n.p != 0 {
			b.WriteString(n.s)
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// Memory is the address space reached through capabilities.
type Memory interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr uint32, v uint32) error
}

// Capability grants access to [base, base+length) with perms. The zero value
// is untagged and every access through it traps.
type Capability struct {
	mem    Memory
	base   uint32
	length uint64
	perms  Perm
	tag    bool
}

func (c Capability) Tagged() bool   { return c.tag }
func (c Capability) Base() uint32   { return c.base }
func (c Capability) Length() uint64 { return c.length }
func (c Capability) Perms() Perm    { return c.perms }

func (c Capability) String() string {
	s := fmt.Sprintf("0x%08x+0x%x [%s]", c.base, c.length, c.perms)
	if !c.tag {
		s += " (untagged)"
	}
	return s
}

// SetBounds narrows the capability to [base, base+length). The new range
// must lie within the current one.
func (c Capability) SetBounds(base uint32, length uint32) (Capability, error) {
	if !c.tag {
		return Capability{}, &errcode.E{C: errcode.TagViolation, Op: "cheri.setbounds"}
	}
	lo, hi := uint64(base), uint64(base)+uint64(length)
	if lo < uint64(c.base) || hi > uint64(c.base)+c.length {
		return Capability{}, &errcode.E{
			C:   errcode.MonotonicityViolation,
			Op:  "cheri.setbounds",
			Msg: fmt.Sprintf("0x%08x+0x%x outside %s", base, length, c),
		}
	}
	c.base, c.length = base, uint64(length)
	return c, nil
}

// AndPerms clears every permission not in keep. Permissions can only shrink.
func (c Capability) AndPerms(keep Perm) Capability {
	c.perms &= keep
	return c
}

func (c Capability) check(op string, off uint32, need Perm, denied errcode.Code) {
	addr := uint64(c.base) + uint64(off)
	switch {
	case !c.tag:
		panic(&Fault{C: errcode.TagViolation, Op: op, Addr: addr, Cap: c.String()})
	case c.perms&need != need:
		panic(&Fault{C: denied, Op: op, Addr: addr, Cap: c.String()})
	case off%4 != 0:
		panic(&Fault{C: errcode.AlignmentViolation, Op: op, Addr: addr, Cap: c.String()})
	case uint64(off)+4 > c.length:
		panic(&Fault{C: errcode.BoundsViolation, Op: op, Addr: addr, Cap: c.String()})
	}
}

// Load32 reads the word at base+off. Each call performs a fresh access.
func (c Capability) Load32(off uint32) uint32 {
	c.check("load32", off, PermLoad, errcode.PermitLoadViolation)
	v, err := c.mem.Read32(c.base + off)
	if err != nil {
		panic(&Fault{C: errcode.BusError, Op: "load32", Addr: uint64(c.base) + uint64(off), Cap: c.String(), Err: err})
	}
	return v
}

// Store32 writes the word at base+off.
func (c Capability) Store32(off uint32, v uint32) {
	c.check("store32", off, PermStore, errcode.PermitStoreViolation)
	if err := c.mem.Write32(c.base+off, v); err != nil {
		panic(&Fault{C: errcode.BusError, Op: "store32", Addr: uint64(c.base) + uint64(off), Cap: c.String(), Err: err})
	}
}

// Root is the ambient authority over the whole address space. It is handed
// out once by the platform at boot; the zero Root derives nothing.
type Root struct {
	c Capability
}

// NewRoot returns the authority over all of mem with every permission.
func NewRoot(mem Memory) Root {
	return Root{c: Capability{mem: mem, length: 1 << 32, perms: PermAll, tag: true}}
}

// Derive returns a capability restricted to [base, base+length) and perms.
func (r Root) Derive(base uint32, length uint32, perms Perm) (Capability, error) {
	c, err := r.c.SetBounds(base, length)
	if err != nil {
		return Capability{}, err
	}
	return c.AndPerms(perms), nil
}
