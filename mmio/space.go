// Package mmio decodes 32-bit register accesses on a physical address space
// into the device windows mapped onto it.
package mmio

import (
	"fmt"
	"sort"

	"uartcheck-go/errcode"
)

// Device is a block of 32-bit registers. Offsets are relative to the start of
// the window the device is mapped at and are always word aligned.
type Device interface {
	Read32(off uint32) uint32
	Write32(off uint32, v uint32)
}

// Mapping places a device on the address space.
type Mapping struct {
	Name string
	Base uint32
	Size uint32
	Dev  Device
}

func (m Mapping) contains(addr uint32) bool {
	return addr >= m.Base && addr-m.Base < m.Size
}

// Space is an immutable set of non-overlapping device windows.
type Space struct {
	maps []Mapping // sorted by Base
}

// NewSpace validates and sorts the mappings. Windows must be non-empty, word
// aligned and must not overlap.
func NewSpace(maps ...Mapping) (*Space, error) {
	sorted := append([]Mapping(nil), maps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Base < sorted[j].Base })

	for i, m := range sorted {
		if m.Dev == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "mmio.map", Msg: m.Name + ": nil device"}
		}
		if m.Size == 0 || m.Base%4 != 0 || m.Size%4 != 0 {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "mmio.map", Msg: fmt.Sprintf("%s: bad window 0x%08x+0x%x", m.Name, m.Base, m.Size)}
		}
		if uint64(m.Base)+uint64(m.Size) > 1<<32 {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "mmio.map", Msg: m.Name + ": window wraps"}
		}
		if i > 0 {
			prev := sorted[i-1]
			if uint64(prev.Base)+uint64(prev.Size) > uint64(m.Base) {
				return nil, &errcode.E{C: errcode.InvalidParams, Op: "mmio.map", Msg: prev.Name + " overlaps " + m.Name}
			}
		}
	}
	return &Space{maps: sorted}, nil
}

// Lookup returns the mapping covering addr.
func (s *Space) Lookup(addr uint32) (Mapping, bool) {
	i := sort.Search(len(s.maps), func(i int) bool {
		return uint64(s.maps[i].Base)+uint64(s.maps[i].Size) > uint64(addr)
	})
	if i < len(s.maps) && s.maps[i].contains(addr) {
		return s.maps[i], true
	}
	return Mapping{}, false
}

// Mappings returns a copy of the windows in address order.
func (s *Space) Mappings() []Mapping { return append([]Mapping(nil), s.maps...) }

func (s *Space) decode(op string, addr uint32) (Mapping, error) {
	if addr%4 != 0 {
		return Mapping{}, &errcode.E{C: errcode.BusError, Op: op, Msg: fmt.Sprintf("misaligned 0x%08x", addr)}
	}
	m, ok := s.Lookup(addr)
	if !ok {
		return Mapping{}, &errcode.E{C: errcode.BusError, Op: op, Msg: fmt.Sprintf("unmapped 0x%08x", addr)}
	}
	return m, nil
}

// Read32 reads the register at addr.
func (s *Space) Read32(addr uint32) (uint32, error) {
	m, err := s.decode("read32", addr)
	if err != nil {
		return 0, err
	}
	return m.Dev.Read32(addr - m.Base), nil
}

// Write32 writes the register at addr.
func (s *Space) Write32(addr uint32, v uint32) error {
	m, err := s.decode("write32", addr)
	if err != nil {
		return err
	}
	m.Dev.Write32(addr-m.Base, v)
	return nil
}
