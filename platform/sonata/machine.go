package sonata

import (
	"fmt"
	"io"

	"uartcheck-go/cheri"
	"uartcheck-go/drivers/opentitanuart"
	"uartcheck-go/errcode"
	"uartcheck-go/mmio"
	simuart "uartcheck-go/sim/opentitanuart"
)

// Config selects host-side attachments.
type Config struct {
	// ConsoleLine receives what UART0 transmits.
	ConsoleLine io.Writer
}

// Machine is a booted board model.
type Machine struct {
	space *mmio.Space
	uarts [UARTInstances]*simuart.UART
	root  cheri.Root
}

// Boot maps every peripheral and creates the root authority.
func Boot(cfg Config) (*Machine, error) {
	m := &Machine{}
	maps := make([]mmio.Mapping, 0, UARTInstances)
	for i := range m.uarts {
		name := fmt.Sprintf("uart%d", i)
		sc := simuart.Config{Name: name}
		if i == UARTConsole {
			sc.Line = cfg.ConsoleLine
		}
		m.uarts[i] = simuart.New(sc)
		base, _ := UARTRegion(i)
		maps = append(maps, mmio.Mapping{Name: name, Base: base, Size: UARTStride, Dev: m.uarts[i]})
	}
	space, err := mmio.NewSpace(maps...)
	if err != nil {
		return nil, err
	}
	m.space = space
	m.root = cheri.NewRoot(space)
	return m, nil
}

// Root is the authority over the whole address space.
func (m *Machine) Root() cheri.Root { return m.root }

// Space is the decoded physical address space.
func (m *Machine) Space() *mmio.Space { return m.space }

// UARTModel is the host-side view of UART index, or nil.
func (m *Machine) UARTModel(index int) *simuart.UART {
	if index < 0 || index >= UARTInstances {
		return nil
	}
	return m.uarts[index]
}

// LookupUART derives a handle on UART index: bounded to its register block,
// load and store only.
func LookupUART(root cheri.Root, index int) (*opentitanuart.UART, error) {
	base, ok := UARTRegion(index)
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownPeripheral, Op: "sonata.uart", Msg: fmt.Sprintf("no uart %d", index)}
	}
	c, err := root.Derive(base, UARTBlockSize, cheri.PermLoad|cheri.PermStore)
	if err != nil {
		return nil, err
	}
	return opentitanuart.New(c, ClockHz)
}

// UARTPtr is LookupUART for indices known at build time. An unknown index is
// a programming error and panics.
func UARTPtr(root cheri.Root, index int) *opentitanuart.UART {
	u, err := LookupUART(root, index)
	if err != nil {
		panic(err)
	}
	return u
}
