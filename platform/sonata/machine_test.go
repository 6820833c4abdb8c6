package sonata

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartcheck-go/cheri"
	"uartcheck-go/drivers/opentitanuart"
	"uartcheck-go/errcode"
)

func boot(t *testing.T, cfg Config) *Machine {
	t.Helper()
	m, err := Boot(cfg)
	require.NoError(t, err)
	return m
}

func TestMemoryMap(t *testing.T) {
	m := boot(t, Config{})
	maps := m.Space().Mappings()
	require.Len(t, maps, UARTInstances)
	for i, mp := range maps {
		base, ok := UARTRegion(i)
		require.True(t, ok)
		assert.Equal(t, base, mp.Base)
		assert.Equal(t, uint32(UARTStride), mp.Size)
		assert.Same(t, m.UARTModel(i), mp.Dev)
	}
	_, ok := UARTRegion(UARTInstances)
	assert.False(t, ok)
	assert.Nil(t, m.UARTModel(-1))
}

func TestLookupUART_UnknownIndex(t *testing.T) {
	m := boot(t, Config{})
	for _, idx := range []int{-1, UARTInstances, 42} {
		u, err := LookupUART(m.Root(), idx)
		assert.Nil(t, u)
		assert.Equal(t, errcode.UnknownPeripheral, errcode.Of(err))
		assert.Panics(t, func() { UARTPtr(m.Root(), idx) })
	}
}

func TestLookupUART_ZeroRoot(t *testing.T) {
	_, err := LookupUART(cheri.Root{}, UARTTest)
	assert.Equal(t, errcode.TagViolation, errcode.Of(err))
}

func TestHandle_OnlyTouchesItsOwnBlock(t *testing.T) {
	m := boot(t, Config{})
	u := UARTPtr(m.Root(), UARTTest)

	u.Init()
	u.FifosClear()
	u.Parity()
	u.Loopback()
	u.TransmitWatermark(opentitanuart.TransmitWatermarkLevel4)
	u.BlockingWrite('x')
	_ = u.BlockingRead()
	_ = u.InterruptState()

	assert.NotZero(t, m.UARTModel(UARTTest).Cycles())
	assert.Zero(t, m.UARTModel(UARTConsole).Cycles(), "uart0 must not be reached")
	assert.Zero(t, m.UARTModel(2).Cycles(), "uart2 must not be reached")
}

func TestHandleCapability_TrapsOnNeighbour(t *testing.T) {
	m := boot(t, Config{})
	base, _ := UARTRegion(UARTTest)
	c, err := m.Root().Derive(base, UARTBlockSize, cheri.PermLoad|cheri.PermStore)
	require.NoError(t, err)

	// The bus window is a full stride, so only the capability stops these.
	for _, off := range []uint32{UARTBlockSize, 0x40, UARTStride + opentitanuart.RegCtrl} {
		f := cheri.Catch(func() { c.Store32(off, 0xffff_ffff) })
		require.NotNil(t, f, "offset 0x%x", off)
		assert.Equal(t, errcode.BoundsViolation, f.Code())
	}
	assert.Zero(t, m.UARTModel(2).Cycles())
	assert.Zero(t, m.UARTModel(UARTTest).Cycles())
}

func TestConsoleLine_ReceivesUART0Output(t *testing.T) {
	var line bytes.Buffer
	m := boot(t, Config{ConsoleLine: &line})
	s := UARTPtr(m.Root(), UARTConsole)
	s.InitBaud(1_000_000)
	_, err := s.Stream().Write([]byte("boot\n"))
	require.NoError(t, err)
	for s.InterruptState()&opentitanuart.InterruptTransmitEmpty == 0 {
	}
	assert.Equal(t, "boot\n", line.String())
}
