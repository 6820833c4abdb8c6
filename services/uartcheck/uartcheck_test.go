package uartcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartcheck-go/drivers/opentitanuart"
	"uartcheck-go/errcode"
	"uartcheck-go/platform/sonata"
	"uartcheck-go/services/harness"
)

func boot(t *testing.T) (*sonata.Machine, *opentitanuart.UART) {
	t.Helper()
	m, err := sonata.Boot(sonata.Config{})
	require.NoError(t, err)
	return m, sonata.UARTPtr(m.Root(), sonata.UARTTest)
}

type recorder struct{ calls []string }

func (r *recorder) Line(label string) { r.calls = append(r.calls, label) }
func (r *recorder) Result(check string, pass bool) {
	if pass {
		r.calls = append(r.calls, "PASS!")
	} else {
		r.calls = append(r.calls, "FAIL!")
	}
}

func TestLoopbackTest_Passes(t *testing.T) {
	_, u := boot(t)
	assert.Len(t, LoopbackTestString, 12)
	assert.True(t, LoopbackTest(u))
	assert.Zero(t, u.ReceiveLevel(), "every byte is consumed")
}

func TestLoopbackTest_BitFlipFails(t *testing.T) {
	for _, idx := range []int{0, 5, len(LoopbackTestString) - 1} {
		m, u := boot(t)
		m.UARTModel(sonata.UARTTest).SetLineFault(func(i int, b byte) byte {
			if i == idx {
				return b ^ 0x04
			}
			return b
		})
		assert.False(t, LoopbackTest(u), "flip in byte %d", idx)
		assert.NotZero(t, u.InterruptState()&opentitanuart.InterruptReceiveParityErr)
	}
}

func TestInterruptStateTest_Passes(t *testing.T) {
	_, u := boot(t)
	assert.True(t, InterruptStateTest(u))
}

func TestWatermarkWrites_FollowsLevel(t *testing.T) {
	cases := []struct {
		level opentitanuart.TransmitWatermark
		want  int
	}{
		{opentitanuart.TransmitWatermarkLevel1, 2},
		{opentitanuart.TransmitWatermarkLevel4, 5},
		{opentitanuart.TransmitWatermarkLevel8, 9},
		{opentitanuart.TransmitWatermarkLevel16, 17},
	}
	for _, tc := range cases {
		t.Run(tc.level.String(), func(t *testing.T) {
			_, u := boot(t)
			assert.Equal(t, tc.want, WatermarkWrites(u, tc.level))
		})
	}
}

func TestWatermarkWrites_WrongLevelFailsTheOracle(t *testing.T) {
	_, u := boot(t)
	assert.NotEqual(t, ExpectedWatermarkWrites, WatermarkWrites(u, opentitanuart.TransmitWatermarkLevel8))
}

func TestChecks_AreIdempotent(t *testing.T) {
	_, u := boot(t)
	for i := 0; i < 2; i++ {
		assert.True(t, LoopbackTest(u), "loopback run %d", i)
		assert.True(t, InterruptStateTest(u), "watermark run %d", i)
	}
	// Watermark leaves bytes in flight; loopback must still start clean.
	assert.True(t, InterruptStateTest(u))
	assert.True(t, LoopbackTest(u))
}

func TestMatchesInOrder(t *testing.T) {
	feed := func(s string) func() byte {
		i := 0
		return func() byte {
			if i >= len(s) {
				return 0xff
			}
			b := s[i]
			i++
			return b
		}
	}
	assert.True(t, matchesInOrder("aab", feed("aab")))
	assert.False(t, matchesInOrder("aab", feed("aba")), "same bytes, wrong order")
	assert.False(t, matchesInOrder("abc", feed("ab")), "truncated")
	assert.True(t, matchesInOrder("", feed("")))

	reads := 0
	next := func() byte { reads++; return 'z' }
	assert.False(t, matchesInOrder("abc", next))
	assert.Equal(t, 1, reads, "stops at the first mismatch")
}

func TestRun_ReportsBothChecks(t *testing.T) {
	m, err := sonata.Boot(sonata.Config{})
	require.NoError(t, err)
	con := &recorder{}

	results, err := Run(context.Background(), m.Root(), sonata.UARTTest, con, harness.WithRunID("r1"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"running uart_loopback_test", "PASS!",
		"running uart_interrupt_state_test", "PASS!",
	}, con.calls)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Pass)
		assert.Equal(t, "r1", r.Run)
		assert.Equal(t, sonata.UARTTest, r.UART)
	}
	assert.Zero(t, m.UARTModel(sonata.UARTConsole).Cycles())
	assert.Zero(t, m.UARTModel(2).Cycles())
}

func TestRun_UnknownIndex(t *testing.T) {
	m, err := sonata.Boot(sonata.Config{})
	require.NoError(t, err)
	con := &recorder{}

	results, err := Run(context.Background(), m.Root(), sonata.UARTInstances, con)
	assert.Nil(t, results)
	assert.Equal(t, errcode.UnknownPeripheral, errcode.Of(err))
	assert.Empty(t, con.calls)
}
