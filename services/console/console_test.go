package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartcheck-go/bus"
	"uartcheck-go/errcode"
	"uartcheck-go/types"
)

// recorder implements only Console.
type recorder struct{ calls []string }

func (r *recorder) Line(label string) { r.calls = append(r.calls, "line:"+label) }
func (r *recorder) Result(check string, pass bool) {
	if pass {
		r.calls = append(r.calls, "pass:"+check)
	} else {
		r.calls = append(r.calls, "fail:"+check)
	}
}

func TestWriter_Rendering(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Line("running uart_loopback_test")
	w.Result("uart_loopback_test", true)
	w.Line("")
	w.Report(types.CheckResult{Check: "uart_interrupt_state_test", Pass: false, Code: string(errcode.CheckFailed)})
	w.Report(types.CheckResult{Check: "x", Pass: false, Code: "bounds_violation"})
	w.Summary(types.RunSummary{UART: 1, Passed: 1, Failed: 2})
	w.Summary(types.RunSummary{UART: 1, Failed: 1, Aborted: true})

	want := "running uart_loopback_test\n" +
		"PASS!\n" +
		"-\n" +
		"FAIL!\n" +
		"FAIL! (bounds_violation)\n" +
		"uart1: 1 passed, 2 failed\n" +
		"uart1: 0 passed, 1 failed, run aborted\n"
	assert.Equal(t, want, buf.String())
}

func TestReport_FallsBackToResult(t *testing.T) {
	r := &recorder{}
	Report(r, types.CheckResult{Check: "a", Pass: true})
	Report(r, types.CheckResult{Check: "b", Pass: false, Code: "timeout"})
	assert.Equal(t, []string{"pass:a", "fail:b"}, r.calls)
}

func TestPublisher_Topics(t *testing.T) {
	b := bus.NewBus(16, "+", "#")
	conn := b.NewConnection("test")
	lines := conn.Subscribe(bus.T(TokRoot, TokConsole))

	p := NewPublisher(conn, "run-1", 1)
	p.Line("running uart_loopback_test")
	p.Result("uart_loopback_test", true)
	p.Summary(types.RunSummary{Run: "run-1", UART: 1, Passed: 1})

	select {
	case msg := <-lines.Channel():
		assert.Equal(t, types.ConsoleLine{Run: "run-1", Text: "running uart_loopback_test"}, msg.Payload)
		assert.False(t, msg.Retained)
	case <-time.After(time.Second):
		t.Fatal("no console line")
	}

	// Results and the summary are retained for late subscribers.
	late := conn.Subscribe(bus.T(TokRoot, TokResult, "+"))
	select {
	case msg := <-late.Channel():
		res, ok := msg.Payload.(types.CheckResult)
		require.True(t, ok)
		assert.Equal(t, "run-1", res.Run)
		assert.Equal(t, 1, res.UART)
		assert.True(t, res.Pass)
		assert.Equal(t, string(errcode.OK), res.Code)
		assert.Equal(t, "uartcheck/result/uart_loopback_test", msg.Topic.String())
	case <-time.After(time.Second):
		t.Fatal("retained result not replayed")
	}

	sum := conn.Subscribe(bus.T(TokRoot, TokSummary))
	select {
	case msg := <-sum.Channel():
		assert.Equal(t, types.RunSummary{Run: "run-1", UART: 1, Passed: 1}, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("retained summary not replayed")
	}
}

func TestPublisher_FailedResultUsesCheckFailedCode(t *testing.T) {
	b := bus.NewBus(4, "+", "#")
	conn := b.NewConnection("test")
	p := NewPublisher(conn, "run-f", 2)
	p.Result("uart_interrupt_state_test", false)

	sub := conn.Subscribe(ResultTopic("uart_interrupt_state_test"))
	select {
	case msg := <-sub.Channel():
		res, ok := msg.Payload.(types.CheckResult)
		require.True(t, ok)
		assert.False(t, res.Pass)
		assert.Equal(t, string(errcode.CheckFailed), res.Code)
		assert.Equal(t, 2, res.UART)

		// Rendered as a plain failure, with no code suffix.
		var buf bytes.Buffer
		NewWriter(&buf).Report(res)
		assert.Equal(t, "FAIL!\n", buf.String())
	case <-time.After(time.Second):
		t.Fatal("retained result not replayed")
	}
}

func TestService_RendersAndDrains(t *testing.T) {
	b := bus.NewBus(32, "+", "#")
	var buf bytes.Buffer
	svc := NewService(NewWriter(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := svc.Start(ctx, b.NewConnection("console"))

	p := NewPublisher(b.NewConnection("checks"), "run-2", 1)
	p.Line("running uart_loopback_test")
	p.Report(types.CheckResult{Check: "uart_loopback_test", Pass: true, Code: string(errcode.OK)})
	p.Line("running uart_interrupt_state_test")
	p.Report(types.CheckResult{Check: "uart_interrupt_state_test", Pass: false, Code: string(errcode.CheckFailed)})
	p.Summary(types.RunSummary{UART: 1, Passed: 1, Failed: 1})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}

	want := "running uart_loopback_test\n" +
		"PASS!\n" +
		"running uart_interrupt_state_test\n" +
		"FAIL!\n" +
		"uart1: 1 passed, 1 failed\n"
	assert.Equal(t, want, buf.String())
}

func TestService_IgnoresForeignPayloads(t *testing.T) {
	b := bus.NewBus(4, "+", "#")
	var buf bytes.Buffer
	svc := NewService(NewWriter(&buf), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := svc.Start(ctx, b.NewConnection("console"))

	conn := b.NewConnection("other")
	conn.Publish(conn.NewMessage(bus.T(TokRoot, "misc"), 42, false))
	cancel()
	<-done
	assert.Empty(t, buf.String())
}
