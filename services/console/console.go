// Package console carries check progress and verdicts to an observer: either
// straight onto a writer, or over the bus to the console service.
package console

import (
	"fmt"
	"io"
	"sync"

	"uartcheck-go/bus"
	"uartcheck-go/errcode"
	"uartcheck-go/types"
	"uartcheck-go/x/strx"
)

// Topic tokens.
const (
	TokRoot    = "uartcheck"
	TokConsole = "console"
	TokResult  = "result"
	TokSummary = "summary"
)

var (
	topicConsole = bus.T(TokRoot, TokConsole)
	topicSummary = bus.T(TokRoot, TokSummary)
)

// ResultTopic is where the verdict of check is retained.
func ResultTopic(check string) bus.Topic { return bus.T(TokRoot, TokResult, check) }

// Console accepts status lines and per-check verdicts.
type Console interface {
	Line(label string)
	Result(check string, pass bool)
}

// Reporter is implemented by consoles that take the full result record.
type Reporter interface {
	Report(r types.CheckResult)
}

// Report hands r to c, as a full record when c supports it.
func Report(c Console, r types.CheckResult) {
	if rep, ok := c.(Reporter); ok {
		rep.Report(r)
		return
	}
	c.Result(r.Check, r.Pass)
}

func verdict(pass bool) string {
	if pass {
		return "PASS!"
	}
	return "FAIL!"
}

// ---- Writer ----

// Writer renders onto an io.Writer, one line per call.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (c *Writer) printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, a...)
}

func (c *Writer) Line(label string) { c.printf("%s\n", strx.Coalesce(label, "-")) }

func (c *Writer) Result(check string, pass bool) { c.printf("%s\n", verdict(pass)) }

func (c *Writer) Report(r types.CheckResult) {
	if r.Pass || r.Code == "" || r.Code == string(errcode.CheckFailed) {
		c.Result(r.Check, r.Pass)
		return
	}
	c.printf("%s (%s)\n", verdict(r.Pass), r.Code)
}

func (c *Writer) Summary(s types.RunSummary) {
	if s.Aborted {
		c.printf("uart%d: %d passed, %d failed, run aborted\n", s.UART, s.Passed, s.Failed)
		return
	}
	c.printf("uart%d: %d passed, %d failed\n", s.UART, s.Passed, s.Failed)
}

// ---- Publisher ----

// Publisher puts console traffic on the bus. Lines are transient; results and
// the summary are retained.
type Publisher struct {
	conn *bus.Connection
	run  string
	uart int
}

func NewPublisher(conn *bus.Connection, run string, uart int) *Publisher {
	return &Publisher{conn: conn, run: run, uart: uart}
}

func (p *Publisher) Line(label string) {
	p.conn.Publish(p.conn.NewMessage(topicConsole, types.ConsoleLine{Run: p.run, Text: label}, false))
}

func (p *Publisher) Result(check string, pass bool) {
	code := errcode.OK
	if !pass {
		code = errcode.CheckFailed
	}
	p.Report(types.CheckResult{Run: p.run, UART: p.uart, Check: check, Pass: pass, Code: string(code)})
}

func (p *Publisher) Report(r types.CheckResult) {
	if r.Run == "" {
		r.Run = p.run
	}
	p.conn.Publish(p.conn.NewMessage(ResultTopic(r.Check), r, true))
}

func (p *Publisher) Summary(s types.RunSummary) {
	p.conn.Publish(p.conn.NewMessage(topicSummary, s, true))
}
