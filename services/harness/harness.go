// Package harness runs boolean checks against a device handle and reports
// each one through a console.
package harness

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"uartcheck-go/cheri"
	"uartcheck-go/errcode"
	"uartcheck-go/services/console"
	"uartcheck-go/types"
)

// Check is a named test against a handle of type H.
type Check[H any] struct {
	Name string
	Fn   func(H) bool
}

// Runner holds the reporting side of a run.
type Runner struct {
	console console.Console
	run     string
	uart    int
	timeout time.Duration
	log     *slog.Logger
}

type Option func(*Runner)

// WithTimeout bounds each check. A check that overruns is reported as a
// timeout and the run stops; the check's goroutine is left behind still
// holding the handle.
func WithTimeout(d time.Duration) Option { return func(r *Runner) { r.timeout = d } }

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

func WithRunID(id string) Option { return func(r *Runner) { r.run = id } }

// WithUART tags results with the peripheral index under test.
func WithUART(index int) Option { return func(r *Runner) { r.uart = index } }

func New(c console.Console, opts ...Option) *Runner {
	r := &Runner{
		console: c,
		run:     uuid.NewString(),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Runner) RunID() string { return r.run }
func (r *Runner) UART() int     { return r.uart }

type outcome struct {
	pass  bool
	fault *cheri.Fault
}

func invoke[H any](h H, c Check[H]) (o outcome) {
	o.fault = cheri.Catch(func() { o.pass = c.Fn(h) })
	return o
}

// Run executes checks in order against h. Each is announced as
// "running <name>" and its verdict reported when it returns. The returned
// error is non-nil only when the run was cut short, by ctx or by a timeout;
// the results gathered so far are returned with it.
func Run[H any](ctx context.Context, r *Runner, h H, checks []Check[H]) ([]types.CheckResult, error) {
	results := make([]types.CheckResult, 0, len(checks))
	for _, c := range checks {
		if err := ctx.Err(); err != nil {
			return results, &errcode.E{C: errcode.Aborted, Op: "harness.run", Msg: c.Name, Err: err}
		}

		r.console.Line("running " + c.Name)
		start := time.Now()

		o, err := execute(ctx, r.timeout, h, c)
		res := types.CheckResult{
			Run:        r.run,
			UART:       r.uart,
			Check:      c.Name,
			DurationMs: time.Since(start).Milliseconds(),
		}
		switch {
		case err != nil:
			res.Code = string(errcode.Of(err))
		case o.fault != nil:
			res.Code = string(o.fault.Code())
		case o.pass:
			res.Pass = true
			res.Code = string(errcode.OK)
		default:
			res.Code = string(errcode.CheckFailed)
		}

		if o.fault != nil {
			r.log.Warn("check trapped", "check", c.Name, "fault", o.fault.Error())
		}
		r.log.Debug("check finished", "check", c.Name, "pass", res.Pass, "code", res.Code, "ms", res.DurationMs)

		console.Report(r.console, res)
		results = append(results, res)

		if err != nil {
			return results, &errcode.E{C: errcode.Aborted, Op: "harness.run", Msg: c.Name, Err: err}
		}
	}
	return results, nil
}

// execute runs c inline, or on its own goroutine when a timeout is set.
// Panics other than capability faults are re-raised on the caller.
func execute[H any](ctx context.Context, timeout time.Duration, h H, c Check[H]) (outcome, error) {
	if timeout <= 0 {
		return invoke(h, c), nil
	}

	type ret struct {
		o outcome
		p any
	}
	done := make(chan ret, 1)
	go func() {
		var x ret
		defer func() {
			x.p = recover()
			done <- x
		}()
		x.o = invoke(h, c)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case x := <-done:
		if x.p != nil {
			panic(x.p)
		}
		return x.o, nil
	case <-t.C:
		return outcome{}, errcode.Timeout
	case <-ctx.Done():
		return outcome{}, &errcode.E{C: errcode.Aborted, Op: "harness.check", Msg: c.Name, Err: ctx.Err()}
	}
}
