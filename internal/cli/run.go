package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"uartcheck-go/bus"
	"uartcheck-go/drivers/opentitanuart"
	"uartcheck-go/errcode"
	"uartcheck-go/internal/metrics"
	"uartcheck-go/internal/report"
	"uartcheck-go/platform/sonata"
	"uartcheck-go/services/console"
	"uartcheck-go/services/harness"
	"uartcheck-go/services/uartcheck"
)

const (
	// ConsoleBaud is the console UART rate.
	ConsoleBaud = 1_000_000

	busQueueLen = 64
)

// Settings are the knobs a run accepts, from flags or UARTCHECK_* variables.
type Settings struct {
	UART        int
	Timeout     time.Duration
	MetricsFile string
	ReportFile  string
}

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the UART checks",
		Long: `Run the loopback and TX watermark checks against one UART.

Exit status is 0 when every check passes, 1 when one fails, 2 on bad usage,
3 when the run is aborted by --timeout and 4 on an internal error.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.bindFlags(cmd); err != nil {
				return err
			}
			return c.initLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.settings()
			if err != nil {
				return err
			}
			return c.runChecks(cmd.Context(), s)
		},
	}
	cmd.Flags().Int("uart", sonata.UARTTest, "index of the UART under test")
	cmd.Flags().Duration("timeout", 10*time.Second, "bound on each check (0 waits forever)")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics for the run to this file")
	cmd.Flags().String("report", "", "write a YAML report of the run to this file")
	return cmd
}

func (c *CLI) settings() (Settings, error) {
	s := Settings{
		UART:        c.v.GetInt("uart"),
		Timeout:     c.v.GetDuration("timeout"),
		MetricsFile: c.v.GetString("metrics-file"),
		ReportFile:  c.v.GetString("report"),
	}
	if s.UART == sonata.UARTConsole {
		return s, exitWith(ExitUsage, fmt.Errorf("uart%d carries the console", s.UART))
	}
	if _, ok := sonata.UARTRegion(s.UART); !ok {
		return s, exitWith(ExitUsage, fmt.Errorf("no uart%d on this platform", s.UART))
	}
	if s.Timeout < 0 {
		return s, exitWith(ExitUsage, fmt.Errorf("negative timeout %s", s.Timeout))
	}
	return s, nil
}

// runChecks boots the machine, starts the console service on uart0 and runs
// the checks against the selected UART.
func (c *CLI) runChecks(ctx context.Context, s Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := sonata.Boot(sonata.Config{ConsoleLine: c.stdout})
	if err != nil {
		return exitWith(ExitInternal, err)
	}
	root := m.Root()

	con, err := sonata.LookupUART(root, sonata.UARTConsole)
	if err != nil {
		return exitWith(ExitInternal, err)
	}
	con.InitBaud(ConsoleBaud)

	b := bus.NewBus(busQueueLen, "+", "#")
	svcCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := console.NewService(console.NewWriter(con.Stream()), c.log).Start(svcCtx, b.NewConnection("console"))

	runID := uuid.NewString()
	pub := console.NewPublisher(b.NewConnection("uartcheck"), runID, s.UART)
	c.log.Info("run starting", "run", runID, "uart", s.UART, "timeout", s.Timeout)
	started := time.Now()

	results, runErr := uartcheck.Run(ctx, root, s.UART, pub,
		harness.WithRunID(runID),
		harness.WithTimeout(s.Timeout),
		harness.WithLogger(c.log),
	)
	if runErr != nil && errcode.Of(runErr) == errcode.UnknownPeripheral {
		stop()
		<-done
		return exitWith(ExitUsage, runErr)
	}

	rep := report.New(runID, s.UART, started, time.Now(), results, runErr != nil)
	summary := rep.Summary
	pub.Summary(summary)

	stop()
	<-done
	for con.InterruptState()&opentitanuart.InterruptTransmitEmpty == 0 {
	}
	if err := m.UARTModel(sonata.UARTConsole).LineErr(); err != nil {
		return exitWith(ExitInternal, fmt.Errorf("console: %w", err))
	}
	c.log.Info("run finished", "run", runID, "passed", summary.Passed, "failed", summary.Failed, "aborted", summary.Aborted)

	if err := c.writeArtifacts(s, rep); err != nil {
		return exitWith(ExitInternal, err)
	}

	switch {
	case runErr != nil && errors.Is(runErr, errcode.Aborted):
		return exitWith(ExitAborted, runErr)
	case runErr != nil:
		return exitWith(ExitInternal, runErr)
	case summary.Failed > 0:
		return exitWith(ExitFailed, nil)
	}
	return nil
}

// writeArtifacts writes the optional metrics and report files.
func (c *CLI) writeArtifacts(s Settings, r report.Report) error {
	if s.MetricsFile != "" {
		m := metrics.New()
		for _, res := range r.Results {
			m.RecordResult(res)
		}
		m.RecordRun(r.Summary)
		if err := m.WriteFile(s.MetricsFile); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		c.log.Debug("metrics written", "path", s.MetricsFile)
	}
	if s.ReportFile != "" {
		if err := r.Save(s.ReportFile); err != nil {
			return err
		}
		c.log.Debug("report written", "path", s.ReportFile)
	}
	return nil
}
