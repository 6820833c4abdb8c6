// Package cli provides the uartcheck command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes.
const (
	ExitSuccess  = 0
	ExitFailed   = 1 // a check reported FAIL
	ExitUsage    = 2
	ExitAborted  = 3 // the run was cut short
	ExitInternal = 4
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "dev"
	BuildDate = "unknown"
)

const envPrefix = "UARTCHECK"

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}
func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error { return &exitError{code: code, err: err} }

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	v       *viper.Viper
	stdout  io.Writer
	stderr  io.Writer
	log     *slog.Logger
}

// New creates a CLI writing the console to stdout and diagnostics to stderr.
func New(stdout, stderr io.Writer) *CLI {
	c := &CLI{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
		log:    slog.New(slog.DiscardHandler),
	}
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	c.rootCmd = c.newRootCmd()
	return c
}

// Execute runs the CLI with args and returns the process exit code.
func (c *CLI) Execute(args []string) int {
	if args == nil {
		args = []string{}
	}
	c.rootCmd.SetArgs(args)
	err := c.rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(c.stderr, "uartcheck: %v\n", ee.err)
		}
		return ee.code
	}
	// Anything cobra rejects before a command runs is a usage error.
	fmt.Fprintf(c.stderr, "uartcheck: %v\n", err)
	return ExitUsage
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uartcheck",
		Short: "Validate a UART through a capability-bounded handle",
		Long: `uartcheck boots the simulated platform, derives a capability covering one
UART register block and runs the loopback and TX watermark checks against it.

Progress and verdicts are printed on the console UART (uart0).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)

	cmd.PersistentFlags().String("log-level", "warn", "diagnostic log level (debug, info, warn, error)")

	cmd.AddCommand(c.newRunCmd())
	cmd.AddCommand(c.newVersionCmd())
	return cmd
}

// initLogging builds the diagnostic logger from the bound log level.
func (c *CLI) initLogging() error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.v.GetString("log-level"))); err != nil {
		return exitWith(ExitUsage, fmt.Errorf("invalid log level %q", c.v.GetString("log-level")))
	}
	c.log = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: lvl}))
	return nil
}

func (c *CLI) bindFlags(cmd *cobra.Command) error {
	// cmd.Flags() holds the inherited persistent flags once parsed.
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return exitWith(ExitInternal, err)
	}
	return nil
}
