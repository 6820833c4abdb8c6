// Command uartcheck runs the UART loopback and watermark checks on the
// simulated platform.
package main

import (
	"os"

	"uartcheck-go/internal/cli"
)

// Set with -ldflags "-X main.version=...".
var (
	version string
	commit  string
	date    string
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.New(os.Stdout, os.Stderr).Execute(os.Args[1:]))
}
