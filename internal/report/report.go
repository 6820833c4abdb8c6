// Package report writes a finished run as a YAML document.
package report

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"uartcheck-go/types"
)

// Report is the on-disk form of one run.
type Report struct {
	Run      string              `yaml:"run"`
	UART     int                 `yaml:"uart"`
	Started  time.Time           `yaml:"started"`
	Finished time.Time           `yaml:"finished"`
	Summary  types.RunSummary    `yaml:"summary"`
	Results  []types.CheckResult `yaml:"results"`
}

// New assembles a report from a run's results.
func New(run string, uart int, started, finished time.Time, results []types.CheckResult, aborted bool) Report {
	return Report{
		Run:      run,
		UART:     uart,
		Started:  started.UTC(),
		Finished: finished.UTC(),
		Summary:  types.Summarise(run, uart, results, aborted),
		Results:  results,
	}
}

// Save writes r to path as YAML.
func (r Report) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}

// Load reads a report written by Save.
func Load(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("failed to read report file: %w", err)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("failed to parse report: %w", err)
	}
	return r, nil
}
