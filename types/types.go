package types

// ---- Report payloads (bus) ----

// ConsoleLine is one status line for the observer-visible console.
type ConsoleLine struct {
	Run  string `json:"run" yaml:"run"`
	Text string `json:"text" yaml:"text"`
}

// CheckResult is the outcome of one check. Pass is the whole verdict; Code
// only says why a failing check failed (check_failed, a capability fault,
// timeout).
type CheckResult struct {
	Run        string `json:"run" yaml:"run"`
	UART       int    `json:"uart" yaml:"uart"`
	Check      string `json:"check" yaml:"check"`
	Pass       bool   `json:"pass" yaml:"pass"`
	Code       string `json:"code" yaml:"code"`
	DurationMs int64  `json:"duration_ms" yaml:"duration_ms"`
}

// RunSummary closes a run.
type RunSummary struct {
	Run     string `json:"run" yaml:"run"`
	UART    int    `json:"uart" yaml:"uart"`
	Passed  int    `json:"passed" yaml:"passed"`
	Failed  int    `json:"failed" yaml:"failed"`
	Aborted bool   `json:"aborted" yaml:"aborted"`
}

// Summarise tallies results for a run.
func Summarise(run string, uart int, results []CheckResult, aborted bool) RunSummary {
	s := RunSummary{Run: run, UART: uart, Aborted: aborted}
	for _, r := range results {
		if r.Pass {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}
