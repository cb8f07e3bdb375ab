// Package capture defines the inputs the diagnostic core consumes from
// external collectors: the raw error capture and the sanitized environment
// snapshot. The core never executes commands or reads the environment itself;
// these records are handed in fully formed at session start.
package capture

// ErrorReport is the raw failure capture. Immutable once created: the
// session keeps the original around for re-verification, so nothing in the
// core mutates it after construction.
type ErrorReport struct {
	RawText    string `json:"raw_text"`
	StackTrace string `json:"stack_trace,omitempty"`
	ExitCode   int    `json:"exit_code,omitempty"`
	// Command is the command/context string that produced the failure,
	// e.g. "python train.py --config prod.yaml".
	Command    string `json:"command,omitempty"`
	CapturedAt string `json:"captured_at"` // ISO 8601
}

// TestResult is a structured test/verification outcome produced by an
// external executor. The core only interprets it; it never runs anything.
type TestResult struct {
	Procedure    string `json:"procedure"`
	ActualOutput string `json:"actual_output"`
	Success      bool   `json:"success"`
}
