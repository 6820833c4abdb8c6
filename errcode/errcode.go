package errcode

// Code is a stable, report-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"
	Timeout       Code = "timeout"

	// Capability faults.
	TagViolation          Code = "tag_violation"
	BoundsViolation       Code = "bounds_violation"
	PermitLoadViolation   Code = "permit_load_violation"
	PermitStoreViolation  Code = "permit_store_violation"
	AlignmentViolation    Code = "alignment_violation"
	MonotonicityViolation Code = "monotonicity_violation"

	// Platform.
	BusError          Code = "bus_error"
	UnknownPeripheral Code = "unknown_peripheral"

	// Check outcomes.
	CheckFailed Code = "check_failed"
	Aborted     Code = "aborted"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
