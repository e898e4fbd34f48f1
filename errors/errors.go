package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCapture Phase = "capture" // counter snapshot streaming
	PhaseMerge   Phase = "merge"   // folding a blob into live counters
	PhaseReset   Phase = "reset"   // counter reset
	PhaseLoad    Phase = "load"    // guest module loading
	PhaseHost    Phase = "host"    // host function dispatch
	PhaseGuest   Phase = "guest"   // guest export invocation
)

// Kind categorizes the error
type Kind string

const (
	KindWriteFailure     Kind = "write_failure"
	KindIncompatibleData Kind = "incompatible_data"
	KindVersionMismatch  Kind = "version_mismatch"
	KindAllocation       Kind = "allocation"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindInstantiation    Kind = "instantiation"
	KindBadStatus        Kind = "bad_status"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Export string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Export != "" {
		b.WriteString(" in ")
		b.WriteString(e.Export)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Export sets the guest export or host function name
func (b *Builder) Export(name string) *Builder {
	b.err.Export = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// WriteFailed creates a capture write failure error
func WriteFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseCapture,
		Kind:   KindWriteFailure,
		Detail: "error while writing coverage data",
		Cause:  cause,
	}
}

// Incompatible creates an incompatible coverage data error.
// This typically means the blob comes from a different binary or build.
func Incompatible(size int) *Error {
	return &Error{
		Phase:  PhaseMerge,
		Kind:   KindIncompatibleData,
		Detail: fmt.Sprintf("incompatible coverage data (%d bytes)", size),
		Value:  size,
	}
}

// VersionMismatch creates a wire-format version mismatch error
func VersionMismatch(got, want uint64) *Error {
	return &Error{
		Phase:  PhaseCapture,
		Kind:   KindVersionMismatch,
		Detail: fmt.Sprintf("runtime reports format version %d, expected %d", got, want),
		Value:  got,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// NotFound creates a missing guest export error
func NotFound(export string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotFound,
		Export: export,
		Detail: "export not found in guest module",
	}
}

// OutOfBounds creates a guest memory out of bounds error
func OutOfBounds(phase Phase, offset, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("guest memory access out of bounds: offset=%d, length=%d", offset, length),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// BadStatus creates an error for a nonzero status returned by a runtime
// entry point.
func BadStatus(phase Phase, export string, status int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBadStatus,
		Export: export,
		Detail: fmt.Sprintf("runtime returned status %d", status),
		Value:  status,
	}
}

// Load wraps an error from module loading
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
