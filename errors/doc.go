// Package errors provides structured error types for the coverage-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries context relevant to profiling operations:
// the guest export involved, a human-readable detail, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCapture, errors.KindWriteFailure).
//		Detail("sink rejected chunk of %d bytes", n).
//		Cause(sinkErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.WriteFailed(sinkErr)
//	err := errors.Incompatible(len(blob))
//
// All errors implement the standard error interface and support errors.Is/As.
// Two errors match under errors.Is when their Phase and Kind agree, so callers
// can distinguish an incompatible blob from a failing sink without string
// comparison.
package errors
