// Package profile implements capture, merge and reset of LLVM profiling data
// against the profiling-runtime ABI.
//
// The profiling runtime owns a process-wide counter table and defines the
// .profraw wire format; this package never parses that format. It drives the
// runtime through five fixed entry points, expressed here as the Runtime
// interface, and implements the runtime's streaming write protocol: during a
// capture the runtime hands back an ordered scatter list of byte ranges, some
// backed by real memory and some virtual (zero padding), and the writer
// bridge forwards them in order into a caller-supplied Sink.
//
// Every operation re-checks the wire-format version first. A masked mismatch
// is unrecoverable and panics: nothing produced or consumed after a version
// disagreement can be trusted by any downstream consumer.
//
// None of the operations in this package are safe for concurrent use. The
// runtime's counter table has no internal locking; callers must serialize
// Capture, Merge and Reset against each other and against themselves.
package profile
