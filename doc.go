// Package covruntime provides a host-side bridge for LLVM profiling data.
//
// Programs built with -fprofile-instr-generate (or rustc/clang coverage
// instrumentation) link a profiling runtime that owns a process-wide counter
// table and defines the .profraw wire format. This library drives that
// runtime from the host side: it captures a complete counter snapshot as a
// byte stream, merges a previously captured snapshot back into live
// counters, and resets counters, without ever parsing the format itself.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	covruntime/          Root package with core Sink, Memory and Allocator interfaces
//	├── profile/         Capture, merge and reset against the profiling-runtime ABI
//	├── profile/profiletest/  In-process reference runtime for tests
//	├── alloc/           Allocation shim variants used by value profiling
//	├── engine/          wazero binding for instrumented WebAssembly guests
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Capture coverage from an instrumented wasm guest:
//
//	eng, err := engine.New(ctx)
//	defer eng.Close(ctx)
//
//	inst, err := eng.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	// Run instrumented code, then snapshot the counters.
//	var buf covruntime.Buffer
//	if err := profile.Capture(inst, &buf); err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("guest.profraw", buf.Bytes(), 0o644)
//
// The resulting file is processed with llvm-profdata/llvm-cov or grcov.
//
// # Sinks
//
// Capture streams bytes into any Sink implementation. Sinks receive many
// small ordered chunks and must treat them as one logical concatenation.
// Buffer is the default in-memory implementation; WriterSink adapts any
// io.Writer. Sinks are not transactional: a capture that fails midway may
// already have written a prefix, so callers needing atomicity should buffer
// before persisting.
//
// # Thread Safety
//
// The profiling runtime's counter table has no internal locking. Capture,
// Merge and Reset must not run concurrently with each other or with
// themselves; serialize them or call them only at single-threaded points
// such as process start, process end, or immediately after a fork.
package covruntime
