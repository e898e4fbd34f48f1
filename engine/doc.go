// Package engine runs coverage-instrumented WebAssembly guests under wazero
// and exposes them as profile.Runtime implementations.
//
// A guest built with LLVM instrumentation and linked against a minicov-style
// profiling runtime exports the profiling ABI as core wasm functions:
//
//	__llvm_profile_get_version       () -> i64
//	__llvm_profile_reset_counters    () -> ()
//	__llvm_profile_merge_from_buffer (i32, i64) -> i32
//	__llvm_profile_check_compatibility (i32, i64) -> i32
//	minicov_capture                  (i32, i32) -> i32
//
// Function pointers cannot cross the wasm boundary, so the runtime's
// writer-callback protocol is carried by minicov_capture: guest-side glue
// builds the ProfDataWriter and forwards each scatter list to the host
// import minicov.write(iovs, n), where this package decodes the ProfDataIOVec
// array straight out of guest memory and feeds the same streaming writer the
// pure-Go path uses. The guest imports two more host functions,
// minicov.alloc_zeroed and minicov.dealloc, which back value profiling; they
// are served from pages the host grows itself, or always fail when the
// allocator is disabled in Config.
//
// Each Instance owns its own wazero runtime; compiled modules are shared
// through the engine's compilation cache. Instances are not safe for
// concurrent use, matching the profiling runtime's own contract.
package engine
