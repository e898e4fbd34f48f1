package profile

import "fmt"

// RawVersion is the .profraw wire-format version this library understands.
// It must match the version compiled into the linked profiling runtime.
const RawVersion uint64 = 10

// VariantMask covers the high bits of the version word that encode format
// variants (IR instrumentation, single-byte coverage, and so on). They are
// masked off before comparison.
const VariantMask uint64 = 0xffffffff00000000

// MaskedVersion returns the version word with the variant bits cleared.
func MaskedVersion(v uint64) uint64 {
	return v &^ VariantMask
}

// checkVersion asserts that the runtime and this library agree on the wire
// format. Runs before every operation so a runtime swapped in after startup
// (dynamic reload) is still caught. A mismatch panics: there is no safe
// degraded path once the two sides disagree on the format.
func checkVersion(rt Runtime) {
	if v := MaskedVersion(rt.Version()); v != RawVersion {
		panic(fmt.Sprintf("covruntime: profiling runtime reports format version %d, library expects %d", v, RawVersion))
	}
}
