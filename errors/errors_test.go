package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCapture,
				Kind:   KindWriteFailure,
				Export: "lprofWriteData",
				Detail: "sink rejected chunk",
			},
			contains: []string{"[capture]", "write_failure", "lprofWriteData", "sink rejected chunk"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMerge,
				Kind:  KindIncompatibleData,
			},
			contains: []string{"[merge]", "incompatible_data"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHost,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[host]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WriteFailed(cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not follow the cause chain")
	}
}

func TestError_Is(t *testing.T) {
	err := Incompatible(128)

	if !errors.Is(err, &Error{Phase: PhaseMerge, Kind: KindIncompatibleData}) {
		t.Error("expected match on same phase and kind")
	}
	if errors.Is(err, &Error{Phase: PhaseCapture, Kind: KindIncompatibleData}) {
		t.Error("unexpected match across phases")
	}
	if errors.Is(err, &Error{Phase: PhaseMerge, Kind: KindWriteFailure}) {
		t.Error("unexpected match across kinds")
	}
}

func TestError_As(t *testing.T) {
	var target *Error
	wrapped := Wrap(PhaseGuest, KindBadStatus, errors.New("trap"), "capture entry trapped")

	if !errors.As(error(wrapped), &target) {
		t.Fatal("errors.As failed")
	}
	if target.Kind != KindBadStatus {
		t.Errorf("Kind = %q, want %q", target.Kind, KindBadStatus)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(PhaseCapture, KindWriteFailure).
		Export("minicov_capture").
		Detail("failed after %d bytes", 42).
		Value(42).
		Cause(cause).
		Build()

	if err.Phase != PhaseCapture || err.Kind != KindWriteFailure {
		t.Errorf("phase/kind = %q/%q", err.Phase, err.Kind)
	}
	if err.Export != "minicov_capture" {
		t.Errorf("Export = %q", err.Export)
	}
	if err.Detail != "failed after 42 bytes" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v", err.Value)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not propagated")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"WriteFailed", WriteFailed(nil), PhaseCapture, KindWriteFailure},
		{"Incompatible", Incompatible(10), PhaseMerge, KindIncompatibleData},
		{"VersionMismatch", VersionMismatch(9, 10), PhaseCapture, KindVersionMismatch},
		{"AllocationFailed", AllocationFailed(PhaseHost, 64, 8), PhaseHost, KindAllocation},
		{"NotFound", NotFound("__llvm_profile_get_version"), PhaseLoad, KindNotFound},
		{"OutOfBounds", OutOfBounds(PhaseHost, 4096, 16), PhaseHost, KindOutOfBounds},
		{"InvalidInput", InvalidInput(PhaseLoad, "empty module"), PhaseLoad, KindInvalidInput},
		{"BadStatus", BadStatus(PhaseMerge, "__llvm_profile_merge_from_buffer", 1), PhaseMerge, KindBadStatus},
		{"Load", Load("compile failed", errors.New("bad magic")), PhaseLoad, KindInstantiation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %q, want %q", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %q, want %q", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}
