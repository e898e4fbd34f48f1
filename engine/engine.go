package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/wippyai/coverage-runtime/errors"
)

// Guest export names of the profiling ABI.
const (
	ExportGetVersion         = "__llvm_profile_get_version"
	ExportResetCounters      = "__llvm_profile_reset_counters"
	ExportMergeFromBuffer    = "__llvm_profile_merge_from_buffer"
	ExportCheckCompatibility = "__llvm_profile_check_compatibility"
	ExportCapture            = "minicov_capture"
)

// HostModule is the import namespace the guest's profiling glue binds to.
const HostModule = "minicov"

// Engine loads coverage-instrumented guests. Compiled modules are shared
// across instances through a compilation cache.
type Engine struct {
	cache wazero.CompilationCache
	cfg   Config
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB
	// each). 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// DisableAllocator makes the minicov.alloc_zeroed import always fail,
	// which disables value profiling in the guest. Captures still work; the
	// value section is omitted.
	DisableAllocator bool

	// EnableWASI instantiates wasi_snapshot_preview1 for guests built
	// against wasi-libc. Bare no-std guests do not need it.
	EnableWASI bool
}

// New creates an engine with default configuration.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, Config{})
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(ctx context.Context, cfg Config) (*Engine, error) {
	return &Engine{
		cache: wazero.NewCompilationCache(),
		cfg:   cfg,
	}, nil
}

// Close releases the compilation cache. All instances must be closed before
// calling this.
func (e *Engine) Close(ctx context.Context) error {
	return e.cache.Close(ctx)
}

// Load compiles and instantiates an instrumented guest. The guest's start
// functions are not run; use Instance.Run to execute entry points.
func (e *Engine) Load(ctx context.Context, wasmBytes []byte) (*Instance, error) {
	if len(wasmBytes) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "empty module")
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCompilationCache(e.cache)
	if e.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}

	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	inst := &Instance{
		runtime:       r,
		allocDisabled: e.cfg.DisableAllocator,
	}

	hb := r.NewHostModuleBuilder(HostModule)
	hb.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(inst.hostWrite),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("write")
	hb.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(inst.hostAllocZeroed),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{api.ValueTypeI32}).
		Export("alloc_zeroed")
	hb.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(inst.hostDealloc),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32},
			[]api.ValueType{}).
		Export("dealloc")
	if _, err := hb.Instantiate(ctx); err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("instantiate host module", err)
	}

	if e.cfg.EnableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			_ = r.Close(ctx)
			return nil, errors.Load("instantiate wasi", err)
		}
	}

	mod, err := r.InstantiateWithConfig(ctx, wasmBytes,
		wazero.NewModuleConfig().WithStartFunctions())
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("instantiate guest", err)
	}

	if err := inst.bind(mod); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}

	debugf("loaded instrumented guest: %d bytes, memory %d pages",
		len(wasmBytes), mod.Memory().Size()/65536)
	return inst, nil
}
