package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"golang.org/x/term"

	covruntime "github.com/wippyai/coverage-runtime"
	"github.com/wippyai/coverage-runtime/engine"
	"github.com/wippyai/coverage-runtime/profile"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to instrumented wasm file")
		funcName    = flag.String("func", "", "Entry function to run before capturing (default: _start, run or main)")
		outFile     = flag.String("o", "output.profraw", "Output .profraw path")
		mergeFile   = flag.String("merge", "", "Existing .profraw to merge into the guest before capturing")
		reset       = flag.Bool("reset", false, "Reset counters after capturing")
		skipNames   = flag.Bool("skip-names", false, "Omit the function name section")
		noAlloc     = flag.Bool("no-alloc", false, "Disable the allocation shim (omits value profiling)")
		enableWASI  = flag.Bool("wasi", false, "Provide wasi_snapshot_preview1 to the guest")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: covdump -wasm <file.wasm> [-func name] [-o out.profraw] [-merge prev.profraw]")
		fmt.Fprintln(os.Stderr, "       covdump -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       covdump -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	cfg := engine.Config{
		DisableAllocator: *noAlloc,
		EnableWASI:       *enableWASI,
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: -i requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, cfg, *outFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *outFile, *mergeFile, cfg, *reset, *skipNames, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, funcName, outFile, mergeFile string, cfg engine.Config, reset, skipNames, listOnly bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	eng, err := engine.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close(ctx)

	inst, err := eng.Load(ctx, data)
	if err != nil {
		return fmt.Errorf("load guest: %w", err)
	}
	defer inst.Close(ctx)

	exports := inst.ExportNames()
	sort.Strings(exports)

	fmt.Printf("Guest: %s\n", wasmFile)
	fmt.Printf("Format version: %d\n", profile.MaskedVersion(inst.Version()))
	fmt.Printf("\nExported functions:\n")
	for _, name := range exports {
		fmt.Printf("  %s\n", name)
	}

	if listOnly {
		return nil
	}

	if mergeFile != "" {
		blob, err := os.ReadFile(mergeFile)
		if err != nil {
			return fmt.Errorf("read merge file: %w", err)
		}
		if err := profile.Merge(inst, blob); err != nil {
			return fmt.Errorf("merge %s: %w", mergeFile, err)
		}
		fmt.Printf("\nMerged %d bytes from %s\n", len(blob), mergeFile)
	}

	// If no function specified, try common entry points.
	if funcName == "" {
		for _, name := range []string{"_start", "run", "main"} {
			if contains(exports, name) {
				funcName = name
				break
			}
		}
	}
	if funcName != "" {
		fmt.Printf("\nCalling %s()...\n", funcName)
		if _, err := inst.Run(ctx, funcName); err != nil {
			return fmt.Errorf("run %s: %w", funcName, err)
		}
	} else {
		fmt.Printf("\nNo entry point found; capturing counters as instantiated.\n")
	}

	var buf covruntime.Buffer
	opts := profile.Options{SkipNames: skipNames}
	if err := profile.CaptureWith(inst, &buf, opts); err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	if err := os.WriteFile(outFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("Wrote %d bytes to %s\n", buf.Len(), outFile)

	if reset {
		profile.Reset(inst)
		fmt.Println("Counters reset.")
	}

	return nil
}

func contains(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}

