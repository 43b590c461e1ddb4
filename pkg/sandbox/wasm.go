// Copyright 2025 Certen Protocol

package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmPageSize is wazero's (and the WASM spec's) fixed linear-memory page
// size in bytes.
const wasmPageSize = 65536

// memoryLimitPages converts a byte ceiling into the page count wazero's
// RuntimeConfig enforces as a hard cap on every instantiated module's
// memory, rounding up and requiring at least one page.
func memoryLimitPages(maxBytes int64) uint32 {
	if maxBytes <= 0 {
		maxBytes = DefaultConfig().MaxMemoryBytes
	}
	pages := (maxBytes + wasmPageSize - 1) / wasmPageSize
	if pages < 1 {
		pages = 1
	}
	return uint32(pages)
}

// WasmRuntime executes verification code compiled to WebAssembly, using
// wazero's pure-Go runtime. The module must export a linear memory named
// "memory", an "alloc(size i32) i32" function for the host to place
// input/output bytes, and a
// "verify(input_ptr i32, input_len i32, output_ptr i32, output_len i32) i32"
// function returning 1 for accept and 0 for reject. This is a real
// execution path, unlike the reference implementation's placeholder.
type WasmRuntime struct {
	config  Config
	runtime wazero.Runtime

	mu    sync.Mutex
	stats ExecutionStats
}

// NewWasmRuntime creates a WASM runtime using config's resource limits.
// The underlying wazero runtime is shared across Execute calls; each call
// instantiates a fresh module instance so verification runs cannot leak
// state between solutions.
func NewWasmRuntime(config Config) *WasmRuntime {
	runtimeConfig := wazero.NewRuntimeConfig().WithMemoryLimitPages(memoryLimitPages(config.MaxMemoryBytes))
	return &WasmRuntime{
		config:  config,
		runtime: wazero.NewRuntimeWithConfig(context.Background(), runtimeConfig),
	}
}

// LanguageName identifies this runtime.
func (w *WasmRuntime) LanguageName() string { return "wasm" }

// LastExecutionStats reports resource usage from the most recent Execute
// call.
func (w *WasmRuntime) LastExecutionStats() ExecutionStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Execute instantiates code as a WASM module, writes input and output
// into its linear memory, and calls its verify export.
func (w *WasmRuntime) Execute(ctx context.Context, code string, input, output []byte) (bool, error) {
	start := time.Now()
	result, err := w.execute(ctx, code, input, output)

	w.mu.Lock()
	w.stats = ExecutionStats{Duration: time.Since(start), Success: err == nil}
	w.mu.Unlock()

	return result, err
}

func (w *WasmRuntime) execute(ctx context.Context, code string, input, output []byte) (bool, error) {
	timeout := w.config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxBytes := w.config.MaxMemoryBytes
	if maxBytes <= 0 {
		maxBytes = DefaultConfig().MaxMemoryBytes
	}
	if requested := int64(len(input)) + int64(len(output)); requested > maxBytes {
		return false, &MemoryLimitExceededError{RequestedBytes: requested, LimitBytes: maxBytes}
	}

	compiled, err := w.runtime.CompileModule(ctx, []byte(code))
	if err != nil {
		return false, &ExecutionFailedError{Detail: "compile: " + err.Error()}
	}
	defer compiled.Close(ctx)

	cfg := wazero.NewModuleConfig().WithStartFunctions()
	mod, err := w.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return false, &ExecutionFailedError{Detail: "instantiate: " + err.Error()}
	}
	defer mod.Close(ctx)

	alloc := mod.ExportedFunction("alloc")
	verify := mod.ExportedFunction("verify")
	memory := mod.Memory()
	if alloc == nil || verify == nil || memory == nil {
		return false, &FunctionNotFoundError{Name: "verify"}
	}

	inputPtr, inputLen, err := wasmWriteBytes(ctx, mod, alloc, memory, input, maxBytes)
	if err != nil {
		return false, err
	}
	outputPtr, outputLen, err := wasmWriteBytes(ctx, mod, alloc, memory, output, maxBytes)
	if err != nil {
		return false, err
	}

	results, err := verify.Call(ctx, inputPtr, inputLen, outputPtr, outputLen)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return false, &TimeoutError{ElapsedMs: timeout.Milliseconds()}
		}
		return false, &ExecutionFailedError{Detail: err.Error()}
	}
	if len(results) != 1 {
		return false, &InvalidReturnTypeError{Got: fmt.Sprintf("%d return values", len(results))}
	}

	verdict := api.DecodeI32(results[0])
	if verdict != 0 && verdict != 1 {
		return false, &InvalidReturnTypeError{Got: fmt.Sprintf("i32(%d)", verdict)}
	}
	return verdict == 1, nil
}

func wasmWriteBytes(ctx context.Context, mod api.Module, alloc api.Function, memory api.Memory, data []byte, maxBytes int64) (uint64, uint64, error) {
	size := uint64(len(data))
	results, err := alloc.Call(ctx, size)
	if err != nil {
		if isMemoryGrowFailure(err) {
			return 0, 0, &MemoryLimitExceededError{RequestedBytes: int64(size), LimitBytes: maxBytes}
		}
		return 0, 0, &ExecutionFailedError{Detail: "alloc: " + err.Error()}
	}
	ptr := results[0]
	if len(data) > 0 && !memory.Write(uint32(ptr), data) {
		return 0, 0, &MemoryLimitExceededError{RequestedBytes: int64(ptr) + int64(size), LimitBytes: maxBytes}
	}
	return ptr, size, nil
}

// isMemoryGrowFailure reports whether err came from a guest module
// trapping or aborting after its own memory.grow call returned -1 —
// wazero's observable signal that WithMemoryLimitPages capped growth.
func isMemoryGrowFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "out of bounds memory access") ||
		strings.Contains(msg, "unreachable")
}

// Close releases the underlying wazero runtime and all cached compiled
// modules.
func (w *WasmRuntime) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}
