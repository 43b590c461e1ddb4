// Copyright 2025 Certen Protocol

package sandbox

import (
	"context"
	"testing"
)

func TestWasmRuntimeRejectsInvalidModule(t *testing.T) {
	rt := NewWasmRuntime(DefaultConfig())
	defer rt.Close(context.Background())

	_, err := rt.Execute(context.Background(), "not a real wasm module", nil, nil)
	if err == nil {
		t.Fatal("expected an error for an invalid wasm module")
	}
	if _, ok := err.(*ExecutionFailedError); !ok {
		t.Fatalf("expected ExecutionFailedError, got %T (%v)", err, err)
	}
}

func TestWasmRuntimeLanguageName(t *testing.T) {
	rt := NewWasmRuntime(DefaultConfig())
	defer rt.Close(context.Background())

	if rt.LanguageName() != "wasm" {
		t.Fatalf("expected language name wasm, got %s", rt.LanguageName())
	}
}

func TestWasmRuntimeRejectsOversizedInput(t *testing.T) {
	config := DefaultConfig()
	config.MaxMemoryBytes = 16
	rt := NewWasmRuntime(config)
	defer rt.Close(context.Background())

	input := make([]byte, 32)
	_, err := rt.Execute(context.Background(), "not a real wasm module", input, nil)
	if _, ok := err.(*MemoryLimitExceededError); !ok {
		t.Fatalf("expected MemoryLimitExceededError for input exceeding MaxMemoryBytes, got %T (%v)", err, err)
	}
}

func TestMemoryLimitPages(t *testing.T) {
	if got := memoryLimitPages(1); got != 1 {
		t.Fatalf("expected 1 byte to round up to 1 page, got %d", got)
	}
	if got := memoryLimitPages(wasmPageSize); got != 1 {
		t.Fatalf("expected exactly one page's worth to be 1 page, got %d", got)
	}
	if got := memoryLimitPages(wasmPageSize + 1); got != 2 {
		t.Fatalf("expected one page plus one byte to round up to 2 pages, got %d", got)
	}
	if got := memoryLimitPages(0); got != memoryLimitPages(DefaultConfig().MaxMemoryBytes) {
		t.Fatalf("expected a non-positive limit to fall back to the default")
	}
}
