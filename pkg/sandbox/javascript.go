// Copyright 2025 Certen Protocol

package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// jsSandboxPrelude stubs the global names untrusted code would reach for to
// escape the sandbox — fetch/XHR/WebSocket for network, require() for
// Node-style filesystem/network modules — so an attempt surfaces as a
// tagged error the host can classify, instead of a bare "not defined"
// ReferenceError goja would otherwise raise (there is no such global at
// all, by construction, since goja ships no syscall surface of its own).
const jsSandboxPrelude = `
(function(global) {
  function denyNetwork() { throw new Error('__NETWORK_ACCESS_DENIED__'); }
  function denyFilesystem() { throw new Error('__FILESYSTEM_ACCESS_DENIED__'); }
  global.fetch = denyNetwork;
  global.XMLHttpRequest = denyNetwork;
  global.WebSocket = denyNetwork;
  global.require = function(name) {
    var networkModules = ['http', 'https', 'net', 'dgram', 'dns', 'tls'];
    var fsModules = ['fs', 'child_process', 'path', 'os'];
    if (networkModules.indexOf(name) !== -1) denyNetwork();
    if (fsModules.indexOf(name) !== -1) denyFilesystem();
    throw new Error('module not found: ' + name);
  };
})(this);
`

// JavaScriptRuntime executes verification code inside a goja VM. Unlike
// the reference implementation's embedded Deno engine, goja is a
// pure-Go ECMAScript interpreter with no syscall surface of its own, so
// network and filesystem access are denied by construction rather than
// by disabling globals.
type JavaScriptRuntime struct {
	config Config

	mu    sync.Mutex
	stats ExecutionStats
}

// NewJavaScriptRuntime creates a JavaScript runtime using config's
// resource limits.
func NewJavaScriptRuntime(config Config) *JavaScriptRuntime {
	return &JavaScriptRuntime{config: config}
}

// LanguageName identifies this runtime.
func (j *JavaScriptRuntime) LanguageName() string { return "javascript" }

// LastExecutionStats reports resource usage from the most recent Execute
// call.
func (j *JavaScriptRuntime) LastExecutionStats() ExecutionStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

// Execute runs code's verify(input, output) against input and output,
// passed in as ArrayBuffer values, under a hard wall-clock timeout
// enforced via VM interruption.
func (j *JavaScriptRuntime) Execute(ctx context.Context, code string, input, output []byte) (bool, error) {
	start := time.Now()
	result, err := j.execute(ctx, code, input, output)

	j.mu.Lock()
	j.stats = ExecutionStats{Duration: time.Since(start), Success: err == nil}
	j.mu.Unlock()

	return result, err
}

func (j *JavaScriptRuntime) execute(ctx context.Context, code string, input, output []byte) (bool, error) {
	timeout := j.config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	vm := goja.New()
	vm.Set("input_data", vm.NewArrayBuffer(input))
	vm.Set("output_data", vm.NewArrayBuffer(output))

	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt(&TimeoutError{ElapsedMs: timeout.Milliseconds()})
	})
	defer timer.Stop()

	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if _, err := vm.RunString(jsSandboxPrelude); err != nil {
		return false, &ExecutionFailedError{Detail: "sandbox prelude: " + err.Error()}
	}

	if _, err := vm.RunString(code); err != nil {
		return false, jsRunError(err)
	}

	verifyFn, ok := goja.AssertFunction(vm.Get("verify"))
	if !ok {
		return false, &FunctionNotFoundError{Name: "verify"}
	}

	retVal, err := verifyFn(goja.Undefined(), vm.Get("input_data"), vm.Get("output_data"))
	if err != nil {
		return false, jsRunError(err)
	}

	exported := retVal.Export()
	verdict, ok := exported.(bool)
	if !ok {
		return false, &InvalidReturnTypeError{Got: fmt.Sprintf("%T", exported)}
	}
	return verdict, nil
}

func jsRunError(err error) error {
	if interrupted, ok := err.(*goja.InterruptedError); ok {
		if te, ok := interrupted.Value().(*TimeoutError); ok {
			return te
		}
	}
	switch {
	case strings.Contains(err.Error(), "__NETWORK_ACCESS_DENIED__"):
		return ErrNetworkAccessDenied
	case strings.Contains(err.Error(), "__FILESYSTEM_ACCESS_DENIED__"):
		return ErrFileSystemAccessDenied
	}
	return &ExecutionFailedError{Detail: err.Error()}
}
