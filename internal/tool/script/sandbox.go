// Package script implements the "function" utility tool: a user-supplied
// JavaScript function, run in a goja sandbox with a bounded timeout and
// no dangerous globals (network, filesystem, process) exposed to it.
package script

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/flowforge/engine/internal/schema"
	"github.com/flowforge/engine/internal/tool"
)

const defaultTimeout = 5 * time.Second

// Executor runs a fixed script body against each call's regular
// parameters, exposed to the script as the `input` global. A fresh
// goja.Runtime is created per call for isolation between invocations.
type Executor struct {
	code    string
	timeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout overrides the default 5 second execution budget.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// New builds a script Executor around code, the body of the function
// tool. code may either define its own `function execute(input)` or be
// treated as a bare statement block that returns its result directly.
func New(code string, opts ...Option) *Executor {
	e := &Executor{code: code, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the wrapped script with params.Regular exposed as `input`.
func (e *Executor) Execute(ctx context.Context, params tool.Parameters) (map[string]schema.Value, error) {
	if strings.TrimSpace(e.code) == "" {
		return nil, fmt.Errorf("script: empty function body")
	}

	vm := goja.New()
	setupGlobals(vm)
	vm.Set("input", toPlainMap(params.Regular))

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var interruptOnce sync.Once
	go func() {
		<-ctx.Done()
		interruptOnce.Do(func() { vm.Interrupt("execution timeout") })
	}()

	program, err := goja.Compile("function.js", wrapCode(e.code), false)
	if err != nil {
		return nil, fmt.Errorf("script: compiling function: %w", sanitizeError(err))
	}

	result, err := vm.RunProgram(program)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("script: execution timed out after %s", e.timeout)
		}
		return nil, fmt.Errorf("script: running function: %w", sanitizeError(err))
	}

	return extractResult(result)
}

// setupGlobals exists as the single place a future allowlisted global
// would be added to the runtime. A bare goja.Runtime already has no
// require/fetch/process/filesystem access, so this is a no-op today.
func setupGlobals(vm *goja.Runtime) {
	_ = vm
}

// wrapCode mirrors the original block sandbox's convention: code
// defining its own `function execute(input)` is invoked directly, bare
// code is treated as the body of an anonymous function.
func wrapCode(code string) string {
	if strings.Contains(code, "function execute") {
		return fmt.Sprintf(`
%s

(function() {
	return execute(input);
})();
`, code)
	}

	return fmt.Sprintf(`
(function() {
	%s
})();
`, code)
}

// extractResult converts a goja return value to engine Values. Object
// results are used as-is; any other return value is wrapped under a
// single "result" key so the tool always produces named outputs.
func extractResult(result goja.Value) (map[string]schema.Value, error) {
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return map[string]schema.Value{}, nil
	}

	exported := result.Export()
	if m, ok := exported.(map[string]interface{}); ok {
		out := make(map[string]schema.Value, len(m))
		for k, v := range m {
			out[k] = schema.FromInterface(v)
		}
		return out, nil
	}

	return map[string]schema.Value{"result": schema.FromInterface(exported)}, nil
}

func toPlainMap(input map[string]schema.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(input))
	for k, v := range input {
		out[k] = v.ToInterface()
	}
	return out
}

// sanitizeError strips goja's internal stack-trace noise from a compile
// or runtime error, keeping only the message a script author wrote.
func sanitizeError(err error) error {
	if exc, ok := err.(*goja.Exception); ok {
		return fmt.Errorf("%s", exc.Value().String())
	}
	return err
}
