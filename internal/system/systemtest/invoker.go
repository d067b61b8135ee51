// Package systemtest provides a scriptable capability invoker for tests.
package systemtest

import (
	"context"
	"sync"

	"github.com/unitexe/skopos/internal/system"
)

// Call records one invocation
type Call struct {
	Capability system.Capability
	Vars       system.Vars
}

// HandlerFunc decides the outcome of an invocation
type HandlerFunc func(capability system.Capability, vars system.Vars) (*system.Result, error)

// FakeInvoker records invocations and answers them with Handler. A nil
// Handler succeeds with empty output.
type FakeInvoker struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []Call
}

func (f *FakeInvoker) Invoke(ctx context.Context, capability system.Capability, vars system.Vars) (*system.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Capability: capability, Vars: vars})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, system.NewError(system.KindCanceled, string(capability), "canceled", err)
	}
	if f.Handler == nil {
		return Succeed(""), nil
	}
	return f.Handler(capability, vars)
}

// Calls returns a copy of every recorded call
func (f *FakeInvoker) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsFor returns the recorded calls for one capability
func (f *FakeInvoker) CallsFor(capability system.Capability) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Capability == capability {
			out = append(out, c)
		}
	}
	return out
}

// Succeed is a zero exit with the given stdout
func Succeed(stdout string) *system.Result {
	return &system.Result{Stdout: []byte(stdout), Success: true}
}

// Fail is a non-zero exit with the given stderr
func Fail(code int, stderr string) *system.Result {
	return &system.Result{Stderr: []byte(stderr), ExitCode: code}
}
