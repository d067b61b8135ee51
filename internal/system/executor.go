package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// waitDelay bounds how long Run waits on output pipes held open by
// grandchildren after the capability itself was killed.
const waitDelay = 2 * time.Second

// Result is the fully buffered outcome of a capability that was started.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	Success  bool
	ExitCode int
}

// Err returns nil on success, otherwise an execution failure whose message
// is the captured stderr.
func (r *Result) Err(capability Capability) error {
	if r.Success {
		return nil
	}
	msg := strings.TrimSpace(string(r.Stderr))
	if msg == "" {
		msg = fmt.Sprintf("%s exited with status %d", capability, r.ExitCode)
	}
	return &Error{Kind: KindExecutionFailure, Message: msg}
}

// Invoker runs a capability with the given variables. A non-nil error means
// the process could not be run to completion; a process that ran and failed
// is reported through Result.Success.
type Invoker interface {
	Invoke(ctx context.Context, capability Capability, vars Vars) (*Result, error)
}

// Observer receives the duration and outcome of every invocation
type Observer interface {
	ObserveCapability(capability string, duration time.Duration, outcome string)
}

// Executor handles execution of external commands
type Executor struct {
	capabilities Capabilities
	timeout      time.Duration
	observer     Observer
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithTimeout bounds every invocation. Zero disables the bound.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithObserver reports invocation timings to o
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		e.observer = o
	}
}

// NewExecutor creates a new executor
func NewExecutor(capabilities Capabilities, opts ...ExecutorOption) *Executor {
	e := &Executor{capabilities: capabilities}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invoke expands the capability template with vars and runs it
func (e *Executor) Invoke(ctx context.Context, capability Capability, vars Vars) (*Result, error) {
	tmpl, ok := e.capabilities[capability]
	if !ok {
		return nil, NewError(KindUnavailable, string(capability), "capability is not configured", nil)
	}

	name, args, err := tmpl.Expand(vars)
	if err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	return e.runCmd(ctx, capability, cmd)
}

func (e *Executor) runCmd(ctx context.Context, capability Capability, cmd *exec.Cmd) (*Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("capability", string(capability)).Str("command", cmd.String()).Msg("executing capability")

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	outcome, err := classify(ctx, capability, runErr, result)
	e.observe(capability, elapsed, outcome)

	event := log.Debug()
	if outcome != "success" {
		event = log.Warn()
	}
	event.Str("capability", string(capability)).
		Str("outcome", outcome).
		Int("exit_code", result.ExitCode).
		Dur("duration", elapsed).
		Msg("capability finished")

	if err != nil {
		return nil, err
	}
	return result, nil
}

func classify(ctx context.Context, capability Capability, runErr error, result *Result) (string, error) {
	if runErr == nil {
		result.Success = true
		return "success", nil
	}

	// A killed process also surfaces as *exec.ExitError, so the context is
	// checked first.
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout", NewError(KindTimeout, string(capability), "timed out", ctx.Err())
	case errors.Is(ctx.Err(), context.Canceled):
		return "canceled", NewError(KindCanceled, string(capability), "canceled", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return "failure", nil
	}

	return "unavailable", NewError(KindUnavailable, string(capability), "", runErr)
}

func (e *Executor) observe(capability Capability, d time.Duration, outcome string) {
	if e.observer != nil {
		e.observer.ObserveCapability(string(capability), d, outcome)
	}
}

// CommandExists checks if a command is available in PATH
func (e *Executor) CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// CheckDependencies verifies that the executables behind the given
// capabilities (all of them when none are named) can be found
func (e *Executor) CheckDependencies(capabilities ...Capability) error {
	caps := e.capabilities
	if len(capabilities) > 0 {
		caps = make(Capabilities, len(capabilities))
		for _, c := range capabilities {
			if tmpl, ok := e.capabilities[c]; ok {
				caps[c] = tmpl
			}
		}
	}

	var missing []string
	for _, dep := range caps.Commands() {
		if !e.CommandExists(dep) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required commands: %s",
			strings.Join(missing, ", "))
	}
	return nil
}
