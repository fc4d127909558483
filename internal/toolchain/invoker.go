// Package toolchain wraps external tool invocations. The migration
// pipeline shells out to two opaque collaborators (the Functions Core
// Tools CLI and Maven); this package runs them synchronously, captures
// their output, and classifies exit codes according to a per-call policy.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// ErrToolNotFound indicates the tool binary could not be resolved on
// PATH. A missing toolchain is never tolerable, whatever the policy.
var ErrToolNotFound = errors.New("tool not found on PATH")

// Policy selects how a non-zero exit code is classified.
type Policy int

const (
	// Strict treats any non-zero exit as a failure.
	Strict Policy = iota
	// Tolerant logs a non-zero exit as a warning and reports
	// success-with-warning. Some scaffolding calls are known to exit
	// non-zero on benign duplicate-creation races.
	Tolerant
)

func (p Policy) String() string {
	if p == Tolerant {
		return "tolerant"
	}
	return "strict"
}

// Outcome is the classified result of an invocation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeWarning
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeWarning:
		return "warning"
	default:
		return "failure"
	}
}

// Invocation describes one external tool call.
type Invocation struct {
	Tool   string
	Args   []string
	Dir    string
	Policy Policy
}

// Result captures everything observed from the subprocess.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Outcome  Outcome
	Duration time.Duration
	TimedOut bool
}

// Invoker runs external tools with a shared per-invocation timeout and
// logs every call to the run's log sink.
type Invoker struct {
	logger  *slog.Logger
	timeout time.Duration
}

// DefaultTimeout bounds a single external tool call. The original
// orchestration ran tools with no deadline at all; a configurable
// timeout is the safer default.
const DefaultTimeout = 10 * time.Minute

func NewInvoker(logger *slog.Logger, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{logger: logger, timeout: timeout}
}

// Run executes the invocation and waits for it to finish. A non-nil
// error is returned only for conditions that must abort the enclosing
// phase regardless of policy (missing binary, cancelled context); exit
// codes are classified into Result.Outcome instead.
func (inv *Invoker) Run(ctx context.Context, call Invocation) (Result, error) {
	if _, err := exec.LookPath(call.Tool); err != nil {
		return Result{Outcome: OutcomeFailure}, fmt.Errorf("%w: %s", ErrToolNotFound, call.Tool)
	}
	if err := ctx.Err(); err != nil {
		return Result{Outcome: OutcomeFailure}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, call.Tool, call.Args...)
	cmd.Dir = call.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		res.TimedOut = true
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Failed to start at all (permissions, exec format, ...).
			inv.logInvocation(call, res)
			return res, fmt.Errorf("running %s: %w", call.Tool, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	res.Outcome = classify(res, call.Policy)
	inv.logInvocation(call, res)
	return res, nil
}

// classify applies the invocation policy. A timeout is a failure under
// either policy.
func classify(res Result, policy Policy) Outcome {
	if res.TimedOut {
		return OutcomeFailure
	}
	if res.ExitCode == 0 {
		return OutcomeSuccess
	}
	if policy == Tolerant {
		return OutcomeWarning
	}
	return OutcomeFailure
}

func (inv *Invoker) logInvocation(call Invocation, res Result) {
	inv.logger.Info("tool invocation",
		"tool", call.Tool,
		"args", fmt.Sprintf("%v", call.Args),
		"dir", call.Dir,
		"policy", call.Policy.String(),
		"exit_code", res.ExitCode,
		"outcome", res.Outcome.String(),
		"duration", res.Duration.Round(time.Millisecond).String(),
		"timed_out", res.TimedOut,
	)
}

// CheckTools verifies every required binary is resolvable on PATH.
// Called before Phase 0 so a missing toolchain aborts the run before
// any output directory or state file is created.
func CheckTools(tools ...string) error {
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%w: %s", ErrToolNotFound, tool)
		}
	}
	return nil
}
