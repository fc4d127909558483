package toolchain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testInvoker(timeout time.Duration) *Invoker {
	return NewInvoker(slog.New(slog.NewTextHandler(io.Discard, nil)), timeout)
}

func TestRunSuccess(t *testing.T) {
	res, err := testInvoker(0).Run(context.Background(), Invocation{
		Tool:   "sh",
		Args:   []string{"-c", "echo out; echo err >&2"},
		Policy: Strict,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 0 || res.Outcome != OutcomeSuccess {
		t.Errorf("Expected success, got exit=%d outcome=%s", res.ExitCode, res.Outcome)
	}
	if !strings.Contains(res.Stdout, "out") {
		t.Errorf("Expected stdout captured, got %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "err") {
		t.Errorf("Expected stderr captured, got %q", res.Stderr)
	}
}

func TestRunPolicyClassification(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		want    Outcome
	}{
		{"strict non-zero is failure", Strict, OutcomeFailure},
		{"tolerant non-zero is warning", Tolerant, OutcomeWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := testInvoker(0).Run(context.Background(), Invocation{
				Tool:   "sh",
				Args:   []string{"-c", "exit 3"},
				Policy: tt.policy,
			})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if res.ExitCode != 3 {
				t.Errorf("Expected exit code 3, got %d", res.ExitCode)
			}
			if res.Outcome != tt.want {
				t.Errorf("Expected outcome %s, got %s", tt.want, res.Outcome)
			}
		})
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := testInvoker(0).Run(context.Background(), Invocation{
		Tool:   "funcport-this-tool-does-not-exist",
		Policy: Tolerant,
	})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Expected ErrToolNotFound, got %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	res, err := testInvoker(100*time.Millisecond).Run(context.Background(), Invocation{
		Tool:   "sh",
		Args:   []string{"-c", "sleep 5"},
		Policy: Tolerant,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.TimedOut {
		t.Fatal("Expected timed-out result")
	}
	if res.Outcome != OutcomeFailure {
		t.Errorf("Timeout must be a failure even under tolerant policy, got %s", res.Outcome)
	}
}

func TestRunRespectsWorkingDir(t *testing.T) {
	dir := t.TempDir()
	res, err := testInvoker(0).Run(context.Background(), Invocation{
		Tool:   "pwd",
		Dir:    dir,
		Policy: Strict,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(res.Stdout, dir) {
		t.Errorf("Expected pwd output to contain %q, got %q", dir, res.Stdout)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testInvoker(0).Run(ctx, Invocation{Tool: "sh", Args: []string{"-c", "true"}})
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestCheckTools(t *testing.T) {
	if err := CheckTools("sh"); err != nil {
		t.Fatalf("Expected sh to be found: %v", err)
	}
	err := CheckTools("sh", "funcport-this-tool-does-not-exist")
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Expected ErrToolNotFound, got %v", err)
	}
}
