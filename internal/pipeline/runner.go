package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/funcport/funcport/internal/progress"
)

// StepResult is what a single step reports back.
type StepResult struct {
	OK      bool
	Fatal   bool
	Message string
}

// Step is one orchestration action within a phase: either pure
// filesystem work or a call through the tool invoker.
type Step struct {
	Name string
	Run  func(ctx context.Context) StepResult
}

// PhaseResult aggregates the step outcomes of one phase.
type PhaseResult struct {
	Status     progress.Status
	ErrorCount int
	Warnings   []string
}

// Runner executes the steps of one phase in declaration order. It holds
// no durable state; persistence is the controller's job.
type Runner struct {
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes steps strictly in order. A fatal step stops the phase
// with FAILED_FATAL. A non-ok, non-fatal step is recorded as a warning
// and execution continues; in a FATAL-criticality phase any non-ok step
// is promoted to fatal. The context is checked between steps so a
// user-initiated abort stops before the next step even though it cannot
// preempt an in-flight external call.
func (r *Runner) Run(ctx context.Context, name string, criticality progress.Criticality, steps []Step) PhaseResult {
	res := PhaseResult{Status: progress.StatusSucceeded}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			res.Status = progress.StatusFailedFatal
			res.ErrorCount++
			res.Warnings = append(res.Warnings, fmt.Sprintf("aborted before step %q: %v", step.Name, err))
			r.logger.Error("phase aborted", "phase", name, "step", step.Name, "error", err)
			return res
		}

		sr := step.Run(ctx)
		if sr.OK {
			r.logger.Debug("step succeeded", "phase", name, "step", step.Name, "message", sr.Message)
			continue
		}

		res.ErrorCount++
		if sr.Fatal || criticality == progress.CriticalityFatal {
			res.Status = progress.StatusFailedFatal
			res.Warnings = append(res.Warnings, fmt.Sprintf("step %q failed: %s", step.Name, sr.Message))
			r.logger.Error("fatal step failure", "phase", name, "step", step.Name, "message", sr.Message)
			return res
		}

		res.Status = progress.StatusFailedDegraded
		res.Warnings = append(res.Warnings, fmt.Sprintf("step %q: %s", step.Name, sr.Message))
		r.logger.Warn("step degraded", "phase", name, "step", step.Name, "message", sr.Message)
	}

	return res
}
