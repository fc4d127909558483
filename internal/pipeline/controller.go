// Package pipeline drives the fixed, ordered phase list of a migration
// run. The controller owns continuation decisions (FATAL phases abort,
// DEGRADED phases continue) and persists the run state after every
// phase transition; the runner executes the steps of one phase; the
// steps themselves live in phases.go.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/funcport/funcport/internal/config"
	"github.com/funcport/funcport/internal/extract"
	"github.com/funcport/funcport/internal/logging"
	"github.com/funcport/funcport/internal/progress"
	"github.com/funcport/funcport/internal/toolchain"
)

// ErrFatalPhase is returned when a FATAL-criticality phase fails and
// aborts the run. The persisted state still describes the failure.
var ErrFatalPhase = errors.New("fatal phase failure")

// Controller executes the migration pipeline for one run.
type Controller struct {
	cfg     *config.RunConfig
	logger  *slog.Logger
	sink    *logging.Sink
	invoker *toolchain.Invoker
	runner  *Runner
	now     func() time.Time
}

// New builds a controller. sink may be nil when no run log file is
// wanted (tests, dry runs).
func New(cfg *config.RunConfig, logger *slog.Logger, sink *logging.Sink) *Controller {
	return &Controller{
		cfg:     cfg,
		logger:  logger,
		sink:    sink,
		invoker: toolchain.NewInvoker(logger, cfg.ToolTimeout),
		runner:  NewRunner(logger),
		now:     time.Now,
	}
}

// Preflight verifies the run's preconditions: the source root exists
// and every required tool is on PATH. It runs before Phase 0 so a
// missing toolchain aborts before any directory or state file exists.
func (c *Controller) Preflight() error {
	info, err := os.Stat(c.cfg.SourceRoot)
	if err != nil {
		return fmt.Errorf("source root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source root %s is not a directory", c.cfg.SourceRoot)
	}

	tools := []string{c.cfg.ScaffoldTool}
	if !c.cfg.SkipBuild {
		tools = append(tools, c.cfg.BuildTool)
	}
	return toolchain.CheckTools(tools...)
}

// Run executes the whole pipeline from scratch. The returned state is
// non-nil whenever the run got far enough to create its migration
// directory; the error is non-nil only for precondition failures and
// fatal phase failures.
func (c *Controller) Run(ctx context.Context) (*progress.RunState, error) {
	if err := c.Preflight(); err != nil {
		return nil, err
	}

	// Extraction happens before any output exists: a tree with zero
	// migratable units must abort without leaving a migration directory
	// or state file behind.
	extraction, err := extract.Scan(c.cfg.SourceRoot, c.logger)
	if err != nil {
		return nil, err
	}
	for _, anomaly := range extraction.Anomalies {
		c.logger.Warn("extraction anomaly", "detail", anomaly)
	}

	started := c.now()
	stamp := started.Format("20060102-150405")
	st := &progress.RunState{
		Version:       progress.StateVersion,
		ID:            uuid.NewString(),
		SourceRoot:    c.cfg.SourceRoot,
		WorkerRuntime: c.cfg.WorkerRuntime,
		StartedAt:     started,
		MigrationRoot: filepath.Join(c.cfg.SourceRoot, "migration-"+stamp),
		Phases:        NewPhases(),
		Units:         extraction.Units,
		Dependencies:  extraction.Dependencies,
	}

	if err := os.MkdirAll(st.MigrationRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating migration directory: %w", err)
	}
	c.attachRunLog(st.MigrationRoot, stamp)

	c.logger.Info("migration run starting",
		"id", st.ID,
		"source", st.SourceRoot,
		"units", len(st.Units),
		"migration_root", st.MigrationRoot)

	return c.execute(ctx, st, 0)
}

// Resume re-enters the pipeline against a previously persisted state,
// skipping every phase that already SUCCEEDED. Degraded and fatal
// phases are re-executed.
func (c *Controller) Resume(ctx context.Context, st *progress.RunState) (*progress.RunState, error) {
	if err := c.Preflight(); err != nil {
		return st, err
	}

	start := st.FirstUnfinished()
	if start < 0 {
		c.logger.Info("nothing to resume; every phase already succeeded", "id", st.ID)
		return st, nil
	}

	stamp := st.StartedAt.Format("20060102-150405")
	c.attachRunLog(st.MigrationRoot, stamp)
	c.logger.Info("resuming migration run", "id", st.ID, "phase", st.Phases[start].Name)

	// Degraded counters from the previous attempt of re-run phases
	// would double-count; reset the ones later phases rebuild.
	if start <= 3 {
		st.Metrics.UnitsScaffolded = 0
		st.Metrics.UnitsFailed = 0
	}
	if start <= 6 {
		st.Metrics.CompilationErrors = 0
		st.Metrics.TestsPassed = 0
		st.Metrics.TestsFailed = 0
	}
	st.FinishedAt = time.Time{}

	return c.execute(ctx, st, start)
}

func (c *Controller) execute(ctx context.Context, st *progress.RunState, startIdx int) (*progress.RunState, error) {
	store := progress.NewStore(st.MigrationRoot)
	r := &run{cfg: c.cfg, st: st, invoker: c.invoker, logger: c.logger}
	r.derivePaths()

	defs := phaseDefs()
	for i := startIdx; i < len(defs); i++ {
		ph := &st.Phases[i]
		if ph.Status == progress.StatusSucceeded {
			continue
		}

		ph.Status = progress.StatusRunning
		ph.StartedAt = c.now()
		if err := store.Save(st); err != nil {
			return st, fmt.Errorf("persisting state: %w", err)
		}
		c.logger.Info("phase starting", "index", i, "phase", ph.Name)

		res := c.runner.Run(ctx, ph.Name, ph.Criticality, defs[i].steps(r))

		ph.Status = res.Status
		ph.DurationMs = c.now().Sub(ph.StartedAt).Milliseconds()
		ph.ErrorCount = res.ErrorCount
		ph.Warnings = res.Warnings
		if res.Status == progress.StatusFailedFatal {
			st.FinishedAt = c.now()
		}
		if err := store.Save(st); err != nil {
			return st, fmt.Errorf("persisting state: %w", err)
		}
		c.logger.Info("phase finished",
			"index", i, "phase", ph.Name, "status", string(ph.Status),
			"duration_ms", ph.DurationMs, "errors", ph.ErrorCount)

		if res.Status == progress.StatusFailedFatal {
			return st, fmt.Errorf("%w: %s", ErrFatalPhase, ph.Name)
		}
	}

	st.FinishedAt = c.now()
	if err := store.Save(st); err != nil {
		return st, fmt.Errorf("persisting state: %w", err)
	}
	c.logger.Info("migration run finished", "id", st.ID, "degraded", st.Degraded())
	return st, nil
}

// attachRunLog mirrors the log stream into the migration directory.
// Failure to open the log file is reported but never aborts the run.
func (c *Controller) attachRunLog(migrationRoot, stamp string) {
	if c.sink == nil {
		return
	}
	logPath := filepath.Join(migrationRoot, "migration-"+stamp+".log")
	if err := c.sink.AttachFile(logPath); err != nil {
		c.logger.Warn("could not open run log file", "path", logPath, "error", err)
	}
}
