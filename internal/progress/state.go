// Package progress owns the durable run state for a migration. The
// state is serialized to progress.json inside the migration output
// directory after every phase transition; it is the only machine-readable
// contract external supervisors poll.
package progress

import (
	"time"

	"github.com/funcport/funcport/internal/extract"
)

// Criticality says whether a phase's failure aborts the run.
type Criticality string

const (
	CriticalityFatal    Criticality = "FATAL"
	CriticalityDegraded Criticality = "DEGRADED"
)

// Status is a phase's lifecycle state. Transitions are monotonic: a
// phase never re-enters PENDING once started within a run.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusRunning        Status = "RUNNING"
	StatusSucceeded      Status = "SUCCEEDED"
	StatusFailedFatal    Status = "FAILED_FATAL"
	StatusFailedDegraded Status = "FAILED_DEGRADED"
)

// Terminal reports whether the status is an end state for a phase.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailedFatal || s == StatusFailedDegraded
}

// Phase is one named step of the fixed pipeline, with its bookkeeping.
type Phase struct {
	Index       int         `json:"index"`
	Name        string      `json:"name"`
	Criticality Criticality `json:"criticality"`
	Status      Status      `json:"status"`
	StartedAt   time.Time   `json:"started_at,omitzero"`
	DurationMs  int64       `json:"duration_ms"`
	ErrorCount  int         `json:"error_count"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// Metrics are the counters populated incrementally by later phases.
type Metrics struct {
	FilesTouched      int `json:"files_touched"`
	UnitsScaffolded   int `json:"units_scaffolded"`
	UnitsFailed       int `json:"units_failed"`
	CompilationErrors int `json:"compilation_errors"`
	TestsPassed       int `json:"tests_passed"`
	TestsFailed       int `json:"tests_failed"`
}

// RunState is the top-level persisted record for one migration run.
type RunState struct {
	Version       string                     `json:"version"`
	ID            string                     `json:"id"`
	SourceRoot    string                     `json:"source_root"`
	WorkerRuntime string                     `json:"worker_runtime"`
	StartedAt     time.Time                  `json:"started_at"`
	FinishedAt    time.Time                  `json:"finished_at,omitzero"`
	MigrationRoot string                     `json:"migration_root"`
	ProjectDir    string                     `json:"project_dir,omitempty"`
	Phases        []Phase                    `json:"phases"`
	Units         []extract.Unit             `json:"units"`
	Dependencies  []extract.DependencyRecord `json:"dependencies"`
	Metrics       Metrics                    `json:"metrics"`
}

// StateVersion is the progress.json format version.
const StateVersion = "1"

// FirstUnfinished returns the index of the first phase that has not
// SUCCEEDED, or -1 when every phase succeeded. This is the resume point.
func (s *RunState) FirstUnfinished() int {
	for i := range s.Phases {
		if s.Phases[i].Status != StatusSucceeded {
			return i
		}
	}
	return -1
}

// Fatal reports whether any phase failed fatally.
func (s *RunState) Fatal() bool {
	for i := range s.Phases {
		if s.Phases[i].Status == StatusFailedFatal {
			return true
		}
	}
	return false
}

// Degraded reports whether any phase finished degraded.
func (s *RunState) Degraded() bool {
	for i := range s.Phases {
		if s.Phases[i].Status == StatusFailedDegraded {
			return true
		}
	}
	return false
}

// Finished reports whether the run reached an end state: a fatal phase
// failure, or every phase terminal.
func (s *RunState) Finished() bool {
	if s.Fatal() {
		return true
	}
	for i := range s.Phases {
		if !s.Phases[i].Status.Terminal() {
			return false
		}
	}
	return len(s.Phases) > 0
}
