package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FileName is the state file name inside the migration directory.
const FileName = "progress.json"

var (
	// ErrNotFound means no progress.json exists at the store's path.
	ErrNotFound = errors.New("progress state not found")
	// ErrInvalid means progress.json exists but does not satisfy the
	// state schema (truncated write, hand edit, format drift).
	ErrInvalid = errors.New("progress state invalid")
)

// stateSchema validates the shape of progress.json before it is
// unmarshaled, so resume fails cleanly on a corrupt or foreign file
// instead of resuming from garbage.
const stateSchema = `{
  "type": "object",
  "required": ["version", "id", "source_root", "started_at", "migration_root", "phases", "units", "metrics"],
  "properties": {
    "version": {"type": "string"},
    "id": {"type": "string"},
    "source_root": {"type": "string"},
    "worker_runtime": {"type": "string"},
    "started_at": {"type": "string"},
    "finished_at": {"type": "string"},
    "migration_root": {"type": "string"},
    "project_dir": {"type": "string"},
    "phases": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["index", "name", "criticality", "status"],
        "properties": {
          "index": {"type": "integer"},
          "name": {"type": "string"},
          "criticality": {"enum": ["FATAL", "DEGRADED"]},
          "status": {"enum": ["PENDING", "RUNNING", "SUCCEEDED", "FAILED_FATAL", "FAILED_DEGRADED"]},
          "started_at": {"type": "string"},
          "duration_ms": {"type": "integer"},
          "error_count": {"type": "integer"},
          "warnings": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "units": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "kind", "source_file"],
        "properties": {
          "name": {"type": "string"},
          "kind": {"type": "string"},
          "source_file": {"type": "string"}
        }
      }
    },
    "dependencies": {"type": ["array", "null"]},
    "metrics": {"type": "object"}
  }
}`

// Store reads and writes a RunState at a fixed location. There is a
// single writer (the pipeline controller); external tooling only reads.
type Store struct {
	path string
}

// NewStore returns a store for progress.json inside dir.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the absolute or relative path of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Save writes the full state atomically: marshal, write to a temp file
// next to the target, then rename. A crash mid-write never corrupts the
// last-known-good state.
func (s *Store) Save(st *RunState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to save state file: %w", err)
	}
	return nil
}

// Load reads, validates, and unmarshals the state file.
func (s *Store) Load() (*RunState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(stateSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}

	var st RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &st, nil
}
