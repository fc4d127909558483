// Package config builds the single RunConfig value threaded through the
// pipeline. Values come from funcport.toml (discovered by walking up
// from the working directory), a .env file, FUNCPORT_* environment
// variables, and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the project-level configuration file.
const ConfigFileName = "funcport.toml"

// FileConfig mirrors funcport.toml.
type FileConfig struct {
	WorkerRuntime  string `toml:"worker_runtime"`
	ScaffoldTool   string `toml:"scaffold_tool"`
	BuildTool      string `toml:"build_tool"`
	ToolTimeout    string `toml:"tool_timeout"`
	MappingsPath   string `toml:"mappings_path"`
	HistoryPath    string `toml:"history_path"`
	SkipBuild      bool   `toml:"skip_build"`
	ConfigFilePath string `toml:"-"`
}

// LoadFile searches for funcport.toml starting at the current directory
// and walking up to a project-root marker. A missing file is not an
// error; defaults apply.
func LoadFile() (*FileConfig, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return loadFileFrom(startDir)
}

func loadFileFrom(startDir string) (*FileConfig, error) {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, err
			}

			var fc FileConfig
			if err := toml.Unmarshal(data, &fc); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", configPath, err)
			}
			fc.ConfigFilePath = configPath
			return &fc, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return &FileConfig{}, nil
}

// isProjectRoot checks for common project-root markers so the walk does
// not escape into unrelated parent directories.
func isProjectRoot(dir string) bool {
	for _, marker := range []string{".git", "go.mod", "package.json"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	for _, pattern := range []string{"*.sln", "*.csproj"} {
		if matches, _ := filepath.Glob(filepath.Join(dir, pattern)); len(matches) > 0 {
			return true
		}
	}
	return false
}

// RunConfig is the fully-resolved configuration for one migration run.
// Constructed once at startup and passed by value; no ambient globals.
type RunConfig struct {
	SourceRoot    string
	WorkerRuntime string
	ScaffoldTool  string
	BuildTool     string
	ToolTimeout   time.Duration
	MappingsPath  string
	HistoryPath   string
	SkipBuild     bool
	DryRun        bool
	Verbose       bool
}

// Defaults.
const (
	DefaultWorkerRuntime = "java"
	DefaultScaffoldTool  = "func"
	DefaultBuildTool     = "mvn"
	DefaultToolTimeout   = 10 * time.Minute
)

// Resolve merges file config, environment overrides, and defaults into
// a RunConfig for the given source root.
func Resolve(fc *FileConfig, sourceRoot string) (*RunConfig, error) {
	if fc == nil {
		fc = &FileConfig{}
	}

	rc := &RunConfig{
		SourceRoot:    sourceRoot,
		WorkerRuntime: firstNonEmpty(os.Getenv("FUNCPORT_WORKER_RUNTIME"), fc.WorkerRuntime, DefaultWorkerRuntime),
		ScaffoldTool:  firstNonEmpty(os.Getenv("FUNCPORT_SCAFFOLD_TOOL"), fc.ScaffoldTool, DefaultScaffoldTool),
		BuildTool:     firstNonEmpty(os.Getenv("FUNCPORT_BUILD_TOOL"), fc.BuildTool, DefaultBuildTool),
		MappingsPath:  firstNonEmpty(os.Getenv("FUNCPORT_MAPPINGS_PATH"), fc.MappingsPath),
		HistoryPath:   firstNonEmpty(os.Getenv("FUNCPORT_HISTORY_PATH"), fc.HistoryPath),
		SkipBuild:     fc.SkipBuild,
		ToolTimeout:   DefaultToolTimeout,
	}

	if raw := firstNonEmpty(os.Getenv("FUNCPORT_TOOL_TIMEOUT"), fc.ToolTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid tool_timeout %q: %w", raw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("tool_timeout must be positive, got %q", raw)
		}
		rc.ToolTimeout = d
	}

	if rc.HistoryPath == "" {
		rc.HistoryPath = DefaultHistoryPath()
	}

	return rc, nil
}

// DefaultHistoryPath is the run ledger location when not configured.
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".funcport-history.db"
	}
	return filepath.Join(home, ".funcport", "history.db")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
