package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const exampleConfig = `worker_runtime = "java"
build_tool = "mvn"
tool_timeout = "2m"
skip_build = true
`

func TestLoadFileInCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	fc, err := loadFileFrom(dir)
	if err != nil {
		t.Fatalf("loadFileFrom failed: %v", err)
	}
	if fc.WorkerRuntime != "java" {
		t.Errorf("Expected worker_runtime java, got %q", fc.WorkerRuntime)
	}
	if fc.ToolTimeout != "2m" {
		t.Errorf("Expected tool_timeout 2m, got %q", fc.ToolTimeout)
	}
	if !fc.SkipBuild {
		t.Error("Expected skip_build true")
	}
	if fc.ConfigFilePath != configPath {
		t.Errorf("Expected ConfigFilePath %q, got %q", configPath, fc.ConfigFilePath)
	}
}

func TestLoadFileWalksUpToParent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(exampleConfig), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("Failed to create nested dir: %v", err)
	}

	fc, err := loadFileFrom(nested)
	if err != nil {
		t.Fatalf("loadFileFrom failed: %v", err)
	}
	if fc.WorkerRuntime != "java" {
		t.Errorf("Expected config found in parent, got %+v", fc)
	}
}

func TestLoadFileStopsAtProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte(exampleConfig), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	project := filepath.Join(root, "project")
	if err := os.MkdirAll(filepath.Join(project, ".git"), 0o755); err != nil {
		t.Fatalf("Failed to create project marker: %v", err)
	}

	fc, err := loadFileFrom(project)
	if err != nil {
		t.Fatalf("loadFileFrom failed: %v", err)
	}
	if fc.ConfigFilePath != "" {
		t.Errorf("Expected walk to stop at project root, found %q", fc.ConfigFilePath)
	}
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("Failed to create marker: %v", err)
	}
	fc, err := loadFileFrom(dir)
	if err != nil {
		t.Fatalf("Expected no error for missing config, got %v", err)
	}
	if fc.ConfigFilePath != "" {
		t.Errorf("Expected empty config, got %+v", fc)
	}
}

func TestResolveDefaults(t *testing.T) {
	rc, err := Resolve(&FileConfig{}, "/src/app")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rc.WorkerRuntime != DefaultWorkerRuntime {
		t.Errorf("Expected default runtime, got %q", rc.WorkerRuntime)
	}
	if rc.ScaffoldTool != DefaultScaffoldTool || rc.BuildTool != DefaultBuildTool {
		t.Errorf("Expected default tools, got %q/%q", rc.ScaffoldTool, rc.BuildTool)
	}
	if rc.ToolTimeout != DefaultToolTimeout {
		t.Errorf("Expected default timeout, got %v", rc.ToolTimeout)
	}
	if rc.HistoryPath == "" {
		t.Error("Expected a default history path")
	}
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv("FUNCPORT_WORKER_RUNTIME", "python")
	t.Setenv("FUNCPORT_TOOL_TIMEOUT", "90s")

	rc, err := Resolve(&FileConfig{WorkerRuntime: "java", ToolTimeout: "2m"}, "/src/app")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rc.WorkerRuntime != "python" {
		t.Errorf("Expected env override, got %q", rc.WorkerRuntime)
	}
	if rc.ToolTimeout != 90*time.Second {
		t.Errorf("Expected 90s timeout, got %v", rc.ToolTimeout)
	}
}

func TestResolveRejectsBadTimeout(t *testing.T) {
	tests := []string{"not-a-duration", "-1m", "0s"}
	for _, raw := range tests {
		if _, err := Resolve(&FileConfig{ToolTimeout: raw}, "/src/app"); err == nil {
			t.Errorf("Expected error for timeout %q", raw)
		}
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FUNCPORT_BUILD_TOOL=gradle\n"), 0o600); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Setenv("FUNCPORT_BUILD_TOOL", "") // register cleanup
	os.Unsetenv("FUNCPORT_BUILD_TOOL")

	if err := LoadDotenv(dir); err != nil {
		t.Fatalf("LoadDotenv failed: %v", err)
	}
	if got := os.Getenv("FUNCPORT_BUILD_TOOL"); got != "gradle" {
		t.Errorf("Expected gradle from .env, got %q", got)
	}

	// Missing .env is fine.
	if err := LoadDotenv(t.TempDir()); err != nil {
		t.Errorf("Expected no error for missing .env, got %v", err)
	}
}
