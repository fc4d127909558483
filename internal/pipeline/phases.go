package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/funcport/funcport/internal/config"
	"github.com/funcport/funcport/internal/extract"
	"github.com/funcport/funcport/internal/mapping"
	"github.com/funcport/funcport/internal/progress"
	"github.com/funcport/funcport/internal/report"
	"github.com/funcport/funcport/internal/toolchain"
)

// kindTemplates maps a unit's trigger kind to the scaffolding CLI's
// template name, one entry per supported kind.
var kindTemplates = map[extract.Kind]string{
	extract.KindHTTP:       "HttpTrigger",
	extract.KindTimer:      "TimerTrigger",
	extract.KindQueue:      "QueueTrigger",
	extract.KindBlob:       "BlobTrigger",
	extract.KindChangeFeed: "CosmosDBTrigger",
	extract.KindTopic:      "ServiceBusTopicTrigger",
}

// DependencyManifestName is the generated build-manifest fragment
// holding the mapped Maven dependencies.
const DependencyManifestName = "funcport-dependencies.xml"

// run carries the per-run mutable context shared by phase steps.
type run struct {
	cfg     *config.RunConfig
	st      *progress.RunState
	invoker *toolchain.Invoker
	logger  *slog.Logger

	backupDir  string
	projectDir string
	handoffDir string
}

func (r *run) derivePaths() {
	base := filepath.Base(r.st.SourceRoot)
	r.backupDir = filepath.Join(r.st.MigrationRoot, base+"-backup")
	r.projectDir = filepath.Join(r.st.MigrationRoot, base+"-"+r.st.WorkerRuntime)
	r.handoffDir = filepath.Join(r.st.MigrationRoot, "handoff")
	r.st.ProjectDir = r.projectDir
}

// phaseDef is one entry of the fixed pipeline. The step list is built
// lazily so steps can close over state produced by earlier phases.
type phaseDef struct {
	name        string
	criticality progress.Criticality
	steps       func(r *run) []Step
}

func phaseDefs() []phaseDef {
	return []phaseDef{
		{"Preparation", progress.CriticalityFatal, preparationSteps},
		{"BaseScaffold", progress.CriticalityFatal, baseScaffoldSteps},
		{"DependencyMapping", progress.CriticalityDegraded, dependencyMappingSteps},
		{"PerUnitScaffold", progress.CriticalityDegraded, perUnitScaffoldSteps},
		{"CodeTranslationHandoff", progress.CriticalityDegraded, codeHandoffSteps},
		{"TestTranslationHandoff", progress.CriticalityDegraded, testHandoffSteps},
		{"Build&Validate", progress.CriticalityDegraded, buildValidateSteps},
		{"ReportGeneration", progress.CriticalityDegraded, reportSteps},
	}
}

// NewPhases returns the pipeline's phase records in execution order,
// all PENDING.
func NewPhases() []progress.Phase {
	defs := phaseDefs()
	phases := make([]progress.Phase, len(defs))
	for i, def := range defs {
		phases[i] = progress.Phase{
			Index:       i,
			Name:        def.name,
			Criticality: def.criticality,
			Status:      progress.StatusPending,
		}
	}
	return phases
}

// Describe returns a human-readable plan of the pipeline, used by
// --dry-run.
func Describe() []string {
	defs := phaseDefs()
	out := make([]string, len(defs))
	for i, def := range defs {
		out[i] = fmt.Sprintf("%d. %s (%s)", i, def.name, string(def.criticality))
	}
	return out
}

// Phase 0 — Preparation. Creates the migration layout, backs up the
// source tree, and records the extraction results in the run state.

func preparationSteps(r *run) []Step {
	return []Step{
		{Name: "create migration layout", Run: func(ctx context.Context) StepResult {
			for _, dir := range []string{r.backupDir, r.handoffDir} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return StepResult{Fatal: true, Message: err.Error()}
				}
			}
			return StepResult{OK: true}
		}},
		{Name: "back up source files", Run: func(ctx context.Context) StepResult {
			copied, err := backupSource(r.st.SourceRoot, r.backupDir)
			if err != nil {
				return StepResult{Fatal: true, Message: err.Error()}
			}
			r.st.Metrics.FilesTouched += copied
			return StepResult{OK: true, Message: fmt.Sprintf("backed up %d files", copied)}
		}},
		{Name: "record discovered units", Run: func(ctx context.Context) StepResult {
			r.logger.Info("extraction recorded",
				"units", len(r.st.Units), "dependencies", len(r.st.Dependencies))
			return StepResult{OK: true}
		}},
	}
}

// backupSource copies source and manifest files into the backup
// directory, preserving relative paths.
func backupSource(root, backupDir string) (int, error) {
	copied := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "bin" || name == "obj" || name == ".git" || strings.HasPrefix(name, "migration-") {
				return filepath.SkipDir
			}
			return nil
		}
		if !backupWorthy(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(backupDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

func backupWorthy(name string) bool {
	switch {
	case strings.HasSuffix(name, ".cs"), strings.HasSuffix(name, ".csproj"):
		return true
	case name == "host.json", name == "local.settings.json":
		return true
	}
	return false
}

// Phase 1 — BaseScaffold. One project-level call to the scaffolding CLI.

func baseScaffoldSteps(r *run) []Step {
	return []Step{
		{Name: "scaffold base project", Run: func(ctx context.Context) StepResult {
			res, err := r.invoker.Run(ctx, toolchain.Invocation{
				Tool:   r.cfg.ScaffoldTool,
				Args:   []string{"init", filepath.Base(r.projectDir), "--worker-runtime", r.st.WorkerRuntime},
				Dir:    r.st.MigrationRoot,
				Policy: toolchain.Strict,
			})
			if err != nil {
				return StepResult{Fatal: true, Message: err.Error()}
			}
			if res.Outcome == toolchain.OutcomeFailure {
				return StepResult{Message: fmt.Sprintf("scaffolding CLI exited %d: %s", res.ExitCode, firstLine(res.Stderr))}
			}
			// The CLI normally creates the project directory; make sure
			// it exists so later phases have somewhere to write.
			if err := os.MkdirAll(r.projectDir, 0o755); err != nil {
				return StepResult{Fatal: true, Message: err.Error()}
			}
			return StepResult{OK: true}
		}},
	}
}

// Phase 2 — DependencyMapping.

func dependencyMappingSteps(r *run) []Step {
	return []Step{
		{Name: "map package references", Run: func(ctx context.Context) StepResult {
			table, err := mapping.Load(r.cfg.MappingsPath)
			if err != nil {
				return StepResult{Message: err.Error()}
			}
			mapped, unmapped := table.Apply(r.st.Dependencies)
			r.st.Dependencies = mapped
			msg := fmt.Sprintf("mapped %d of %d package references", len(mapped)-unmapped, len(mapped))
			if unmapped > 0 {
				return StepResult{OK: true, Message: msg + " (rest need manual resolution)"}
			}
			return StepResult{OK: true, Message: msg}
		}},
		{Name: "write dependency manifest", Run: func(ctx context.Context) StepResult {
			if err := os.MkdirAll(r.projectDir, 0o755); err != nil {
				return StepResult{Message: err.Error()}
			}
			block := mapping.GeneratePOMDependencies(r.st.Dependencies)
			manifest := filepath.Join(r.projectDir, DependencyManifestName)
			if err := os.WriteFile(manifest, []byte(block), 0o644); err != nil {
				return StepResult{Message: err.Error()}
			}
			r.st.Metrics.FilesTouched++

			pomPath := filepath.Join(r.projectDir, "pom.xml")
			if data, err := os.ReadFile(pomPath); err == nil {
				if patched, ok := mapping.PatchPOM(string(data), r.st.Dependencies); ok {
					if err := os.WriteFile(pomPath, []byte(patched), 0o644); err != nil {
						return StepResult{Message: fmt.Sprintf("pom.xml patch failed: %v", err)}
					}
					r.st.Metrics.FilesTouched++
				}
			}
			return StepResult{OK: true}
		}},
	}
}

// Phase 3 — PerUnitScaffold. One step per unit, in name order (the unit
// list is sorted at extraction time), so a single unit's failure is an
// isolated warning.

func perUnitScaffoldSteps(r *run) []Step {
	steps := make([]Step, 0, len(r.st.Units))
	for _, unit := range r.st.Units {
		steps = append(steps, Step{
			Name: "scaffold unit " + unit.Name,
			Run: func(ctx context.Context) StepResult {
				template, ok := kindTemplates[unit.Kind]
				if !ok {
					r.st.Metrics.UnitsFailed++
					return StepResult{Message: fmt.Sprintf("no template for kind %s", unit.Kind)}
				}
				res, err := r.invoker.Run(ctx, toolchain.Invocation{
					Tool:   r.cfg.ScaffoldTool,
					Args:   []string{"new", "--name", unit.Name, "--template", template},
					Dir:    r.projectDir,
					Policy: toolchain.Tolerant,
				})
				if err != nil {
					return StepResult{Fatal: true, Message: err.Error()}
				}
				if res.Outcome != toolchain.OutcomeSuccess {
					r.st.Metrics.UnitsFailed++
					return StepResult{Message: fmt.Sprintf("unit %s: scaffolding exited %d: %s",
						unit.Name, res.ExitCode, firstLine(res.Stderr))}
				}
				r.st.Metrics.UnitsScaffolded++
				return StepResult{OK: true}
			},
		})
	}
	return steps
}

// Phase 4 — CodeTranslationHandoff. The actual C#->Java translation is
// a manual (or externally tooled) step; this phase stages the inputs.

func codeHandoffSteps(r *run) []Step {
	return []Step{
		{Name: "stage unit sources", Run: func(ctx context.Context) StepResult {
			srcDir := filepath.Join(r.handoffDir, "src")
			if err := os.MkdirAll(srcDir, 0o755); err != nil {
				return StepResult{Message: err.Error()}
			}
			staged, problems := stageFiles(unitSourceFiles(r.st.Units), srcDir)
			r.st.Metrics.FilesTouched += staged
			if len(problems) > 0 {
				return StepResult{Message: strings.Join(problems, "; ")}
			}
			return StepResult{OK: true, Message: fmt.Sprintf("staged %d source files", staged)}
		}},
		{Name: "write translation guide", Run: func(ctx context.Context) StepResult {
			guide := renderTranslationGuide(r.st)
			path := filepath.Join(r.handoffDir, "TRANSLATION_GUIDE.md")
			if err := os.WriteFile(path, []byte(guide), 0o644); err != nil {
				return StepResult{Message: err.Error()}
			}
			r.st.Metrics.FilesTouched++
			return StepResult{OK: true}
		}},
	}
}

// Phase 5 — TestTranslationHandoff.

func testHandoffSteps(r *run) []Step {
	return []Step{
		{Name: "stage test sources", Run: func(ctx context.Context) StepResult {
			testDir := filepath.Join(r.handoffDir, "tests")
			if err := os.MkdirAll(testDir, 0o755); err != nil {
				return StepResult{Message: err.Error()}
			}
			files, err := findTestFiles(r.st.SourceRoot)
			if err != nil {
				return StepResult{Message: err.Error()}
			}
			if len(files) == 0 {
				return StepResult{OK: true, Message: "no test files found in source tree"}
			}
			staged, problems := stageFiles(files, testDir)
			r.st.Metrics.FilesTouched += staged
			if len(problems) > 0 {
				return StepResult{Message: strings.Join(problems, "; ")}
			}
			return StepResult{OK: true, Message: fmt.Sprintf("staged %d test files", staged)}
		}},
	}
}

// Phase 6 — Build&Validate.

func buildValidateSteps(r *run) []Step {
	if r.cfg.SkipBuild {
		return []Step{{Name: "build skipped", Run: func(ctx context.Context) StepResult {
			return StepResult{OK: true, Message: "build and validation skipped by configuration"}
		}}}
	}

	buildStep := func(name string, collect func(output string)) Step {
		return Step{Name: name, Run: func(ctx context.Context) StepResult {
			res, err := r.invoker.Run(ctx, toolchain.Invocation{
				Tool:   r.cfg.BuildTool,
				Args:   []string{name},
				Dir:    r.projectDir,
				Policy: toolchain.Tolerant,
			})
			if err != nil {
				return StepResult{Fatal: true, Message: err.Error()}
			}
			if collect != nil {
				collect(res.Stdout + "\n" + res.Stderr)
			}
			if res.Outcome != toolchain.OutcomeSuccess {
				return StepResult{Message: fmt.Sprintf("%s %s exited %d", r.cfg.BuildTool, name, res.ExitCode)}
			}
			return StepResult{OK: true}
		}}
	}

	return []Step{
		buildStep("compile", func(output string) {
			r.st.Metrics.CompilationErrors += countCompileErrors(output)
		}),
		buildStep("test", func(output string) {
			passed, failed := parseTestSummary(output)
			r.st.Metrics.TestsPassed += passed
			r.st.Metrics.TestsFailed += failed
		}),
		buildStep("package", nil),
	}
}

// Phase 7 — ReportGeneration.

func reportSteps(r *run) []Step {
	return []Step{
		{Name: "render migration report", Run: func(ctx context.Context) StepResult {
			// The report describes this very phase, so render from a
			// snapshot where it is already marked finished.
			snapshot := *r.st
			snapshot.Phases = make([]progress.Phase, len(r.st.Phases))
			copy(snapshot.Phases, r.st.Phases)
			last := len(snapshot.Phases) - 1
			if snapshot.Phases[last].Status == progress.StatusRunning {
				snapshot.Phases[last].Status = progress.StatusSucceeded
			}

			path := filepath.Join(r.st.MigrationRoot, report.FileName)
			if err := os.WriteFile(path, []byte(report.Render(&snapshot)), 0o644); err != nil {
				return StepResult{Message: err.Error()}
			}
			r.st.Metrics.FilesTouched++
			return StepResult{OK: true}
		}},
	}
}

// Helpers shared by the handoff phases.

func unitSourceFiles(units []extract.Unit) []string {
	seen := make(map[string]bool, len(units))
	var files []string
	for _, u := range units {
		if u.SourceFile == "" || seen[u.SourceFile] {
			continue
		}
		seen[u.SourceFile] = true
		files = append(files, u.SourceFile)
	}
	return files
}

func stageFiles(files []string, destDir string) (int, []string) {
	staged := 0
	var problems []string
	for _, src := range files {
		data, err := os.ReadFile(src)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		dest := filepath.Join(destDir, filepath.Base(src))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		staged++
	}
	return staged, problems
}

func findTestFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "bin" || name == "obj" || name == ".git" || strings.HasPrefix(name, "migration-") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, "Test.cs") || strings.HasSuffix(path, "Tests.cs") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func renderTranslationGuide(st *progress.RunState) string {
	var b strings.Builder
	b.WriteString("# Translation Guide\n\n")
	b.WriteString("Each staged C# source file under `src/` corresponds to a scaffolded\n")
	b.WriteString("function in the generated project. Port the body of each function\n")
	b.WriteString("into its scaffolded counterpart.\n\n")
	b.WriteString("| Function | Trigger | Template | Source |\n")
	b.WriteString("|----------|---------|----------|--------|\n")
	for _, u := range st.Units {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			u.Name, string(u.Kind), kindTemplates[u.Kind], filepath.Base(u.SourceFile))
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
