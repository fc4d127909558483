// Package report renders the final Markdown migration summary. It is a
// pure function over the run state: it runs at the very end of a
// possibly-degraded pipeline and must never itself fail, so missing
// fields render as "unknown" instead of erroring.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/funcport/funcport/internal/mapping"
	"github.com/funcport/funcport/internal/progress"
)

// FileName is the report's name inside the migration directory.
const FileName = "MIGRATION_REPORT.md"

const unknown = "unknown"

// Render produces the Markdown report for a run.
func Render(st *progress.RunState) string {
	var b strings.Builder

	b.WriteString("# Migration Report\n\n")
	fmt.Fprintf(&b, "- Run ID: %s\n", orUnknown(st.ID))
	fmt.Fprintf(&b, "- Source project: %s\n", orUnknown(st.SourceRoot))
	fmt.Fprintf(&b, "- Worker runtime: %s\n", orUnknown(st.WorkerRuntime))
	fmt.Fprintf(&b, "- Migration directory: %s\n", orUnknown(st.MigrationRoot))
	fmt.Fprintf(&b, "- Started: %s\n", formatTime(st.StartedAt))
	fmt.Fprintf(&b, "- Finished: %s\n", formatTime(st.FinishedAt))
	fmt.Fprintf(&b, "- Overall result: %s\n\n", overallResult(st))

	b.WriteString("## Phases\n\n")
	b.WriteString("| # | Phase | Status | Duration | Errors |\n")
	b.WriteString("|---|-------|--------|----------|--------|\n")
	for _, ph := range st.Phases {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %d |\n",
			ph.Index, orUnknown(ph.Name), string(ph.Status), formatDuration(ph), ph.ErrorCount)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Functions (%d)\n\n", len(st.Units))
	if len(st.Units) == 0 {
		b.WriteString("No migratable units recorded.\n\n")
	} else {
		b.WriteString("| Function | Trigger | Source file |\n")
		b.WriteString("|----------|---------|-------------|\n")
		for _, u := range st.Units {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", u.Name, string(u.Kind), u.SourceFile)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Metrics\n\n")
	m := st.Metrics
	fmt.Fprintf(&b, "- Files touched: %d\n", m.FilesTouched)
	fmt.Fprintf(&b, "- Units scaffolded: %d (failed: %d)\n", m.UnitsScaffolded, m.UnitsFailed)
	fmt.Fprintf(&b, "- Compilation errors: %d\n", m.CompilationErrors)
	fmt.Fprintf(&b, "- Tests: %d passed, %d failed\n\n", m.TestsPassed, m.TestsFailed)

	if unmapped := mapping.Unmapped(st.Dependencies); len(unmapped) > 0 {
		b.WriteString("## Dependencies needing manual resolution\n\n")
		for _, name := range unmapped {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}

	writeNextSteps(&b, st)
	return b.String()
}

func writeNextSteps(b *strings.Builder, st *progress.RunState) {
	b.WriteString("## Next steps\n\n")

	var steps []string
	if st.Fatal() {
		steps = append(steps,
			"A fatal phase failed; inspect the run log, fix the underlying problem, and re-run `funcport resume` on this migration directory.")
	}
	for _, ph := range st.Phases {
		if ph.Status != progress.StatusFailedDegraded {
			continue
		}
		steps = append(steps, fmt.Sprintf("Phase %q finished degraded (%d error(s)); review its warnings in the run log.", ph.Name, ph.ErrorCount))
	}
	if st.Metrics.CompilationErrors > 0 {
		steps = append(steps, "Resolve the reported compilation errors in the generated project, then re-run the build.")
	}
	if st.Metrics.TestsFailed > 0 {
		steps = append(steps, "Investigate the failing translated tests.")
	}
	if len(mapping.Unmapped(st.Dependencies)) > 0 {
		steps = append(steps, "Add Maven coordinates for the unmapped dependencies listed above to the generated pom.xml.")
	}
	steps = append(steps,
		"Translate the handed-off sources under handoff/ into the scaffolded project.",
		"Review the generated project before deploying.")

	for i, s := range steps {
		fmt.Fprintf(b, "%d. %s\n", i+1, s)
	}
}

func overallResult(st *progress.RunState) string {
	switch {
	case st.Fatal():
		return "FAILED"
	case st.Degraded():
		return "DEGRADED"
	case st.Finished():
		return "SUCCEEDED"
	default:
		return "IN PROGRESS"
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return unknown
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

func formatDuration(ph progress.Phase) string {
	if !ph.Status.Terminal() {
		return "-"
	}
	return (time.Duration(ph.DurationMs) * time.Millisecond).String()
}
