package cmd

import (
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/funcport/funcport/internal/progress"
	"github.com/funcport/funcport/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status <migration-dir>",
	Short: "Show the phase status of a migration",
	Long: `Display the per-phase status of a migration from its progress state.

With --watch, a live view polls the state file and re-renders until the
run finishes.`,
	Example: `  # One-shot status
  funcport status ./src/MyFunctions/migration-20260301-100000

  # Live view of a running migration
  funcport status ./src/MyFunctions/migration-20260301-100000 --watch`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

var stWatch bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&stWatch, "watch", false, "Poll the state file and render a live view")
}

func runStatus(cmd *cobra.Command, args []string) {
	store := progress.NewStore(args[0])

	if stWatch {
		if _, err := tea.NewProgram(tui.New(store)).Run(); err != nil {
			log.Fatalf("Status view failed: %v", err)
		}
		return
	}

	st, err := store.Load()
	if err != nil {
		log.Fatalf("Failed to load migration state: %v", err)
	}

	fmt.Printf("📋 Migration %s\n\n", st.ID)
	fmt.Printf("Source:    %s\n", st.SourceRoot)
	fmt.Printf("Output:    %s\n", st.MigrationRoot)
	fmt.Printf("Started:   %s\n", st.StartedAt.Format("2006-01-02 15:04:05"))
	if !st.FinishedAt.IsZero() {
		fmt.Printf("Finished:  %s\n", st.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Units:     %d\n\n", len(st.Units))

	for _, ph := range st.Phases {
		marker := statusMarker(ph.Status)
		line := fmt.Sprintf("%s %d. %-24s %s", marker, ph.Index, ph.Name, string(ph.Status))
		if ph.Status.Terminal() {
			line += fmt.Sprintf("  (%s)", (time.Duration(ph.DurationMs) * time.Millisecond).String())
		}
		fmt.Println(line)
		for _, w := range ph.Warnings {
			fmt.Printf("      ⚠ %s\n", w)
		}
	}

	if st.FirstUnfinished() >= 0 && !st.Fatal() {
		fmt.Printf("\nNext: funcport resume %s\n", args[0])
	}
}

func statusMarker(status progress.Status) string {
	switch status {
	case progress.StatusSucceeded:
		return "✅"
	case progress.StatusFailedFatal:
		return "❌"
	case progress.StatusFailedDegraded:
		return "⚠️ "
	case progress.StatusRunning:
		return "🔄"
	default:
		return "⏸ "
	}
}
