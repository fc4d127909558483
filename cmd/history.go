package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/funcport/funcport/internal/config"
	"github.com/funcport/funcport/internal/history"
	"github.com/funcport/funcport/internal/progress"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past migration runs",
	Long:  `List migrations recorded in the local run ledger, most recent first.`,
	Args:  cobra.NoArgs,
	Run:   runHistory,
}

var hiLedgerPath string

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&hiLedgerPath, "ledger", "", "Path to the run ledger database (default ~/.funcport/history.db)")
}

func runHistory(cmd *cobra.Command, args []string) {
	path := hiLedgerPath
	if path == "" {
		path = config.DefaultHistoryPath()
	}

	ledger, err := history.Open(path)
	if err != nil {
		log.Fatalf("Failed to open run ledger: %v", err)
	}
	defer ledger.Close()

	entries, err := ledger.List()
	if err != nil {
		log.Fatalf("Failed to read run ledger: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No migrations recorded yet.")
		return
	}

	fmt.Printf("%-10s  %-19s  %-5s  %-36s  %s\n", "RESULT", "STARTED", "UNITS", "ID", "OUTPUT")
	for _, e := range entries {
		fmt.Printf("%-10s  %-19s  %-5d  %-36s  %s\n",
			e.Result,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.UnitCount,
			e.ID,
			e.MigrationRoot)
	}
}

// recordHistory writes the run summary to the ledger. Ledger problems are
// reported and swallowed; they never alter the migration's outcome.
func recordHistory(st *progress.RunState, path string) {
	if st == nil || path == "" {
		return
	}
	ledger, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Run ledger unavailable: %v\n", err)
		return
	}
	defer ledger.Close()

	if err := ledger.Record(st); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to record run in ledger: %v\n", err)
	}
}
