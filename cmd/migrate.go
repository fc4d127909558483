package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/funcport/funcport/internal/config"
	"github.com/funcport/funcport/internal/extract"
	"github.com/funcport/funcport/internal/logging"
	"github.com/funcport/funcport/internal/pipeline"
	"github.com/funcport/funcport/internal/progress"
	"github.com/funcport/funcport/internal/report"
	"github.com/funcport/funcport/internal/toolchain"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <source-project-path>",
	Short: "Run the full migration pipeline against a source project",
	Long: `Run the full migration pipeline against a C# Azure Functions project.

The pipeline discovers migratable functions, scaffolds a Java project,
maps package references, stages sources for translation, and builds the
result. Each phase's outcome is persisted to progress.json inside the
generated migration-<timestamp>/ directory.

Exit code 0 means the pipeline completed, possibly with degraded phases;
exit code 1 means a fatal failure (missing toolchain, no migratable
units, or a fatal phase failure).`,
	Example: `  # Migrate a project
  funcport migrate ./src/MyFunctions

  # Preview the phase plan without running anything
  funcport migrate ./src/MyFunctions --dry-run

  # Scaffold only, skip the Maven build
  funcport migrate ./src/MyFunctions --skip-build`,
	Args: cobra.ExactArgs(1),
	Run:  runMigrate,
}

var (
	mgWorkerRuntime string
	mgToolTimeout   time.Duration
	mgMappingsPath  string
	mgSkipBuild     bool
	mgDryRun        bool
	mgVerbose       bool
)

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&mgWorkerRuntime, "worker-runtime", "", "Target worker runtime passed to the scaffolding CLI (default java)")
	migrateCmd.Flags().DurationVar(&mgToolTimeout, "tool-timeout", 0, "Per-invocation timeout for external tools (default 10m)")
	migrateCmd.Flags().StringVar(&mgMappingsPath, "mappings", "", "Path to a YAML package-mapping table replacing the built-in one")
	migrateCmd.Flags().BoolVar(&mgSkipBuild, "skip-build", false, "Skip the build-and-validate phase")
	migrateCmd.Flags().BoolVar(&mgDryRun, "dry-run", false, "Print the phase plan without executing anything")
	migrateCmd.Flags().BoolVarP(&mgVerbose, "verbose", "v", false, "Enable verbose logging")
}

func runMigrate(cmd *cobra.Command, args []string) {
	rc := resolveRunConfig(cmd, args[0])

	if mgDryRun {
		fmt.Println("Phase plan:")
		for _, line := range pipeline.Describe() {
			fmt.Printf("  %s\n", line)
		}
		return
	}

	sink := logging.NewSink(os.Stderr)
	defer sink.Close()
	logger := logging.New(sink, rc.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := pipeline.New(rc, logger, sink)
	st, err := ctrl.Run(ctx)
	finishRun(st, err, rc)
}

// resolveRunConfig merges config file, environment, and flags shared by
// migrate and resume.
func resolveRunConfig(cmd *cobra.Command, sourceRoot string) *config.RunConfig {
	if err := config.LoadDotenv(""); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	fc, err := config.LoadFile()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	rc, err := config.Resolve(fc, sourceRoot)
	if err != nil {
		log.Fatalf("Failed to resolve config: %v", err)
	}

	if mgWorkerRuntime != "" {
		rc.WorkerRuntime = mgWorkerRuntime
	}
	if mgToolTimeout > 0 {
		rc.ToolTimeout = mgToolTimeout
	}
	if mgMappingsPath != "" {
		rc.MappingsPath = mgMappingsPath
	}
	if cmd.Flags().Changed("skip-build") {
		rc.SkipBuild = mgSkipBuild
	}
	rc.Verbose = mgVerbose
	return rc
}

// finishRun records the run in the history ledger, prints the outcome,
// and exits with the pipeline's exit-code contract.
func finishRun(st *progress.RunState, err error, rc *config.RunConfig) {
	if st != nil {
		recordHistory(st, rc.HistoryPath)
	}

	if err != nil {
		switch {
		case errors.Is(err, toolchain.ErrToolNotFound):
			fmt.Fprintf(os.Stderr, "❌ Missing toolchain: %v\n", err)
		case errors.Is(err, extract.ErrNoUnits):
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		case errors.Is(err, pipeline.ErrFatalPhase):
			fmt.Fprintf(os.Stderr, "❌ Migration aborted: %v\n", err)
			if st != nil {
				fmt.Fprintf(os.Stderr, "   State: %s\n", filepath.Join(st.MigrationRoot, progress.FileName))
				fmt.Fprintf(os.Stderr, "   Resume with: funcport resume %s\n", st.MigrationRoot)
			}
		default:
			fmt.Fprintf(os.Stderr, "❌ Migration failed: %v\n", err)
		}
		os.Exit(1)
	}

	if st.Degraded() {
		fmt.Printf("⚠️  Migration completed with degraded phases\n")
	} else {
		fmt.Printf("✅ Migration completed\n")
	}
	fmt.Printf("   Output:  %s\n", st.MigrationRoot)
	fmt.Printf("   Report:  %s\n", filepath.Join(st.MigrationRoot, report.FileName))
	fmt.Printf("   State:   %s\n", filepath.Join(st.MigrationRoot, progress.FileName))
}
