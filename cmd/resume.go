package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/funcport/funcport/internal/logging"
	"github.com/funcport/funcport/internal/pipeline"
	"github.com/funcport/funcport/internal/progress"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <migration-dir>",
	Short: "Resume a partially-completed migration",
	Long: `Resume a migration from its persisted progress state.

Phases that already succeeded are skipped; execution re-enters the
pipeline at the first phase that is pending, degraded, or failed.`,
	Example: `  funcport resume ./src/MyFunctions/migration-20260301-100000`,
	Args:    cobra.ExactArgs(1),
	Run:     runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringVar(&mgWorkerRuntime, "worker-runtime", "", "Target worker runtime passed to the scaffolding CLI (default java)")
	resumeCmd.Flags().DurationVar(&mgToolTimeout, "tool-timeout", 0, "Per-invocation timeout for external tools (default 10m)")
	resumeCmd.Flags().StringVar(&mgMappingsPath, "mappings", "", "Path to a YAML package-mapping table replacing the built-in one")
	resumeCmd.Flags().BoolVar(&mgSkipBuild, "skip-build", false, "Skip the build-and-validate phase")
	resumeCmd.Flags().BoolVarP(&mgVerbose, "verbose", "v", false, "Enable verbose logging")
}

func runResume(cmd *cobra.Command, args []string) {
	store := progress.NewStore(args[0])
	st, err := store.Load()
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrNotFound):
			log.Fatalf("No migration state found in %s", args[0])
		case errors.Is(err, progress.ErrInvalid):
			log.Fatalf("Migration state in %s is not usable: %v", args[0], err)
		default:
			log.Fatalf("Failed to load migration state: %v", err)
		}
	}

	rc := resolveRunConfig(cmd, st.SourceRoot)
	if st.WorkerRuntime != "" {
		// The scaffolded project already targets the recorded runtime.
		rc.WorkerRuntime = st.WorkerRuntime
	}

	sink := logging.NewSink(os.Stderr)
	defer sink.Close()
	logger := logging.New(sink, rc.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := pipeline.New(rc, logger, sink)
	resumed, err := ctrl.Resume(ctx, st)
	finishRun(resumed, err, rc)
}
