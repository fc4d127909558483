package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "funcport",
	Short: "Funcport migrates C# Azure Functions projects to Java.",
	Long: `Funcport migrates C# Azure Functions projects to Java by driving the
Functions Core Tools CLI and Maven through a fixed, resumable phase
pipeline. Progress is persisted after every phase so a partially-failed
migration can be inspected, resumed, or discarded.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
