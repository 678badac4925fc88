// Package main implements the convergd CLI: it runs workflow convergence
// sessions and inspects workflow schedules.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath points at the optional YAML config file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "convergd",
	Short: "Workflow convergence engine",
	Long: `convergd schedules dependency-graph workflows, fans their tasks out in
parallel, aggregates the findings they report, and iterates a work/check/fix
cycle until the quality gate passes or the run escalates.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (optional)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
}
