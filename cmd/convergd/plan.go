package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/convergd/internal/workflow"
)

var planCmd = &cobra.Command{
	Use:   "plan <workflow.yaml>",
	Short: "Show a workflow's schedule without running it",
	Long: `Validate a workflow, compile its task graph, and print the critical-path
analysis: per-task earliest/latest start and finish, slack, the critical
path, and the parallel tracks.

Examples:
  # Inspect the schedule
  convergd plan audit.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	def, err := workflow.LoadFile(args[0])
	if err != nil {
		return err
	}
	g, err := def.Graph()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(g.CriticalPath())
}
