package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/supportflow/workflow"
)

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the pipeline stages and transitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := workflow.Describe()
		w := cmd.OutOrStdout()
		if outputJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		}

		fmt.Fprintf(w, "entry: %s\n", g.Entry)
		for _, e := range g.Edges {
			arrow := "->"
			if e.Conditional {
				arrow = "?>"
			}
			fmt.Fprintf(w, "  %-10s %s %s\n", e.From, arrow, e.To)
		}
		_, err := fmt.Fprintf(w, "terminals: %v\n", g.Terminals)
		return err
	},
}
