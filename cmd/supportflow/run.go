package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/supportflow/workflow"
)

var (
	runSubject     string
	runDescription string
	outputJSON     bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)

	runCmd.Flags().StringVar(&runSubject, "subject", "", "Ticket subject (required)")
	runCmd.Flags().StringVar(&runDescription, "description", "", "Ticket description; - reads stdin (required)")
	_ = runCmd.MarkFlagRequired("subject")
	_ = runCmd.MarkFlagRequired("description")

	for _, c := range []*cobra.Command{runCmd, resumeCmd} {
		c.Flags().BoolVar(&outputJSON, "json", false, "Output the outcome as JSON")
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one support ticket",
	Long: `Process one support ticket through the pipeline and print the outcome.

Interrupting the command (Ctrl-C) stops the run at the current stage. With a
file or sqlite checkpoint store the run can be continued with "resume".

Examples:
  # Process a ticket
  supportflow run --subject "Refund request" --description "I was charged twice"

  # Read the description from stdin
  cat email.txt | supportflow run --subject "Login problem" --description -

  # Run without a language model, using the local fallbacks
  supportflow run --provider none --subject "API error" --description "500 on every call"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		description := runDescription
		if description == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read description from stdin: %w", err)
			}
			description = string(data)
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			out, err := a.orch.Run(ctx, workflow.Ticket{Subject: runSubject, Description: description})
			if err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), out)
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Continue an interrupted run",
	Long: `Continue a run from its last checkpoint. The stage that was interrupted
runs again. Resuming a finished run prints its outcome.

Requires checkpoint_driver file or sqlite.

Examples:
  supportflow resume 2b0c6f1e-7f0d-4c55-9d1b-0f9f3a1a8c11`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			out, err := a.orch.Resume(ctx, args[0])
			if err != nil {
				return err
			}
			return printOutcome(cmd.OutOrStdout(), out)
		})
	},
}

// withApp builds the pipeline, runs fn with a context cancelled on SIGINT or
// SIGTERM, and closes the pipeline.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("close failed", "error", cerr)
		}
	}()
	return fn(ctx, a)
}

func printOutcome(w io.Writer, out *workflow.Outcome) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", out.RunID)
	fmt.Fprintf(tw, "Status:\t%s\n", out.Status)
	fmt.Fprintf(tw, "Category:\t%s\n", out.Category)
	fmt.Fprintf(tw, "Retries:\t%d\n", out.Retries)
	fmt.Fprintf(tw, "Duration:\t%s\n", out.Timings.Total.Round(time.Millisecond))
	sources := make([]string, 0, len(out.RetrievedContext))
	for _, d := range out.RetrievedContext {
		sources = append(sources, fmt.Sprintf("%s (%.2f)", d.Source, d.RelevanceScore))
	}
	if len(sources) > 0 {
		fmt.Fprintf(tw, "Context:\t%s\n", strings.Join(sources, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n", out.FinalOutput)
	return err
}
