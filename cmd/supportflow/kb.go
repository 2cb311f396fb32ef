package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/supportflow/retrieval"
	"github.com/randalmurphal/supportflow/workflow"
)

var (
	kbCategory     string
	kbTopK         int
	kbMinRelevance float64
	kbRelated      bool
)

func init() {
	rootCmd.AddCommand(kbCmd)
	kbCmd.AddCommand(kbSearchCmd)
	kbCmd.AddCommand(kbStatsCmd)

	kbSearchCmd.Flags().StringVar(&kbCategory, "category", "General", "Category to search: Billing, Technical, Security, General")
	kbSearchCmd.Flags().IntVar(&kbTopK, "top-k", 3, "Maximum number of results")
	kbSearchCmd.Flags().Float64Var(&kbMinRelevance, "min-relevance", 0.1, "Minimum relevance score")
	kbSearchCmd.Flags().BoolVar(&kbRelated, "related", true, "Also search related categories when results are short")
	kbStatsCmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect the knowledge base",
	Long: `Inspect the knowledge base used for context retrieval.

The knowledge base directory holds one <category>_docs.json file per category.
Built-in sample documents are used when the directory has none.`,
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base",
	Long: `Search the knowledge base the way the pipeline does.

Examples:
  supportflow kb search --category Billing "refund for double charge"
  supportflow kb search --top-k 5 --min-relevance 0.05 "reset password"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, closeKB, err := openKnowledgeBase(cmd.Context(), settings, logger)
		if err != nil {
			return err
		}
		defer closeKB()

		docs, err := kb.Search(cmd.Context(), workflow.SearchRequest{
			Query:          strings.Join(args, " "),
			Category:       workflow.ParseCategory(kbCategory),
			TopK:           kbTopK,
			MinRelevance:   kbMinRelevance,
			IncludeRelated: kbRelated,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(docs) == 0 {
			_, err := fmt.Fprintln(w, "No documents matched.")
			return err
		}
		for i, d := range docs {
			fmt.Fprintf(w, "%d. %s [%s] %.3f\n   %s\n", i+1, d.Source, d.Category, d.RelevanceScore, excerpt(d.Content, 160))
		}
		return nil
	},
}

var kbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document counts per category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kb, err := retrieval.New(cmd.Context(), retrieval.Options{Dir: settings.KnowledgeBaseDir, Logger: logger})
		if err != nil {
			return err
		}
		st := kb.Stats()
		if outputJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tDOCUMENTS\tCHARACTERS\tAVERAGE")
		for _, c := range workflow.Categories {
			cs := st.Categories[c]
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", c, cs.DocumentCount, cs.TotalContentLength, cs.AverageDocumentLength)
		}
		fmt.Fprintf(tw, "Total\t%d\t%d\t\n", st.TotalDocuments, st.TotalContentLength)
		if err := tw.Flush(); err != nil {
			return err
		}
		if st.FromSamples {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nNo files found in %q; showing built-in samples.\n", settings.KnowledgeBaseDir)
		}
		return nil
	},
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
