// Package main implements the supportflow CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/supportflow/config"
	clierrors "github.com/randalmurphal/supportflow/errors"
)

var (
	// version information
	version = "dev"

	// persistent flags
	flagLogLevel  string
	flagLogFormat string
	flagKBDir     string
	flagProvider  string

	// resolved in PersistentPreRunE
	resolved *config.Resolved
	settings config.Settings
	logger   *slog.Logger
)

// skipSettings marks commands that must work with an invalid configuration.
const skipSettings = "skip-settings"

func main() {
	if err := rootCmd.Execute(); err != nil {
		err = clierrors.Explain(err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(clierrors.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "supportflow",
	Short: "Automated customer support ticket pipeline",
	Long: `supportflow classifies support tickets, retrieves knowledge base context,
drafts a response, reviews it and either resolves the ticket or escalates it
to a human after repeated rejections.

Configuration is read from ~/.config/supportflow/config.yaml, then
.supportflow.yaml in the git root, then SUPPORTFLOW_* environment variables,
then flags.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		resolved = config.NewResolver().ResolveWithFlags(map[string]string{
			config.KeyLogLevel:         flagLogLevel,
			config.KeyLogFormat:        flagLogFormat,
			config.KeyKnowledgeBaseDir: flagKBDir,
			config.KeyLLMProvider:      flagProvider,
		})
		if cmd.Annotations[skipSettings] != "" {
			logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
			return nil
		}

		var err error
		settings, err = config.Load(resolved)
		if err != nil {
			return err
		}
		logger = settings.Logger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&flagKBDir, "kb-dir", "", "Knowledge base directory")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "Language model provider: claude, openai or none")
}
