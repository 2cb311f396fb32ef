package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/supportflow/config"
)

var configLocal bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configUnsetCmd)

	for _, c := range []*cobra.Command{configSetCmd, configUnsetCmd} {
		c.Flags().BoolVar(&configLocal, "local", false, "Edit .supportflow.yaml in the git root instead of the global config")
	}
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Show and edit configuration",
	Annotations: map[string]string{skipSettings: "true"},
}

var configListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List every setting with its value and source",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSettings: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		for _, key := range resolved.Keys() {
			value, src := resolved.GetWithSource(key)
			fmt.Fprintf(tw, "%s\t%s\t%s\n", key, displayValue(key, value), src)
		}
		return tw.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:         "get <key>",
	Short:       "Print one setting",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipSettings: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		value, src := resolved.GetWithSource(args[0])
		if src == "" {
			return fmt.Errorf("%w: %s", config.ErrUnknownKey, args[0])
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), value)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting to a config file",
	Long: `Write a setting to the global config (~/.config/supportflow/config.yaml) or,
with --local, to .supportflow.yaml in the git root.

Examples:
  supportflow config set llm_provider openai
  supportflow config set --local knowledge_base_dir ./kb`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{skipSettings: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		if err := config.Set(path, args[0], args[1]); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
		return err
	},
}

var configUnsetCmd = &cobra.Command{
	Use:         "unset <key>",
	Short:       "Remove a setting from a config file",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipSettings: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath()
		if err != nil {
			return err
		}
		return config.Unset(path, args[0])
	},
}

func configPath() (string, error) {
	if !configLocal {
		return config.GlobalPath()
	}
	r := config.NewResolver()
	if r.LocalPath() == "" {
		return "", fmt.Errorf("not inside a git repository; cannot locate %s", config.LocalConfigName)
	}
	return r.LocalPath(), nil
}

// displayValue hides secrets in listings.
func displayValue(key, value string) string {
	if value == "" {
		return "-"
	}
	if strings.HasSuffix(key, "_token") || strings.HasSuffix(key, "_secret") ||
		strings.HasSuffix(key, "_api_key") || strings.HasSuffix(key, "webhook_url") {
		return "********"
	}
	return value
}
