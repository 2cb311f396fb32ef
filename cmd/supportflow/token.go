package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/supportflow/auth"
	"github.com/randalmurphal/supportflow/config"
	clierrors "github.com/randalmurphal/supportflow/errors"
)

var (
	tokenScopes string
	tokenTTL    time.Duration
)

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenScopes, "scopes", "", "Comma separated scopes (default: all)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "Token lifetime")
}

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue an API bearer token",
	Long: `Issue a bearer token for the HTTP API signed with jwt_secret.

Scopes:
  tickets:submit  POST /api/v1/tickets
  runs:read       GET  /api/v1/runs/:id
  runs:resume     POST /api/v1/runs/:id/resume

Examples:
  supportflow token helpdesk-bot --scopes tickets:submit,runs:read --ttl 720h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if settings.JWTSecret == "" {
			return clierrors.NewNotConfiguredError(config.KeyJWTSecret, "Issuing tokens")
		}
		scopes, err := auth.ParseScopes(tokenScopes)
		if err != nil {
			return err
		}

		token, err := auth.IssueToken(auth.JWTConfig{
			Secret: []byte(settings.JWTSecret),
			Issuer: settings.JWTIssuer,
			TTL:    tokenTTL,
		}, args[0], scopes...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}
