package main

import (
	"fmt"
	"time"

	"github.com/cwrk-planet/studyroom/config"
	"github.com/cwrk-planet/studyroom/internal/auth"

	"github.com/spf13/cobra"
)

var tokenFlags struct {
	user string
	name string
	ttl  time.Duration
}

// tokenCmd issues HS256 tokens for local development.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a development bearer token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		tok, err := auth.SignHS256(cfg.Auth.Secret, authConfig(cfg), tokenFlags.user, tokenFlags.name, time.Now(), tokenFlags.ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.user, "user", "", "user id (token subject)")
	tokenCmd.Flags().StringVar(&tokenFlags.name, "name", "", "display name")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
