package main

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "studyroom",
	Short:         "Shared study rooms with a synchronized focus timer and task list.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $CONFIG_PATH or ./config/config.yaml)")
}
