package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "fakersql",
		Short:         "Fake user data served from PostgreSQL procedures",
		Long:          "Validate generation parameters and dispatch them to fake data procedures in PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		serveCmd(flags),
		localesCmd(flags),
		generateCmd(flags),
		benchmarkCmd(flags),
	)

	return rootCmd
}
