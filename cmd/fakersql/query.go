package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

func localesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "locales",
		Short: "List the available locales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.close(cmd.Context())) }()

			locales, err := a.service.GetLocales(cmd.Context())
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), locales)
		},
	}
}

func generateCmd(flags *rootFlags) *cobra.Command {
	var (
		locale     string
		seed       int64
		batchIndex int64
		batchSize  int
		includeBio bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one batch of fake users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.close(cmd.Context())) }()

			locales, err := a.service.GetLocales(cmd.Context())
			if err != nil {
				return err
			}

			params, err := fakersql.ValidateParams(
				fakersql.RawParams{
					Locale:     locale,
					Seed:       seed,
					BatchIndex: batchIndex,
					BatchSize:  batchSize,
					IncludeBio: includeBio,
				},
				locales,
				cfg.Generation.MaxBatchSize,
			)
			if err != nil {
				return err
			}

			users, err := a.service.GenerateUsers(cmd.Context(), params)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), users)
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "en_US", "Locale code")
	cmd.Flags().Int64Var(&seed, "seed", 12345, "Seed, a non-negative integer")
	cmd.Flags().Int64Var(&batchIndex, "batch-index", 0, "Batch number")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "Users per batch")
	cmd.Flags().BoolVar(&includeBio, "include-bio", false, "Include a generated bio")

	return cmd
}

func benchmarkCmd(flags *rootFlags) *cobra.Command {
	var (
		locale     string
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run the generation benchmark in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			count, ok := fakersql.ValidateIterations(iterations)
			if !ok {
				return &fakersql.ValidationError{Field: "iterations", Message: "Iterations must be between 1 and 10000"}
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.close(cmd.Context())) }()

			valid, err := a.service.ValidateLocale(cmd.Context(), locale)
			if err != nil {
				return err
			}

			if !valid {
				return fakersql.NewInvalidLocaleError(locale)
			}

			result, err := a.service.RunBenchmark(cmd.Context(), locale, count)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "en_US", "Locale code")
	cmd.Flags().IntVar(&iterations, "iterations", 100, "Number of users to generate, 1 to 10000")

	return cmd
}
