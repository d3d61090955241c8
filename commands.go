package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"anoto/assessment"
	"anoto/config"
	"anoto/content"
	"anoto/logging"
	"anoto/models"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the history tables in the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			if !cfg.StorageEnabled() {
				return errors.New("DSN is not set")
			}
			logger, err := logging.New(cfg.LogLevel, cfg.Development())
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func pendingCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List mirrored testimonials the backend did not accept",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			if !cfg.StorageEnabled() {
				return errors.New("DSN is not set")
			}
			logger, err := logging.New(cfg.LogLevel, cfg.Development())
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			pending, err := store.PendingTestimonials(cmd.Context(), limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pending)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of testimonials to list")
	return cmd
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score ANSWER x7",
		Short: "Score seven GAD-7 answers offline",
		Long: `Scores a GAD-7 answer set without calling the prediction API.
Each answer is an option label ("Tidak Pernah") or its score 0-3.`,
		Args: cobra.ExactArgs(7),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := scoreArgs(assessment.New(content.Default()), args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
}

// scoreArgs maps positional answers onto the questionnaire keys.
func scoreArgs(a *assessment.Assessment, args []string) (models.Prediction, error) {
	if len(args) != len(a.Questions()) {
		return models.Prediction{}, fmt.Errorf("want %d answers, got %d", len(a.Questions()), len(args))
	}
	var answers models.GAD7Answers
	for i, q := range a.Questions() {
		v := args[i]
		if n, err := strconv.Atoi(v); err == nil {
			if n < 0 || n >= len(a.Options()) {
				return models.Prediction{}, fmt.Errorf("answer %d: score %d out of range", i+1, n)
			}
			v = a.Options()[n]
		}
		answers.Set(q.Key, v)
	}
	return a.Predict(answers)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
