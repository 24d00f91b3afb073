package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cohortlens/insights-engine/pkg/audit"
	"github.com/cohortlens/insights-engine/pkg/formatter"
	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/services"
	"github.com/cohortlens/insights-engine/pkg/sql"
	"github.com/cohortlens/insights-engine/pkg/workerpool"
)

// ErrDenominatorsFound is returned with --fail-on-fix when any query was rewritten.
var ErrDenominatorsFound = errors.New("hardcoded denominators found")

// NewCheckSQLCmd creates the check-sql command.
func NewCheckSQLCmd(version string, opts *Options) *cobra.Command {
	var (
		outputFormat string
		batch        bool
		failOnFix    bool
	)

	cmd := &cobra.Command{
		Use:   "check-sql [FILE]",
		Short: "Replace hardcoded denominators in generated SQL",
		Long: `Check SQL for hardcoded class day, active builder and task counts and
print the query with each one replaced by a live subquery.

FILE holds one SQL query, or with --batch a JSON array of {"id", "sql"}
objects. Input is read from stdin when FILE is omitted or "-". Denominator
literals and subquery values come from the denominators config section.

Examples:
  # Check one query
  insights-engine check-sql query.sql

  # Check a batch in CI and fail if anything was rewritten
  insights-engine check-sql --batch --fail-on-fix -o json queries.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := formatter.ValidateFormat(outputFormat); err != nil {
				return err
			}

			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig(version)
			if err != nil {
				return err
			}
			logger, err := opts.cliLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc := services.NewSQLGuardService(
				sql.NewDenominatorValidator(cfg.Denominators.ToOptions()),
				workerpool.New(workerpool.Config{MaxConcurrent: cfg.Workers.MaxConcurrent}, logger),
				audit.NewAuditor(logger),
				nil,
				logger,
			)

			out := cmd.OutOrStdout()
			if !batch {
				resp, err := svc.Check(cmd.Context(), models.SourceCLI, string(data))
				if err != nil {
					return fmt.Errorf("check sql: %w", err)
				}
				if err := formatter.DisplaySQLCheck(out, resp, outputFormat); err != nil {
					return err
				}
				if failOnFix && resp.HadIssues {
					return ErrDenominatorsFound
				}
				return nil
			}

			var queries []models.BatchSQLQuery
			if err := json.Unmarshal(data, &queries); err != nil {
				return fmt.Errorf("parse batch input: %w", err)
			}
			resp, err := svc.CheckBatch(cmd.Context(), models.SourceCLI, queries)
			if err != nil {
				return fmt.Errorf("check sql batch: %w", err)
			}
			if err := formatter.DisplaySQLBatch(out, resp, outputFormat); err != nil {
				return err
			}
			if failOnFix {
				for _, r := range resp.Results {
					if r.HadIssues {
						return ErrDenominatorsFound
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml)")
	cmd.Flags().BoolVar(&batch, "batch", false, "Input is a JSON array of {\"id\", \"sql\"} objects")
	cmd.Flags().BoolVar(&failOnFix, "fail-on-fix", false, "Exit non-zero when any denominator was replaced")
	return cmd
}
