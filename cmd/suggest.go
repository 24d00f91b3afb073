package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cohortlens/insights-engine/pkg/audit"
	"github.com/cohortlens/insights-engine/pkg/formatter"
	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/services"
)

// NewSuggestCmd creates the suggest command.
func NewSuggestCmd(version string, opts *Options) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "suggest [FILE]",
		Short: "Suggest drill-down questions for a query result",
		Long: `Analyze a query result and print up to three ranked drill-down suggestions.

The input is JSON with the question, the SQL and either rows (a single result)
or metrics (named result sets). It is read from FILE, or stdin when FILE is
omitted or "-".

Examples:
  # Suggest from a saved result
  insights-engine suggest result.json

  # Pipe a result and get YAML
  cat result.json | insights-engine suggest -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := formatter.ValidateFormat(outputFormat); err != nil {
				return err
			}

			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var req models.DrillDownRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse drill-down input: %w", err)
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

			svc := services.NewDrillDownService(audit.NewAuditor(logger), logger)
			resp, err := svc.Suggest(cmd.Context(), models.SourceCLI, req.AnalysisInput())
			if err != nil {
				return fmt.Errorf("suggest: %w", err)
			}
			return formatter.DisplaySuggestions(cmd.OutOrStdout(), resp, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml)")
	return cmd
}
