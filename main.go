package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cohortlens/insights-engine/cmd"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cmd.Options{}
	rootCmd := &cobra.Command{
		Use:   "insights-engine",
		Short: "Drill-down suggestions and denominator checks for cohort analytics",
		Long: `insights-engine analyzes cohort analytics query results to suggest
follow-up drill-downs, and rewrites hardcoded denominators in generated SQL
into live subqueries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	opts.BindFlags(rootCmd)

	rootCmd.AddCommand(
		cmd.NewServeCmd(Version, opts),
		cmd.NewSuggestCmd(Version, opts),
		cmd.NewCheckSQLCmd(Version, opts),
		cmd.NewVersionCmd(Version),
	)
	return rootCmd
}
