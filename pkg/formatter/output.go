// Package formatter renders CLI results as colored text, JSON or YAML.
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/cohortlens/insights-engine/pkg/services"
)

// Output formats accepted by the -o flag.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ValidateFormat rejects unknown output formats.
func ValidateFormat(format string) error {
	switch format {
	case FormatHuman, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want human, json or yaml)", format)
	}
}

// DisplaySuggestions writes a drill-down response.
func DisplaySuggestions(w io.Writer, resp *services.DrillDownResponse, format string) error {
	if format != FormatHuman {
		return displayStructured(w, resp, format)
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)

	dc := resp.Context
	cyan.Fprintln(w, "RESULT CONTEXT")
	fmt.Fprintf(w, "   Entity: %s  Aggregation: %s  Metric: %s  Rows: %d\n",
		dc.EntityType, dc.AggregationLevel, dc.MetricType, dc.ResultCount)
	fmt.Fprintf(w, "   Flags: %s\n\n", contextFlags(resp))

	if len(resp.Suggestions) == 0 {
		fmt.Fprintln(w, color.HiBlackString("No drill-down suggestions for this result."))
		return nil
	}

	cyan.Fprintln(w, "SUGGESTED DRILL-DOWNS")
	for i, s := range resp.Suggestions {
		fmt.Fprintf(w, "   %d. ", i+1)
		bold.Fprintf(w, "%s %s", s.Icon, s.Label)
		fmt.Fprintf(w, " %s\n", color.HiBlackString("(%s, %s chart)", s.QueryType, s.ExpectedChartType))
		fmt.Fprintf(w, "      %s\n", s.Description)
		fmt.Fprintf(w, "      Ask: %s\n", color.CyanString(s.Query))
	}
	fmt.Fprintln(w)
	return nil
}

// DisplaySQLCheck writes a single denominator check result.
func DisplaySQLCheck(w io.Writer, resp *services.SQLCheckResponse, format string) error {
	if format != FormatHuman {
		return displayStructured(w, resp, format)
	}

	if !resp.HadIssues {
		color.New(color.FgGreen).Fprintln(w, "✓ No hardcoded denominators found")
		return nil
	}

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(w, "⚠ Replaced %d hardcoded denominator(s)\n", len(resp.Fixes))
	for _, fix := range resp.Fixes {
		fmt.Fprintf(w, "   - %s\n", fix)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, resp.SQL)
	return nil
}

// DisplaySQLBatch writes a batch denominator check result in submission order.
func DisplaySQLBatch(w io.Writer, resp *services.SQLBatchCheckResponse, format string) error {
	if format != FormatHuman {
		return displayStructured(w, resp, format)
	}

	fixed := 0
	for _, r := range resp.Results {
		if !r.HadIssues {
			fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), r.ID)
			continue
		}
		fixed++
		fmt.Fprintf(w, "%s %s\n", color.YellowString("⚠"), r.ID)
		for _, fix := range r.Fixes {
			fmt.Fprintf(w, "   - %s\n", fix)
		}
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%d of %d queries rewritten\n", fixed, len(resp.Results))
	return nil
}

func contextFlags(resp *services.DrillDownResponse) string {
	dc := resp.Context
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{dc.HasTimeComponent, "time"},
		{dc.HasGrouping, "grouping"},
		{dc.HasOutliers, "outliers"},
		{dc.HasTrends, "trends"},
		{dc.HasComparableGroups, "comparable"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	if len(flags) == 0 {
		return "none"
	}
	return strings.Join(flags, ", ")
}

// displayStructured writes v as JSON or YAML. YAML is produced from the JSON
// encoding so both formats share field names and order.
func displayStructured(w io.Writer, v any, format string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	if format == FormatJSON {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("convert to yaml: %w", err)
	}
	clearStyle(&node)

	out, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// clearStyle drops the flow and quoting styles the JSON source carries so the
// encoder emits block YAML.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
