package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/services"
)

// DrillDownToolDeps contains dependencies for the drill-down tool.
type DrillDownToolDeps struct {
	Service services.DrillDownService
}

// RegisterDrillDownTools registers suggest_drilldowns.
func RegisterDrillDownTools(s *server.MCPServer, deps *DrillDownToolDeps) {
	tool := mcp.NewTool(
		"suggest_drilldowns",
		mcp.WithDescription(
			"Analyze a query result that was just shown to the user and suggest up to three "+
				"follow-up questions. Each suggestion's query is a natural-language instruction "+
				"to run through SQL generation, not SQL. Pass rows for a single result, or "+
				"metrics for a multi-metric response.",
		),
		mcp.WithString(
			"question",
			mcp.Description("The user's original natural-language question"),
		),
		mcp.WithString(
			"sql",
			mcp.Description("Optional: the SQL that produced the result"),
		),
		mcp.WithArray(
			"columns",
			mcp.Description("Optional: column names in display order"),
		),
		mcp.WithArray(
			"rows",
			mcp.Description("Result rows as objects keyed by column name"),
		),
		mcp.WithArray(
			"metrics",
			mcp.Description("Optional: named result sets ({name, columns, rows}); only the first is analyzed"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args models.DrillDownRequest
		if err := bindArguments(req, &args); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		resp, err := deps.Service.Suggest(ctx, models.SourceMCP, args.AnalysisInput())
		if err != nil {
			return nil, fmt.Errorf("suggest drill-downs: %w", err)
		}
		return jsonResult(resp)
	})
}
