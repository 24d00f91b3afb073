package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cohortlens/insights-engine/pkg/models"
	"github.com/cohortlens/insights-engine/pkg/services"
)

// SQLGuardToolDeps contains dependencies for the denominator check tool.
type SQLGuardToolDeps struct {
	Service services.SQLGuardService
}

// RegisterSQLGuardTools registers check_sql_denominators.
func RegisterSQLGuardTools(s *server.MCPServer, deps *SQLGuardToolDeps) {
	tool := mcp.NewTool(
		"check_sql_denominators",
		mcp.WithDescription(
			"Check generated SQL for hardcoded denominators (class day, active builder and "+
				"task counts) and replace each with a live subquery. Run this on every generated "+
				"query before executing it. Pass sql for one query or queries for a batch; "+
				"unchanged queries come back byte-identical with hadIssues=false.",
		),
		mcp.WithString(
			"sql",
			mcp.Description("A single SQL query to check"),
		),
		mcp.WithArray(
			"queries",
			mcp.Description("Batch of queries as [{\"id\": \"...\", \"sql\": \"...\"}]; results keep ids and order"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args models.SQLCheckRequest
		if err := bindArguments(req, &args); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		if err := args.Validate(); err != nil {
			return NewErrorResult(errorCode(err), err.Error()), nil
		}

		if args.IsBatch() {
			resp, err := deps.Service.CheckBatch(ctx, models.SourceMCP, args.Queries)
			if err != nil {
				if code := errorCode(err); code != "" {
					return NewErrorResult(code, err.Error()), nil
				}
				return nil, fmt.Errorf("check sql batch: %w", err)
			}
			return jsonResult(resp)
		}

		resp, err := deps.Service.Check(ctx, models.SourceMCP, *args.SQL)
		if err != nil {
			return nil, fmt.Errorf("check sql: %w", err)
		}
		return jsonResult(resp)
	})
}
