package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphward/code-graph-guard/internal/engine"
)

func (s *Server) handleCompareBranches(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	project := getStringArg(args, "project")
	refA, err := engine.Resolve(project, getStringArg(args, "branch_a"))
	if err != nil {
		return errResult(err.Error()), nil
	}
	refB, err := engine.Resolve(project, getStringArg(args, "branch_b"))
	if err != nil {
		return errResult(err.Error()), nil
	}

	diff, err := s.engine.CompareBranches(ctx, refA, refB)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(diff), nil
}
