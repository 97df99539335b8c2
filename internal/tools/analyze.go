package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphward/code-graph-guard/internal/engine"
)

func (s *Server) handleAnalyzeRelationships(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	ref, err := scopeFromArgs(args)
	if err != nil {
		return errResult(err.Error()), nil
	}

	analysisType := getStringArg(args, "analysis_type")
	if analysisType == "" {
		analysisType = string(engine.AnalysisAll)
	}

	opts := engine.AnalyzeOptions{
		Type:        engine.AnalysisType(analysisType),
		ElementName: getStringArg(args, "element_name"),
		MaxDepth:    getIntArg(args, "max_depth", 3),
	}

	report, err := s.engine.AnalyzeRelationships(ctx, ref, opts)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(report), nil
}
