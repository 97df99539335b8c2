package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphward/code-graph-guard/internal/engine"
)

// upsertArgs is the typed shape of upsert_entities arguments. Entities carry
// nested relationship lists, so a typed unmarshal beats picking through maps.
type upsertArgs struct {
	Project  string                `json:"project"`
	Branch   string                `json:"branch"`
	Entities []engine.ParsedEntity `json:"entities"`
}

func (s *Server) handleUpsertEntities(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args upsertArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return errResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	ref, err := engine.Resolve(args.Project, args.Branch)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if len(args.Entities) == 0 {
		return errResult("entities is required and must be non-empty"), nil
	}

	report, err := s.engine.UpsertEntities(ctx, ref, args.Entities)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(report), nil
}

type classifyArgs struct {
	Project    string             `json:"project"`
	Branch     string             `json:"branch"`
	Candidates []engine.Candidate `json:"candidates"`
}

func (s *Server) handleClassifyCandidates(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args classifyArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return errResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	ref, err := engine.Resolve(args.Project, args.Branch)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if len(args.Candidates) == 0 {
		return errResult("candidates is required and must be non-empty"), nil
	}

	results, err := s.engine.ClassifyCandidates(ctx, ref, args.Candidates)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"scope":           ref.Key(),
		"classifications": results,
	}), nil
}
