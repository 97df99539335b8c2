package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleCreateScope(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	ref, err := scopeFromArgs(args)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if err := s.engine.CreateScope(ctx, ref); err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"scope":   ref.Key(),
		"project": ref.Project,
		"branch":  ref.Branch,
	}), nil
}

func (s *Server) handleListScopes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scopes, err := s.engine.ListScopes(ctx)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"scopes": scopes,
		"count":  len(scopes),
	}), nil
}

func (s *Server) handleClearScope(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	ref, err := scopeFromArgs(args)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if err := s.engine.ClearScope(ctx, ref); err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{"cleared": ref.Key()}), nil
}

func (s *Server) handleDeleteScope(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	ref, err := scopeFromArgs(args)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if err := s.engine.DeleteScope(ctx, ref); err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{"deleted": ref.Key()}), nil
}

func (s *Server) handleDeleteProject(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	project := getStringArg(args, "project")
	if project == "" {
		return errResult("project is required"), nil
	}
	if !s.router.HasProject(project) {
		return errResult("project not indexed: " + project), nil
	}
	if err := s.router.DeleteProject(project); err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{"deleted": project}), nil
}
