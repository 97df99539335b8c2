package tools

import (
	"context"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleIndexPath(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	ref, err := scopeFromArgs(args)
	if err != nil {
		return errResult(err.Error()), nil
	}

	path := getStringArg(args, "path")
	if path == "" {
		return errResult("path is required"), nil
	}
	if !filepath.IsAbs(path) {
		return errResult("path must be absolute: " + path), nil
	}

	report, err := s.indexer.Index(ctx, ref, path, nil)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(report), nil
}
