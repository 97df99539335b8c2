// Package tools exposes the graph engine over MCP: indexing, entity upsert,
// differential classification, relationship analysis, branch comparison, and
// scope management.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphward/code-graph-guard/internal/engine"
	"github.com/graphward/code-graph-guard/internal/graph"
	"github.com/graphward/code-graph-guard/internal/indexer"
)

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp     *mcp.Server
	engine  *engine.Engine
	indexer *indexer.Indexer
	router  *graph.Router
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(eng *engine.Engine, ix *indexer.Indexer, router *graph.Router) *Server {
	srv := &Server{
		engine:  eng,
		indexer: ix,
		router:  router,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "code-graph-guard",
				Version: "0.1.0",
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	// 1. index_path
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_path",
		Description: "Index a repository path into a (project, branch) scope. Discovers JS/TS source files, parses functions/classes/components/hooks, derives relationship edges, and upserts everything in one batched transaction. Unchanged files are skipped via content hashing.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name (no path separators or '@')"
				},
				"branch": {
					"type": "string",
					"description": "Branch name (default: main)"
				},
				"path": {
					"type": "string",
					"description": "Absolute path to the repository root to index"
				}
			},
			"required": ["project", "path"]
		}`),
	}, s.handleIndexPath)

	// 2. upsert_entities
	s.mcp.AddTool(&mcp.Tool{
		Name:        "upsert_entities",
		Description: "Merge a batch of code entities into a scope's graph by (kind, name) identity and derive their relationship edges. New entities are created, changed bodies are updated, unchanged entities are left untouched. Idempotent: repeating the same batch reports everything unchanged.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name"
				},
				"branch": {
					"type": "string",
					"description": "Branch name (default: main)"
				},
				"entities": {
					"type": "array",
					"description": "Entities to upsert. Each has kind (File|Function|Class|Component|Hook|Module|ExportedItem|Interface; case-insensitive, exported_item also accepted), name, body, and optional file_path plus relationship lists (contains, imports, exports, calls, instantiates, extends, implements, uses_hooks, styles).",
					"items": {"type": "object"}
				}
			},
			"required": ["project", "entities"]
		}`),
	}, s.handleUpsertEntities)

	// 3. classify_candidates
	s.mcp.AddTool(&mcp.Tool{
		Name:        "classify_candidates",
		Description: "Compare candidate entities against the indexed scope without writing anything. Each candidate is classified NEW (not indexed), MATCHING (body equivalent after comment/whitespace normalization), or MODIFIED (body differs; the indexed body is returned for diffing).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name"
				},
				"branch": {
					"type": "string",
					"description": "Branch name (default: main)"
				},
				"candidates": {
					"type": "array",
					"description": "Candidates to classify. Each has kind (same set and spellings as upsert_entities), name, and body.",
					"items": {"type": "object"}
				}
			},
			"required": ["project", "candidates"]
		}`),
	}, s.handleClassifyCandidates)

	// 4. analyze_relationships
	s.mcp.AddTool(&mcp.Tool{
		Name:        "analyze_relationships",
		Description: "Run a bounded BFS over a scope's relationship graph. Returns visited entities with hop distance, traversed edges, per-type edge counts, and orphaned entities (no edges at all). Cycles are handled via a visited set.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name"
				},
				"branch": {
					"type": "string",
					"description": "Branch name (default: main)"
				},
				"analysis_type": {
					"type": "string",
					"description": "Which edge types to follow (default: all)",
					"enum": ["all", "function-calls", "class-inheritance", "imports", "dependencies"]
				},
				"element_name": {
					"type": "string",
					"description": "Start traversal from entities with this name. Empty: traverse from every entity."
				},
				"max_depth": {
					"type": "integer",
					"description": "Maximum BFS depth (1-5, default 3)"
				}
			},
			"required": ["project"]
		}`),
	}, s.handleAnalyzeRelationships)

	// 5. compare_branches
	s.mcp.AddTool(&mcp.Tool{
		Name:        "compare_branches",
		Description: "Compute the element set difference between two branches of the same project: entities common to both, only in the first, and only in the second. Identity is (kind, name); bodies are not compared.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name"
				},
				"branch_a": {
					"type": "string",
					"description": "First branch"
				},
				"branch_b": {
					"type": "string",
					"description": "Second branch"
				}
			},
			"required": ["project", "branch_a", "branch_b"]
		}`),
	}, s.handleCompareBranches)

	// 6. create_scope
	s.mcp.AddTool(&mcp.Tool{
		Name:        "create_scope",
		Description: "Create a (project, branch) scope, including the project database if this is the project's first scope. Creating an existing scope is a no-op.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name"
				},
				"branch": {
					"type": "string",
					"description": "Branch name (default: main)"
				}
			},
			"required": ["project"]
		}`),
	}, s.handleCreateScope)

	// 7. list_scopes
	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_scopes",
		Description: "List all known (project, branch) scopes with their entity and edge counts.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleListScopes)

	// 8. clear_scope
	s.mcp.AddTool(&mcp.Tool{
		Name:        "clear_scope",
		Description: "Delete all entities and edges in a scope while keeping the scope itself, so future indexing reuses the same identity.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name"
				},
				"branch": {
					"type": "string",
					"description": "Branch name (default: main)"
				}
			},
			"required": ["project"]
		}`),
	}, s.handleClearScope)

	// 9. delete_scope
	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_scope",
		Description: "Delete a scope and everything in it. This action is irreversible.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Project name"
				},
				"branch": {
					"type": "string",
					"description": "Branch name (default: main)"
				}
			},
			"required": ["project"]
		}`),
	}, s.handleDeleteScope)

	// 10. delete_project
	s.mcp.AddTool(&mcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project's database with all its scopes, entities, and edges. This action is irreversible.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {
					"type": "string",
					"description": "Name of the project to delete"
				}
			},
			"required": ["project"]
		}`),
	}, s.handleDeleteProject)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	v, ok := args[key]
	if !ok {
		return defaultVal
	}
	f, ok := v.(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// scopeFromArgs resolves the project/branch arguments into a ScopeRef.
func scopeFromArgs(args map[string]any) (engine.ScopeRef, error) {
	return engine.Resolve(getStringArg(args, "project"), getStringArg(args, "branch"))
}
