// Package engine implements the knowledge-graph indexing and
// differential-validation engine: scope resolution, idempotent batched
// entity upsert, relationship derivation, NEW/MATCHING/MODIFIED
// classification, bounded-depth relationship analysis, and branch
// comparison. All operations take an explicit (project, branch) scope;
// there is no implicit global scope.
package engine

import (
	"context"
	"strings"

	"github.com/graphward/code-graph-guard/internal/graph"
)

// DefaultBranch applies when a caller omits the branch name.
const DefaultBranch = "main"

// ScopeRef names one (project, branch) isolation unit.
type ScopeRef struct {
	Project string `json:"project"`
	Branch  string `json:"branch"`
}

// Key returns the deterministic opaque scope key.
func (r ScopeRef) Key() string {
	return r.Project + "@" + r.Branch
}

// ScopeInfo is one scope with its stored element counts.
type ScopeInfo struct {
	Project  string `json:"project"`
	Branch   string `json:"branch"`
	Entities int    `json:"entities"`
	Edges    int    `json:"edges"`
}

// Engine exposes the graph operations over a router of per-project stores.
type Engine struct {
	router *graph.Router
}

// New creates an Engine over the given store router.
func New(router *graph.Router) *Engine {
	return &Engine{router: router}
}

// Resolve normalizes a (project, branch) pair into a ScopeRef. It is pure:
// the same inputs always yield the same ref, the default branch applies when
// branch is empty, and no store access happens here.
func Resolve(project, branch string) (ScopeRef, error) {
	project = strings.TrimSpace(project)
	branch = strings.TrimSpace(branch)
	if project == "" {
		return ScopeRef{}, &InvalidScopeError{Reason: "project name is required"}
	}
	if strings.ContainsAny(project, "/\\@") {
		return ScopeRef{}, &InvalidScopeError{Reason: "project name must not contain path separators or '@'"}
	}
	if branch == "" {
		branch = DefaultBranch
	}
	return ScopeRef{Project: project, Branch: branch}, nil
}

// openScope opens the project store and creates the scope row if absent.
func (e *Engine) openScope(ref ScopeRef) (*graph.Store, int64, error) {
	st, err := e.router.ForProject(ref.Project)
	if err != nil {
		return nil, 0, &InvalidScopeError{Reason: err.Error()}
	}
	id, err := st.UpsertScope(ref.Project, ref.Branch)
	if err != nil {
		return nil, 0, storeErr("scope resolve", err)
	}
	return st, id, nil
}

// findScope opens the project store and looks up an existing scope row.
// Unlike openScope it never creates the scope.
func (e *Engine) findScope(ref ScopeRef) (*graph.Store, *graph.Scope, error) {
	if !e.router.HasProject(ref.Project) {
		return nil, nil, &InvalidScopeError{Reason: "project not indexed: " + ref.Project}
	}
	st, err := e.router.ForProject(ref.Project)
	if err != nil {
		return nil, nil, &InvalidScopeError{Reason: err.Error()}
	}
	sc, err := st.GetScope(ref.Project, ref.Branch)
	if err != nil {
		return nil, nil, storeErr("scope lookup", err)
	}
	if sc == nil {
		return nil, nil, &InvalidScopeError{Reason: "scope not found: " + ref.Key()}
	}
	return st, sc, nil
}

// CreateScope ensures the scope exists, creating project database and scope
// row as needed.
func (e *Engine) CreateScope(ctx context.Context, ref ScopeRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := e.openScope(ref)
	return err
}

// ListScopes returns every known scope across all project stores, with
// entity and edge counts.
func (e *Engine) ListScopes(ctx context.Context) ([]ScopeInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	projects, err := e.router.ListProjects()
	if err != nil {
		return nil, storeErr("list projects", err)
	}

	var result []ScopeInfo
	for _, p := range projects {
		st, err := e.router.ForProject(p.Name)
		if err != nil {
			return nil, storeErr("open project", err)
		}
		scopes, err := st.ListScopes()
		if err != nil {
			return nil, storeErr("list scopes", err)
		}
		for _, sc := range scopes {
			entities, err := st.CountEntities(sc.ID)
			if err != nil {
				return nil, storeErr("count entities", err)
			}
			edges, err := st.CountEdges(sc.ID)
			if err != nil {
				return nil, storeErr("count edges", err)
			}
			result = append(result, ScopeInfo{
				Project:  sc.Project,
				Branch:   sc.Branch,
				Entities: entities,
				Edges:    edges,
			})
		}
	}
	return result, nil
}

// ClearScope deletes all entities and edges in a scope while keeping its
// identity, so future indexing recreates the content under the same scope.
func (e *Engine) ClearScope(ctx context.Context, ref ScopeRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, sc, err := e.findScope(ref)
	if err != nil {
		return err
	}
	if err := st.ClearScope(sc.ID); err != nil {
		return storeErr("clear scope", err)
	}
	return nil
}

// DeleteScope removes the scope and everything in it.
func (e *Engine) DeleteScope(ctx context.Context, ref ScopeRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, sc, err := e.findScope(ref)
	if err != nil {
		return err
	}
	if err := st.DeleteScope(sc.ID); err != nil {
		return storeErr("delete scope", err)
	}
	return nil
}
