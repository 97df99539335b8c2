package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/graphward/code-graph-guard/internal/graph"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	router, err := graph.NewRouter(t.TempDir())
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	t.Cleanup(router.CloseAll)
	return New(router)
}

func testScope(t *testing.T, e *Engine) ScopeRef {
	t.Helper()
	ref, err := Resolve("app", "main")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := e.CreateScope(context.Background(), ref); err != nil {
		t.Fatalf("CreateScope: %v", err)
	}
	return ref
}

func TestResolveDefaults(t *testing.T) {
	ref, err := Resolve("app", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref.Branch != DefaultBranch {
		t.Errorf("expected default branch %q, got %q", DefaultBranch, ref.Branch)
	}
	if ref.Key() != "app@main" {
		t.Errorf("unexpected scope key: %s", ref.Key())
	}

	// Resolution is pure: same inputs, same ref.
	again, _ := Resolve("app", "")
	if again != ref {
		t.Errorf("resolve not deterministic: %v vs %v", again, ref)
	}
}

func TestResolveRejectsInvalidProject(t *testing.T) {
	for _, project := range []string{"", "  ", "a/b", `a\b`, "a@b"} {
		_, err := Resolve(project, "main")
		var invalid *InvalidScopeError
		if !errors.As(err, &invalid) {
			t.Errorf("Resolve(%q): expected InvalidScopeError, got %v", project, err)
		}
	}
}

func TestScopeLifecycle(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ref := testScope(t, e)

	// Creating an existing scope is a no-op.
	if err := e.CreateScope(ctx, ref); err != nil {
		t.Fatalf("CreateScope again: %v", err)
	}

	if _, err := e.UpsertEntities(ctx, ref, []ParsedEntity{
		{Kind: KindFunction, Name: "login", Body: "function login() {}"},
	}); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}

	scopes, err := e.ListScopes(ctx)
	if err != nil {
		t.Fatalf("ListScopes: %v", err)
	}
	if len(scopes) != 1 || scopes[0].Entities != 1 {
		t.Fatalf("unexpected scopes: %+v", scopes)
	}

	if err := e.ClearScope(ctx, ref); err != nil {
		t.Fatalf("ClearScope: %v", err)
	}
	scopes, _ = e.ListScopes(ctx)
	if scopes[0].Entities != 0 {
		t.Errorf("expected empty scope after clear, got %d entities", scopes[0].Entities)
	}

	if err := e.DeleteScope(ctx, ref); err != nil {
		t.Fatalf("DeleteScope: %v", err)
	}
	scopes, _ = e.ListScopes(ctx)
	if len(scopes) != 0 {
		t.Errorf("expected no scopes after delete, got %+v", scopes)
	}
}

func TestOperationsOnMissingScope(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ref, _ := Resolve("ghost", "main")

	var invalid *InvalidScopeError

	_, err := e.ClassifyCandidates(ctx, ref, []Candidate{{Kind: KindFunction, Name: "f", Body: "x"}})
	if !errors.As(err, &invalid) {
		t.Errorf("ClassifyCandidates: expected InvalidScopeError, got %v", err)
	}

	_, err = e.AnalyzeRelationships(ctx, ref, AnalyzeOptions{MaxDepth: 3})
	if !errors.As(err, &invalid) {
		t.Errorf("AnalyzeRelationships: expected InvalidScopeError, got %v", err)
	}

	if err := e.ClearScope(ctx, ref); !errors.As(err, &invalid) {
		t.Errorf("ClearScope: expected InvalidScopeError, got %v", err)
	}
}
