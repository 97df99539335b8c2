package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/graphward/code-graph-guard/internal/engine"
	"github.com/graphward/code-graph-guard/internal/graph"
)

func newTestIndexer(t *testing.T) (*Indexer, *engine.Engine) {
	t.Helper()
	router, err := graph.NewRouter(t.TempDir())
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	t.Cleanup(router.CloseAll)
	eng := engine.New(router)
	return New(eng, router), eng
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestIndexRepository(t *testing.T) {
	ix, eng := newTestIndexer(t)
	ctx := context.Background()

	repo := writeRepo(t, map[string]string{
		"src/auth.ts": "function login(u) { return validate(u); }\nfunction validate(u) { return !!u; }\n",
		"src/ui.tsx":  "const App = () => <div />;\nexport default App;\n",
	})

	ref, _ := engine.Resolve("app", "main")
	report, err := ix.Index(ctx, ref, repo, nil)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if report.FilesSeen != 2 || report.FilesParsed != 2 || report.FilesCached != 0 {
		t.Errorf("unexpected file counts: %+v", report)
	}
	if report.Upsert.Created == 0 {
		t.Errorf("expected created entities, got %+v", report.Upsert)
	}

	cls, err := eng.ClassifyCandidates(ctx, ref, []engine.Candidate{
		{Kind: engine.KindFunction, Name: "login", Body: "function login(u) { return validate(u); }"},
	})
	if err != nil {
		t.Fatalf("ClassifyCandidates: %v", err)
	}
	if cls[0].Status != engine.StatusMatching {
		t.Errorf("indexed function should classify MATCHING, got %+v", cls[0])
	}
}

func TestIndexIncrementalSkipsUnchanged(t *testing.T) {
	ix, _ := newTestIndexer(t)
	ctx := context.Background()

	repo := writeRepo(t, map[string]string{
		"a.ts": "function a() {}\n",
		"b.ts": "function b() {}\n",
	})
	ref, _ := engine.Resolve("app", "main")

	if _, err := ix.Index(ctx, ref, repo, nil); err != nil {
		t.Fatalf("first index: %v", err)
	}

	second, err := ix.Index(ctx, ref, repo, nil)
	if err != nil {
		t.Fatalf("second index: %v", err)
	}
	if second.FilesCached != 2 || second.FilesParsed != 0 {
		t.Errorf("expected full cache hit, got %+v", second)
	}

	// Touch one file with new content: only that file re-parses.
	if err := os.WriteFile(filepath.Join(repo, "a.ts"), []byte("function a() { return 1; }\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	third, err := ix.Index(ctx, ref, repo, nil)
	if err != nil {
		t.Fatalf("third index: %v", err)
	}
	if third.FilesParsed != 1 || third.FilesCached != 1 {
		t.Errorf("expected 1 parsed / 1 cached, got %+v", third)
	}
	if third.Upsert.Updated == 0 {
		t.Errorf("expected updated entities after content change, got %+v", third.Upsert)
	}
}

func TestIndexSeparateBranches(t *testing.T) {
	ix, eng := newTestIndexer(t)
	ctx := context.Background()

	repo := writeRepo(t, map[string]string{"a.ts": "function a() {}\n"})

	refMain, _ := engine.Resolve("app", "main")
	refFeat, _ := engine.Resolve("app", "feature")
	if _, err := ix.Index(ctx, refMain, repo, nil); err != nil {
		t.Fatalf("index main: %v", err)
	}
	if _, err := ix.Index(ctx, refFeat, repo, nil); err != nil {
		t.Fatalf("index feature: %v", err)
	}

	scopes, err := eng.ListScopes(ctx)
	if err != nil {
		t.Fatalf("ListScopes: %v", err)
	}
	if len(scopes) != 2 {
		t.Fatalf("expected 2 scopes, got %+v", scopes)
	}
	for _, sc := range scopes {
		if sc.Entities == 0 {
			t.Errorf("scope %s@%s has no entities", sc.Project, sc.Branch)
		}
	}
}
