package engine

import (
	"context"
	"errors"
	"testing"
)

func TestClassifyStatuses(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ref := testScope(t, e)

	if _, err := e.UpsertEntities(ctx, ref, []ParsedEntity{
		{Kind: KindFunction, Name: "login", Body: "function login(u) {\n  return auth(u);\n}"},
		{Kind: KindFunction, Name: "logout", Body: "function logout() { drop(); }"},
	}); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}

	cls, err := e.ClassifyCandidates(ctx, ref, []Candidate{
		// Identical body.
		{Kind: KindFunction, Name: "login", Body: "function login(u) {\n  return auth(u);\n}"},
		// Same code, different comments and formatting.
		{Kind: KindFunction, Name: "logout", Body: "// drops the session\nfunction logout()   {\n\tdrop(); /* server side */\n}"},
		// Not indexed at all.
		{Kind: KindFunction, Name: "refresh", Body: "function refresh() {}"},
	})
	if err != nil {
		t.Fatalf("ClassifyCandidates: %v", err)
	}

	want := []Status{StatusMatching, StatusMatching, StatusNew}
	for i, w := range want {
		if cls[i].Status != w {
			t.Errorf("candidate %s: expected %s, got %s", cls[i].Name, w, cls[i].Status)
		}
	}
}

func TestClassifyModifiedCarriesExistingBody(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ref := testScope(t, e)

	if _, err := e.UpsertEntities(ctx, ref, []ParsedEntity{
		{Kind: KindFunction, Name: "login", Body: "function login() { return 1; }"},
	}); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}

	cls, err := e.ClassifyCandidates(ctx, ref, []Candidate{
		{Kind: KindFunction, Name: "login", Body: "function login() { return 2; }"},
	})
	if err != nil {
		t.Fatalf("ClassifyCandidates: %v", err)
	}
	if cls[0].Status != StatusModified {
		t.Fatalf("expected MODIFIED, got %s", cls[0].Status)
	}
	if cls[0].ExistingBody != "function login() { return 1; }" {
		t.Errorf("expected indexed body for diffing, got %q", cls[0].ExistingBody)
	}
}

func TestClassifyReadOnly(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ref := testScope(t, e)

	if _, err := e.UpsertEntities(ctx, ref, []ParsedEntity{
		{Kind: KindFunction, Name: "login", Body: "v1"},
	}); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}
	if _, err := e.ClassifyCandidates(ctx, ref, []Candidate{
		{Kind: KindFunction, Name: "login", Body: "v2"},
	}); err != nil {
		t.Fatalf("ClassifyCandidates: %v", err)
	}

	// Classification must not have written the candidate body.
	cls, err := e.ClassifyCandidates(ctx, ref, []Candidate{
		{Kind: KindFunction, Name: "login", Body: "v1"},
	})
	if err != nil {
		t.Fatalf("second ClassifyCandidates: %v", err)
	}
	if cls[0].Status != StatusMatching {
		t.Errorf("classification mutated the graph: %+v", cls[0])
	}
}

func TestClassifyScopeIsolation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	refMain, _ := Resolve("app", "main")
	refFeature, _ := Resolve("app", "feature")
	for _, ref := range []ScopeRef{refMain, refFeature} {
		if err := e.CreateScope(ctx, ref); err != nil {
			t.Fatalf("CreateScope %s: %v", ref.Key(), err)
		}
	}

	if _, err := e.UpsertEntities(ctx, refMain, []ParsedEntity{
		{Kind: KindFunction, Name: "Foo", Body: "function Foo() {}"},
	}); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}

	// Foo is indexed in main only; feature must not see it.
	cls, err := e.ClassifyCandidates(ctx, refFeature, []Candidate{
		{Kind: KindFunction, Name: "Foo", Body: "function Foo() {}"},
	})
	if err != nil {
		t.Fatalf("ClassifyCandidates: %v", err)
	}
	if cls[0].Status != StatusNew {
		t.Errorf("scope isolation violated: %+v", cls[0])
	}
}

func TestClassifyRejectsMalformedCandidate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	ref := testScope(t, e)

	_, err := e.ClassifyCandidates(ctx, ref, []Candidate{{Kind: KindFunction, Name: "", Body: "x"}})
	var malformed *MalformedEntityError
	if !errors.As(err, &malformed) {
		t.Errorf("expected MalformedEntityError, got %v", err)
	}
}

func TestNormalizeBody(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		same bool
	}{
		{"whitespace only", "function f() {  return 1;  }", "function f() {\n\treturn 1;\n}", true},
		{"line comments", "function f() { return 1; } // done", "function f() { return 1; }", true},
		{"block comments", "function f() { /* note */ return 1; }", "function f() { return 1; }", true},
		{"comment-like string kept", `const s = "// not a comment";`, `const s = "";`, false},
		{"real change", "function f() { return 1; }", "function f() { return 2; }", false},
		{"whitespace inside string kept", `const s = "a  b";`, `const s = "a b";`, false},
	}
	for _, tc := range cases {
		got := NormalizeBody(tc.a) == NormalizeBody(tc.b)
		if got != tc.same {
			t.Errorf("%s: NormalizeBody(%q) vs (%q): same=%v, want %v", tc.name, tc.a, tc.b, got, tc.same)
		}
	}
}
