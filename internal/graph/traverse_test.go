package graph

import "testing"

func TestLoadScopeGraph(t *testing.T) {
	s, scopeID := newTestStore(t)

	now := Now()
	if err := s.UpsertEntityBatch([]*Entity{
		{ScopeID: scopeID, Kind: "Function", Name: "a", Body: strPtr("a"), CreatedAt: now, UpdatedAt: now},
		{ScopeID: scopeID, Kind: "Function", Name: "b", Body: strPtr("b"), CreatedAt: now, UpdatedAt: now},
		{ScopeID: scopeID, Kind: "Class", Name: "C", Body: strPtr("c"), CreatedAt: now, UpdatedAt: now},
	}); err != nil {
		t.Fatalf("UpsertEntityBatch: %v", err)
	}
	ids, err := s.ResolveEntityIDs(scopeID, []EntityKey{
		{Kind: "Function", Name: "a"}, {Kind: "Function", Name: "b"}, {Kind: "Class", Name: "C"},
	})
	if err != nil {
		t.Fatalf("ResolveEntityIDs: %v", err)
	}
	aID := ids[EntityKey{Kind: "Function", Name: "a"}]
	bID := ids[EntityKey{Kind: "Function", Name: "b"}]
	cID := ids[EntityKey{Kind: "Class", Name: "C"}]

	if err := s.UpsertEdgeBatch([]*Edge{
		{ScopeID: scopeID, SourceID: aID, TargetID: bID, Type: "CALLS"},
		{ScopeID: scopeID, SourceID: aID, TargetID: cID, Type: "INSTANTIATES"},
	}); err != nil {
		t.Fatalf("UpsertEdgeBatch: %v", err)
	}

	g, err := s.LoadScopeGraph(scopeID, nil)
	if err != nil {
		t.Fatalf("LoadScopeGraph: %v", err)
	}
	if len(g.Entities) != 3 {
		t.Errorf("expected 3 entities, got %d", len(g.Entities))
	}
	if len(g.Out[aID]) != 2 {
		t.Errorf("expected 2 outbound edges from a, got %d", len(g.Out[aID]))
	}
	if len(g.In[bID]) != 1 {
		t.Errorf("expected 1 inbound edge to b, got %d", len(g.In[bID]))
	}

	// Type filter drops the INSTANTIATES edge.
	calls, err := s.LoadScopeGraph(scopeID, []string{"CALLS"})
	if err != nil {
		t.Fatalf("LoadScopeGraph filtered: %v", err)
	}
	if len(calls.Edges) != 1 || calls.Edges[0].Type != "CALLS" {
		t.Errorf("unexpected filtered edges: %+v", calls.Edges)
	}
}
