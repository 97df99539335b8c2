package graph

// ScopeGraph is an in-memory adjacency view of one scope, loaded with two
// sequential scans (entities, then edges) instead of per-node lookups.
type ScopeGraph struct {
	Entities map[int64]*Entity
	Out      map[int64][]*Edge
	In       map[int64][]*Edge
	Edges    []*Edge
}

// LoadScopeGraph loads all entities of a scope plus its edges of the given
// types (all types when edgeTypes is empty). Callers run BFS over the result;
// keeping traversal in memory bounds the store cost at two round trips
// regardless of depth.
func (s *Store) LoadScopeGraph(scopeID int64, edgeTypes []string) (*ScopeGraph, error) {
	entities, err := s.AllEntities(scopeID)
	if err != nil {
		return nil, err
	}
	edges, err := s.EdgesByScope(scopeID, edgeTypes)
	if err != nil {
		return nil, err
	}

	g := &ScopeGraph{
		Entities: make(map[int64]*Entity, len(entities)),
		Out:      make(map[int64][]*Edge),
		In:       make(map[int64][]*Edge),
		Edges:    edges,
	}
	for _, e := range entities {
		g.Entities[e.ID] = e
	}
	for _, e := range edges {
		g.Out[e.SourceID] = append(g.Out[e.SourceID], e)
		g.In[e.TargetID] = append(g.In[e.TargetID], e)
	}
	return g, nil
}
