package engine

import (
	"context"

	"github.com/graphward/code-graph-guard/internal/graph"
)

// EdgeRecord describes one derived edge for reporting.
type EdgeRecord struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// edgeSpec is a derived edge before entity IDs are resolved.
type edgeSpec struct {
	Type       string
	Source     graph.EntityKey
	Target     graph.EntityKey
	Properties map[string]any
}

// DeriveRelationships derives and upserts the typed edges declared by the
// given entities without touching entity bodies. Referenced entities that do
// not exist yet (either endpoint) are materialized as placeholders in the
// same transaction so every edge's endpoints exist before it is persisted.
func (e *Engine) DeriveRelationships(ctx context.Context, ref ScopeRef, entities []ParsedEntity) ([]EdgeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := range entities {
		if err := entities[i].validate(); err != nil {
			return nil, err
		}
	}
	st, scopeID, err := e.openScope(ref)
	if err != nil {
		return nil, err
	}

	var records []EdgeRecord
	txErr := st.WithTransaction(func(tx *graph.Store) error {
		specs, err := deriveEdges(tx, scopeID, entities, graph.Now())
		if err != nil {
			return err
		}
		records = make([]EdgeRecord, len(specs))
		for i, sp := range specs {
			records[i] = EdgeRecord{Type: sp.Type, Source: sp.Source.Name, Target: sp.Target.Name}
		}
		return nil
	})
	if txErr != nil {
		return nil, asEngineErr("derive relationships", txErr)
	}
	return records, nil
}

// deriveEdges turns the entities' declared reference lists into edges and
// upserts them. Idempotent: re-deriving an existing edge is a no-op on the
// unique (source, target, type) key. Runs inside the caller's transaction.
func deriveEdges(tx *graph.Store, scopeID int64, entities []ParsedEntity, now string) ([]edgeSpec, error) {
	specs := collectEdgeSpecs(entities)
	if len(specs) == 0 {
		return nil, nil
	}

	// Resolve every endpoint in one batched read.
	keySet := make(map[graph.EntityKey]bool)
	var keys []graph.EntityKey
	addKey := func(k graph.EntityKey) {
		if !keySet[k] {
			keySet[k] = true
			keys = append(keys, k)
		}
	}
	for _, sp := range specs {
		addKey(sp.Source)
		addKey(sp.Target)
	}
	ids, err := tx.ResolveEntityIDs(scopeID, keys)
	if err != nil {
		return nil, err
	}

	// Endpoints missing from the graph become placeholders: kind inferred
	// from the reference context, nil body. A later upsert of the real
	// entity fills in the body without disturbing these edges.
	var missing []*graph.Entity
	for _, k := range keys {
		if _, ok := ids[k]; !ok {
			missing = append(missing, &graph.Entity{
				ScopeID:   scopeID,
				Kind:      k.Kind,
				Name:      k.Name,
				Body:      nil,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	if len(missing) > 0 {
		if err := tx.InsertPlaceholderBatch(missing); err != nil {
			return nil, err
		}
		missingKeys := make([]graph.EntityKey, len(missing))
		for i, m := range missing {
			missingKeys[i] = m.Key()
		}
		filled, err := tx.ResolveEntityIDs(scopeID, missingKeys)
		if err != nil {
			return nil, err
		}
		for k, id := range filled {
			ids[k] = id
		}
	}

	edges := make([]*graph.Edge, 0, len(specs))
	for _, sp := range specs {
		edges = append(edges, &graph.Edge{
			ScopeID:    scopeID,
			SourceID:   ids[sp.Source],
			TargetID:   ids[sp.Target],
			Type:       sp.Type,
			Properties: sp.Properties,
		})
	}
	if err := tx.UpsertEdgeBatch(edges); err != nil {
		return nil, err
	}
	return specs, nil
}

// collectEdgeSpecs expands declared reference lists into edge specs,
// deduplicating repeated declarations of the same edge.
func collectEdgeSpecs(entities []ParsedEntity) []edgeSpec {
	type edgeIdentity struct {
		Type   string
		Source graph.EntityKey
		Target graph.EntityKey
	}
	seen := make(map[edgeIdentity]bool)
	var specs []edgeSpec
	add := func(sp edgeSpec) {
		id := edgeIdentity{Type: sp.Type, Source: sp.Source, Target: sp.Target}
		if seen[id] || sp.Target.Name == "" {
			return
		}
		seen[id] = true
		specs = append(specs, sp)
	}

	for i := range entities {
		p := &entities[i]
		src := p.Key()
		for _, ref := range p.Contains {
			add(edgeSpec{Type: EdgeContains, Source: src,
				Target: graph.EntityKey{Kind: string(ref.Kind), Name: ref.Name}})
		}
		for _, imp := range p.Imports {
			add(edgeSpec{Type: EdgeImports, Source: src,
				Target:     graph.EntityKey{Kind: string(KindModule), Name: imp.Module},
				Properties: map[string]any{"imports": imp.Bindings}})
		}
		for _, exp := range p.Exports {
			add(edgeSpec{Type: EdgeExports, Source: src,
				Target:     graph.EntityKey{Kind: string(KindExportedItem), Name: exp.Name},
				Properties: map[string]any{"default": exp.Default}})
		}
		for _, name := range p.Calls {
			add(edgeSpec{Type: EdgeCalls, Source: src,
				Target: graph.EntityKey{Kind: string(KindFunction), Name: name}})
		}
		for _, name := range p.Instantiates {
			add(edgeSpec{Type: EdgeInstantiates, Source: src,
				Target: graph.EntityKey{Kind: string(KindClass), Name: name}})
		}
		for _, name := range p.Extends {
			add(edgeSpec{Type: EdgeExtends, Source: src,
				Target: graph.EntityKey{Kind: string(KindClass), Name: name}})
		}
		for _, name := range p.Implements {
			add(edgeSpec{Type: EdgeImplements, Source: src,
				Target: graph.EntityKey{Kind: string(KindInterface), Name: name}})
		}
		for _, name := range p.UsesHooks {
			add(edgeSpec{Type: EdgeUses, Source: src,
				Target: graph.EntityKey{Kind: string(KindHook), Name: name}})
		}
		for _, name := range p.Styles {
			add(edgeSpec{Type: EdgeStyles, Source: src,
				Target: graph.EntityKey{Kind: string(KindComponent), Name: name}})
		}
	}
	return specs
}
