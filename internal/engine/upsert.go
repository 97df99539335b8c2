package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/graphward/code-graph-guard/internal/graph"
)

// UpsertReport summarizes one indexing call.
type UpsertReport struct {
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Unchanged    int `json:"unchanged"`
	EdgesDerived int `json:"edges_derived"`
}

// UpsertEntities merges a batch of parsed entities into the scope's graph by
// (scope, kind, name) identity and derives their relationship edges, all
// within one store transaction. Indexing N entities costs a bounded number
// of batched statements, not one round trip per entity.
//
// Absent entities are inserted with created_at = updated_at = now; present
// entities with a differing body get body and updated_at replaced; identical
// entities are not written at all. Re-upserting is therefore idempotent.
func (e *Engine) UpsertEntities(ctx context.Context, ref ScopeRef, entities []ParsedEntity) (*UpsertReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// A malformed entity fails the whole batch before anything is written.
	for i := range entities {
		if err := entities[i].validate(); err != nil {
			return nil, err
		}
	}
	deduped := dedupeByKey(entities)

	st, scopeID, err := e.openScope(ref)
	if err != nil {
		return nil, err
	}

	report := &UpsertReport{}
	now := graph.Now()

	txErr := st.WithTransaction(func(tx *graph.Store) error {
		keys := make([]graph.EntityKey, len(deduped))
		for i := range deduped {
			keys[i] = deduped[i].Key()
		}
		existing, err := tx.FindEntitiesByKeys(scopeID, keys)
		if err != nil {
			return err
		}

		var toWrite []*graph.Entity
		for i := range deduped {
			p := &deduped[i]
			prev, ok := existing[p.Key()]
			switch {
			case !ok:
				report.Created++
			case prev.Body != nil && *prev.Body == p.Body:
				report.Unchanged++
				continue // identical: no write
			default:
				report.Updated++
			}
			body := p.Body
			toWrite = append(toWrite, &graph.Entity{
				ScopeID:   scopeID,
				Kind:      string(p.Kind),
				Name:      p.Name,
				Body:      &body,
				FilePath:  p.FilePath,
				CreatedAt: now, // ignored on conflict: created_at is never updated
				UpdatedAt: now,
			})
		}
		if err := tx.UpsertEntityBatch(toWrite); err != nil {
			return err
		}

		edges, err := deriveEdges(tx, scopeID, deduped, now)
		if err != nil {
			return err
		}
		report.EdgesDerived = len(edges)
		return nil
	})
	if txErr != nil {
		return nil, asEngineErr("upsert entities", txErr)
	}

	slog.Debug("engine.upsert", "scope", ref.Key(),
		"created", report.Created, "updated", report.Updated,
		"unchanged", report.Unchanged, "edges", report.EdgesDerived)
	return report, nil
}

// dedupeByKey collapses entities sharing an identity key, last write wins.
// A batch that names the same entity twice would otherwise double-count.
func dedupeByKey(entities []ParsedEntity) []ParsedEntity {
	seen := make(map[graph.EntityKey]int, len(entities))
	result := make([]ParsedEntity, 0, len(entities))
	for i := range entities {
		key := entities[i].Key()
		if idx, ok := seen[key]; ok {
			result[idx] = entities[i]
			continue
		}
		seen[key] = len(result)
		result = append(result, entities[i])
	}
	return result
}

// asEngineErr passes engine taxonomy and context errors through and wraps
// everything else as a store failure.
func asEngineErr(op string, err error) error {
	var invalidScope *InvalidScopeError
	var malformed *MalformedEntityError
	var depth *DepthOutOfRangeError
	var unavailable *StoreUnavailableError
	switch {
	case errors.As(err, &invalidScope),
		errors.As(err, &malformed),
		errors.As(err, &depth),
		errors.As(err, &unavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return storeErr(op, err)
}
