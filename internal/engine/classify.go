package engine

import (
	"context"

	"github.com/graphward/code-graph-guard/internal/graph"
)

// Status is the verdict comparing a candidate element to the indexed graph.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusMatching Status = "MATCHING"
	StatusModified Status = "MODIFIED"
)

// Candidate is one element under validation, e.g. a newly authored function.
type Candidate struct {
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
	Body string     `json:"body"`
}

// Classification is the per-candidate verdict. ExistingBody carries the
// indexed body when the candidate is MODIFIED, so callers can diff.
type Classification struct {
	Name         string     `json:"name"`
	Kind         EntityKind `json:"kind"`
	Status       Status     `json:"status"`
	ExistingBody string     `json:"existing_body,omitempty"`
}

// ClassifyCandidates compares candidates against the indexed scope in one
// batched lookup and classifies each as NEW, MATCHING, or MODIFIED.
// Bodies are compared after normalization (see NormalizeBody), so
// cosmetic-only differences report MATCHING. Read-only: callers decide
// separately whether to upsert.
func (e *Engine) ClassifyCandidates(ctx context.Context, ref ScopeRef, candidates []Candidate) ([]Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.Name == "" {
			return nil, &MalformedEntityError{Kind: string(c.Kind), Name: c.Name, Reason: "missing name"}
		}
		if !c.Kind.Valid() {
			return nil, &MalformedEntityError{Kind: string(c.Kind), Name: c.Name, Reason: "unknown entity kind"}
		}
	}

	st, sc, err := e.findScope(ref)
	if err != nil {
		return nil, err
	}

	keys := make([]graph.EntityKey, len(candidates))
	for i, c := range candidates {
		keys[i] = graph.EntityKey{Kind: string(c.Kind), Name: c.Name}
	}
	existing, err := st.FindEntitiesByKeys(sc.ID, keys)
	if err != nil {
		return nil, storeErr("classify candidates", err)
	}

	result := make([]Classification, len(candidates))
	for i, c := range candidates {
		cl := Classification{Name: c.Name, Kind: c.Kind}
		prev, ok := existing[keys[i]]
		switch {
		case !ok:
			cl.Status = StatusNew
		case prev.Body != nil && normalizedHash(*prev.Body) == normalizedHash(c.Body):
			cl.Status = StatusMatching
		default:
			// Placeholders (nil body) have an identity but no content yet;
			// a candidate carrying content counts as a modification.
			cl.Status = StatusModified
			if prev.Body != nil {
				cl.ExistingBody = *prev.Body
			}
		}
		result[i] = cl
	}
	return result, nil
}
