package engine

import (
	"context"
	"sort"

	"github.com/graphward/code-graph-guard/internal/graph"
)

// BranchDiff partitions the elements of two branches of one project by
// (kind, name) identity — scope deliberately excluded so the same function
// in both branches matches. Elements present in both with differing bodies
// still count as common: this reports structural presence, not content
// equality, which is ClassifyCandidates' job.
type BranchDiff struct {
	ScopeA string       `json:"scope_a"`
	ScopeB string       `json:"scope_b"`
	Common []ElementRef `json:"common"`
	OnlyA  []ElementRef `json:"only_a"`
	OnlyB  []ElementRef `json:"only_b"`
}

// CompareBranches computes the element set difference between two scopes of
// the same project. Comparing scopes of different projects is an
// InvalidScopeError.
func (e *Engine) CompareBranches(ctx context.Context, refA, refB ScopeRef) (*BranchDiff, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if refA.Project != refB.Project {
		return nil, &InvalidScopeError{
			Reason: "branch comparison requires scopes of the same project: " +
				refA.Key() + " vs " + refB.Key(),
		}
	}
	if refA.Branch == refB.Branch {
		return nil, &InvalidScopeError{Reason: "cannot compare a branch with itself: " + refA.Key()}
	}

	st, scA, err := e.findScope(refA)
	if err != nil {
		return nil, err
	}
	_, scB, err := e.findScope(refB)
	if err != nil {
		return nil, err
	}

	keysA, err := st.AllEntityKeys(scA.ID)
	if err != nil {
		return nil, storeErr("compare branches", err)
	}
	keysB, err := st.AllEntityKeys(scB.ID)
	if err != nil {
		return nil, storeErr("compare branches", err)
	}

	setA := make(map[graph.EntityKey]bool, len(keysA))
	for _, k := range keysA {
		setA[k] = true
	}
	setB := make(map[graph.EntityKey]bool, len(keysB))
	for _, k := range keysB {
		setB[k] = true
	}

	diff := &BranchDiff{ScopeA: refA.Key(), ScopeB: refB.Key()}
	for _, k := range keysA {
		if setB[k] {
			diff.Common = append(diff.Common, ElementRef{Kind: k.Kind, Name: k.Name})
		} else {
			diff.OnlyA = append(diff.OnlyA, ElementRef{Kind: k.Kind, Name: k.Name})
		}
	}
	for _, k := range keysB {
		if !setA[k] {
			diff.OnlyB = append(diff.OnlyB, ElementRef{Kind: k.Kind, Name: k.Name})
		}
	}

	sortRefs(diff.Common)
	sortRefs(diff.OnlyA)
	sortRefs(diff.OnlyB)
	return diff, nil
}

func sortRefs(refs []ElementRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Name < refs[j].Name
	})
}
