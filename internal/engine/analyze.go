package engine

import (
	"context"
	"sort"

	"github.com/graphward/code-graph-guard/internal/graph"
)

// Traversal depth bounds.
const (
	MinDepth = 1
	MaxDepth = 5
)

// AnalysisType selects which edge types a traversal follows.
type AnalysisType string

const (
	AnalysisAll          AnalysisType = "all"
	AnalysisCalls        AnalysisType = "function-calls"
	AnalysisInheritance  AnalysisType = "class-inheritance"
	AnalysisImports      AnalysisType = "imports"
	AnalysisDependencies AnalysisType = "dependencies"
)

// edgeTypesFor maps an analysis type to the edge types it traverses.
// AnalysisAll returns nil, meaning no filter.
func edgeTypesFor(t AnalysisType) ([]string, bool) {
	switch t {
	case AnalysisAll, "":
		return nil, true
	case AnalysisCalls:
		return []string{EdgeCalls}, true
	case AnalysisInheritance:
		return []string{EdgeExtends, EdgeImplements}, true
	case AnalysisImports:
		return []string{EdgeImports}, true
	case AnalysisDependencies:
		return []string{EdgeInstantiates, EdgeUses}, true
	default:
		return nil, false
	}
}

// AnalyzeOptions configures one relationship analysis.
type AnalyzeOptions struct {
	Type        AnalysisType `json:"analysis_type"`
	ElementName string       `json:"element_name,omitempty"` // empty: traverse from every entity
	MaxDepth    int          `json:"max_depth"`
}

// VisitedEntity is one entity reached by the traversal, with its hop distance.
type VisitedEntity struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Hop  int    `json:"hop"`
}

// TraversedEdge is one edge actually followed.
type TraversedEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// ElementRef identifies an entity by kind and name.
type ElementRef struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// RelationshipReport is the analyzer output: what was visited, which edges
// were followed, per-type counts, and the scope's orphaned entities.
type RelationshipReport struct {
	Scope      string          `json:"scope"`
	Type       AnalysisType    `json:"analysis_type"`
	MaxDepth   int             `json:"max_depth"`
	Visited    []VisitedEntity `json:"visited"`
	Edges      []TraversedEdge `json:"edges"`
	EdgeCounts map[string]int  `json:"edge_counts"`
	Orphans    []ElementRef    `json:"orphans"`
}

// AnalyzeRelationships runs a breadth-first traversal over the scope's graph,
// bounded by MaxDepth (1..5). Starting points are the entities named
// ElementName, or every entity when it is empty. Cycles terminate via a
// visited set keyed by entity identity; each entity is reported at its
// shortest hop distance exactly once.
//
// The whole analysis costs a constant number of store reads: the scope graph
// is loaded with two scans and traversed in memory.
func (e *Engine) AnalyzeRelationships(ctx context.Context, ref ScopeRef, opts AnalyzeOptions) (*RelationshipReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.MaxDepth < MinDepth || opts.MaxDepth > MaxDepth {
		return nil, &DepthOutOfRangeError{Depth: opts.MaxDepth}
	}
	edgeTypes, ok := edgeTypesFor(opts.Type)
	if !ok {
		return nil, &UnknownAnalysisTypeError{Type: string(opts.Type)}
	}

	st, sc, err := e.findScope(ref)
	if err != nil {
		return nil, err
	}
	g, err := st.LoadScopeGraph(sc.ID, edgeTypes)
	if err != nil {
		return nil, storeErr("load scope graph", err)
	}

	roots := selectRoots(g, opts.ElementName)
	report := &RelationshipReport{
		Scope:      ref.Key(),
		Type:       opts.Type,
		MaxDepth:   opts.MaxDepth,
		EdgeCounts: make(map[string]int),
	}
	if report.Type == "" {
		report.Type = AnalysisAll
	}

	visited := make(map[int64]int, len(g.Entities)) // entity ID → hop
	seenEdges := make(map[int64]bool)

	for _, root := range roots {
		if _, ok := visited[root.ID]; ok {
			continue
		}
		bfs(g, root.ID, opts.MaxDepth, visited, seenEdges, report)
	}

	sort.Slice(report.Visited, func(i, j int) bool {
		if report.Visited[i].Hop != report.Visited[j].Hop {
			return report.Visited[i].Hop < report.Visited[j].Hop
		}
		return report.Visited[i].Name < report.Visited[j].Name
	})

	orphans, err := st.Orphans(sc.ID)
	if err != nil {
		return nil, storeErr("orphans", err)
	}
	report.Orphans = make([]ElementRef, len(orphans))
	for i, o := range orphans {
		report.Orphans[i] = ElementRef{Kind: o.Kind, Name: o.Name}
	}
	return report, nil
}

// selectRoots picks the traversal starting points: entities matching the
// element name, or every entity (in deterministic order) when name is empty.
func selectRoots(g *graph.ScopeGraph, elementName string) []*graph.Entity {
	var roots []*graph.Entity
	for _, ent := range g.Entities {
		if elementName == "" || ent.Name == elementName {
			roots = append(roots, ent)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		if roots[i].Kind != roots[j].Kind {
			return roots[i].Kind < roots[j].Kind
		}
		return roots[i].Name < roots[j].Name
	})
	return roots
}

// bfs walks outbound edges from start up to maxDepth hops, sharing the
// visited set across roots so nothing is reported twice.
func bfs(g *graph.ScopeGraph, start int64, maxDepth int, visited map[int64]int, seenEdges map[int64]bool, report *RelationshipReport) {
	type queueItem struct {
		id  int64
		hop int
	}
	visited[start] = 0
	if ent := g.Entities[start]; ent != nil {
		report.Visited = append(report.Visited, VisitedEntity{Name: ent.Name, Kind: ent.Kind, Hop: 0})
	}
	queue := []queueItem{{start, 0}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.hop >= maxDepth {
			continue
		}
		for _, edge := range g.Out[item.id] {
			if !seenEdges[edge.ID] {
				seenEdges[edge.ID] = true
				report.EdgeCounts[edge.Type]++
				from, to := g.Entities[edge.SourceID], g.Entities[edge.TargetID]
				if from != nil && to != nil {
					report.Edges = append(report.Edges, TraversedEdge{From: from.Name, To: to.Name, Type: edge.Type})
				}
			}
			if _, seen := visited[edge.TargetID]; seen {
				continue
			}
			visited[edge.TargetID] = item.hop + 1
			if ent := g.Entities[edge.TargetID]; ent != nil {
				report.Visited = append(report.Visited, VisitedEntity{Name: ent.Name, Kind: ent.Kind, Hop: item.hop + 1})
			}
			queue = append(queue, queueItem{edge.TargetID, item.hop + 1})
		}
	}
}
