package engine

import (
	"encoding/json"
	"strings"

	"github.com/graphward/code-graph-guard/internal/graph"
)

// EntityKind is the closed set of structural element kinds the graph stores.
type EntityKind string

const (
	KindFile         EntityKind = "File"
	KindFunction     EntityKind = "Function"
	KindClass        EntityKind = "Class"
	KindComponent    EntityKind = "Component"
	KindHook         EntityKind = "Hook"
	KindModule       EntityKind = "Module"
	KindExportedItem EntityKind = "ExportedItem"
	KindInterface    EntityKind = "Interface"
)

var validKinds = map[EntityKind]bool{
	KindFile: true, KindFunction: true, KindClass: true, KindComponent: true,
	KindHook: true, KindModule: true, KindExportedItem: true, KindInterface: true,
}

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return validKinds[k]
}

// kindSpellings maps folded kind spellings to their canonical form, so
// clients may write "function" or "exported_item" for Function and
// ExportedItem.
var kindSpellings = func() map[string]EntityKind {
	m := make(map[string]EntityKind, len(validKinds))
	for k := range validKinds {
		m[foldKind(string(k))] = k
	}
	return m
}()

func foldKind(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "")
}

// KindFromString resolves a kind spelling to its canonical EntityKind,
// ignoring case and underscores. ok is false for unknown kinds.
func KindFromString(s string) (EntityKind, bool) {
	k, ok := kindSpellings[foldKind(s)]
	return k, ok
}

// UnmarshalJSON canonicalizes kind spellings arriving over the tool surface.
// Unknown spellings are kept verbatim so validation can report them.
func (k *EntityKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if canonical, ok := KindFromString(s); ok {
		*k = canonical
	} else {
		*k = EntityKind(s)
	}
	return nil
}

// Edge types derived from parsed reference lists.
const (
	EdgeContains     = "CONTAINS"
	EdgeImports      = "IMPORTS"
	EdgeExports      = "EXPORTS"
	EdgeCalls        = "CALLS"
	EdgeInstantiates = "INSTANTIATES"
	EdgeExtends      = "EXTENDS"
	EdgeImplements   = "IMPLEMENTS"
	EdgeUses         = "USES"
	EdgeStyles       = "STYLES"
)

// Ref names a contained element together with its kind; used where the
// target kind cannot be inferred from the edge type alone.
type Ref struct {
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
}

// ImportRef is one import declaration with its named bindings.
type ImportRef struct {
	Module   string   `json:"module"`
	Bindings []string `json:"bindings,omitempty"`
}

// ExportRef is one exported item, default or named.
type ExportRef struct {
	Name    string `json:"name"`
	Default bool   `json:"default,omitempty"`
}

// ParsedEntity is the parser's output for one structural element: identity,
// canonical body, and the declared references later materialized as edges.
type ParsedEntity struct {
	Kind     EntityKind `json:"kind"`
	Name     string     `json:"name"`
	Body     string     `json:"body"`
	FilePath string     `json:"file_path,omitempty"`

	Contains     []Ref       `json:"contains,omitempty"`     // File → Function/Class/Component
	Imports      []ImportRef `json:"imports,omitempty"`      // File → Module
	Exports      []ExportRef `json:"exports,omitempty"`      // File → ExportedItem
	Calls        []string    `json:"calls,omitempty"`        // Function → Function
	Instantiates []string    `json:"instantiates,omitempty"` // Function → Class
	Extends      []string    `json:"extends,omitempty"`      // Class/Component → Class
	Implements   []string    `json:"implements,omitempty"`   // Class → Interface
	UsesHooks    []string    `json:"uses_hooks,omitempty"`   // File → Hook
	Styles       []string    `json:"styles,omitempty"`       // File → styled element
}

// Key returns the entity's in-scope identity key.
func (p *ParsedEntity) Key() graph.EntityKey {
	return graph.EntityKey{Kind: string(p.Kind), Name: p.Name}
}

// validate checks the identity fields required of every entity.
func (p *ParsedEntity) validate() error {
	if p.Name == "" {
		return &MalformedEntityError{Kind: string(p.Kind), Name: p.Name, Reason: "missing name"}
	}
	if !p.Kind.Valid() {
		return &MalformedEntityError{Kind: string(p.Kind), Name: p.Name, Reason: "unknown entity kind"}
	}
	return nil
}
