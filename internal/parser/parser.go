// Package parser extracts structural entities from JavaScript and TypeScript
// source using tree-sitter. It produces the engine's ParsedEntity input; the
// engine itself never sees raw source text.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/graphward/code-graph-guard/internal/engine"
)

// Parser extracts code entities from JS/TS/TSX files.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// ParseFile parses one source file and returns its entities: a File entity
// named by relPath, plus one entity per declared function, class, component,
// or interface, each carrying its declared references.
func (p *Parser) ParseFile(ctx context.Context, absPath, relPath string) ([]engine.ParsedEntity, error) {
	source, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.Parse(ctx, relPath, source)
}

// Parse parses source text under the given rel path.
func (p *Parser) Parse(ctx context.Context, relPath string, source []byte) ([]engine.ParsedEntity, error) {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(languageFor(relPath))

	tree, err := tsParser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	defer tree.Close()

	ex := &extractor{source: source, relPath: relPath}
	ex.file = engine.ParsedEntity{
		Kind:     engine.KindFile,
		Name:     relPath,
		Body:     string(source),
		FilePath: relPath,
	}
	ex.walk(tree.RootNode())

	entities := make([]engine.ParsedEntity, 0, len(ex.declared)+1)
	entities = append(entities, ex.file)
	entities = append(entities, ex.declared...)
	return entities, nil
}

// languageFor picks the tree-sitter grammar from the file extension.
func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}
