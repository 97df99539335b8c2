// Package indexer orchestrates indexing a repository path into one scope:
// discover source files, skip unchanged ones via content hashes, parse the
// rest in parallel, and hand the parsed entities to the engine as a single
// batched upsert.
package indexer

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/graphward/code-graph-guard/internal/discover"
	"github.com/graphward/code-graph-guard/internal/engine"
	"github.com/graphward/code-graph-guard/internal/graph"
	"github.com/graphward/code-graph-guard/internal/parser"
)

// Options configures one indexing run.
type Options struct {
	Include     []string
	Exclude     []string
	MaxFileSize int64
	Concurrency int // parse workers; 0 means GOMAXPROCS
}

// Report summarizes one indexing run.
type Report struct {
	Scope       string               `json:"scope"`
	FilesSeen   int                  `json:"files_seen"`
	FilesParsed int                  `json:"files_parsed"`
	FilesCached int                  `json:"files_cached"`
	Entities    int                  `json:"entities"`
	Upsert      *engine.UpsertReport `json:"upsert"`
}

// Indexer indexes repository paths into scopes.
type Indexer struct {
	engine *engine.Engine
	router *graph.Router
	parser *parser.Parser
}

// New creates an Indexer sharing the engine's store router.
func New(eng *engine.Engine, router *graph.Router) *Indexer {
	return &Indexer{engine: eng, router: router, parser: parser.New()}
}

type parsedFile struct {
	relPath  string
	hash     string
	entities []engine.ParsedEntity
}

// Index walks repoPath and upserts everything it finds into the scope.
// Files whose content hash matches the previous run are skipped; all parsed
// entities go to the engine in one call, so the store cost stays bounded
// regardless of file count.
func (ix *Indexer) Index(ctx context.Context, ref engine.ScopeRef, repoPath string, opts *Options) (*Report, error) {
	if opts == nil {
		opts = &Options{}
	}
	slog.Info("indexer.start", "scope", ref.Key(), "path", repoPath)

	files, err := discover.Discover(ctx, repoPath, &discover.Options{
		Include:     opts.Include,
		Exclude:     opts.Exclude,
		MaxFileSize: opts.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	st, err := ix.router.ForProject(ref.Project)
	if err != nil {
		return nil, err
	}
	scopeID, err := st.UpsertScope(ref.Project, ref.Branch)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}
	if err := st.SetScopeRootPath(scopeID, repoPath); err != nil {
		return nil, fmt.Errorf("set root path: %w", err)
	}
	prevHashes, err := st.FileHashes(scopeID)
	if err != nil {
		return nil, fmt.Errorf("load file hashes: %w", err)
	}

	report := &Report{Scope: ref.Key(), FilesSeen: len(files)}

	parsed, cached, err := ix.parseChanged(ctx, files, prevHashes, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	report.FilesCached = cached
	report.FilesParsed = len(parsed)

	var entities []engine.ParsedEntity
	for _, pf := range parsed {
		entities = append(entities, pf.entities...)
	}
	report.Entities = len(entities)

	upsert, err := ix.engine.UpsertEntities(ctx, ref, entities)
	if err != nil {
		return nil, err
	}
	report.Upsert = upsert

	hashes := make([]graph.FileHash, len(parsed))
	for i, pf := range parsed {
		hashes[i] = graph.FileHash{RelPath: pf.relPath, Hash: pf.hash}
	}
	if err := st.UpsertFileHashBatch(scopeID, hashes); err != nil {
		return nil, fmt.Errorf("store file hashes: %w", err)
	}

	slog.Info("indexer.done", "scope", ref.Key(),
		"parsed", report.FilesParsed, "cached", report.FilesCached,
		"created", upsert.Created, "updated", upsert.Updated, "unchanged", upsert.Unchanged)
	return report, nil
}

// parseChanged hashes every discovered file and parses the ones whose hash
// changed since the last run, with bounded parallelism.
func (ix *Indexer) parseChanged(ctx context.Context, files []discover.FileInfo, prevHashes map[string]string, concurrency int) ([]parsedFile, int, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]*parsedFile, len(files))
	var cached atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, f := range files {
		g.Go(func() error {
			source, err := os.ReadFile(f.Path)
			if err != nil {
				slog.Warn("indexer.read.skip", "file", f.RelPath, "err", err)
				return nil
			}
			sum := xxh3.Hash128(source).Bytes()
			hash := hex.EncodeToString(sum[:])
			if prevHashes[f.RelPath] == hash {
				cached.Add(1)
				return nil
			}
			entities, err := ix.parser.Parse(gctx, f.RelPath, source)
			if err != nil {
				return fmt.Errorf("parse %s: %w", f.RelPath, err)
			}
			results[i] = &parsedFile{relPath: f.RelPath, hash: hash, entities: entities}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	parsed := make([]parsedFile, 0, len(results))
	for _, r := range results {
		if r != nil {
			parsed = append(parsed, *r)
		}
	}
	return parsed, int(cached.Load()), nil
}
