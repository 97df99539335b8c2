// Package watcher polls indexed scopes for file changes and triggers
// re-indexing. Polling intervals adapt to tree size so large repositories
// are not rescanned every second.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/graphward/code-graph-guard/internal/discover"
	"github.com/graphward/code-graph-guard/internal/engine"
	"github.com/graphward/code-graph-guard/internal/graph"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

// treeSnapshot maps rel path to the stamp used for change detection.
type treeSnapshot map[string]fileStamp

type fileStamp struct {
	size    int64
	modTime time.Time
}

type scopeState struct {
	snapshot treeSnapshot
	interval time.Duration
	nextPoll time.Time
}

// IndexFunc is the callback signature for triggering a re-index.
type IndexFunc func(ctx context.Context, ref engine.ScopeRef, rootPath string) error

// Watcher polls indexed scopes for file changes and triggers re-indexing.
type Watcher struct {
	router  *graph.Router
	indexFn IndexFunc
	scopes  map[string]*scopeState // scope key → state
	ctx     context.Context
}

// New creates a Watcher. indexFn is called when file changes are detected.
func New(r *graph.Router, indexFn IndexFunc) *Watcher {
	return &Watcher{
		router:  r,
		indexFn: indexFn,
		scopes:  make(map[string]*scopeState),
	}
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling each
// scope only when its adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	w.ctx = ctx
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll()
		}
	}
}

// pollAll lists all scopes across project stores and polls each that is due
// and has a recorded root path.
func (w *Watcher) pollAll() {
	projects, err := w.router.ListProjects()
	if err != nil {
		slog.Warn("watcher.list_projects", "err", err)
		return
	}

	now := time.Now()
	for _, info := range projects {
		st, stErr := w.router.ForProject(info.Name)
		if stErr != nil {
			continue
		}
		scopes, scErr := st.ListScopes()
		if scErr != nil {
			continue
		}
		for _, sc := range scopes {
			if sc.RootPath == "" {
				continue // scope was never indexed from a filesystem path
			}
			ref := engine.ScopeRef{Project: sc.Project, Branch: sc.Branch}
			state, exists := w.scopes[ref.Key()]
			if !exists {
				state = &scopeState{}
				w.scopes[ref.Key()] = state
			}
			if exists && now.Before(state.nextPoll) {
				continue // not due yet
			}
			w.pollScope(ref, sc.RootPath, state)
		}
	}
}

// pollScope captures a snapshot of the file tree and compares with previous.
// First poll: captures baseline without triggering indexing.
// Subsequent polls: triggers indexFn if any file changed.
func (w *Watcher) pollScope(ref engine.ScopeRef, rootPath string, state *scopeState) {
	if _, err := os.Stat(rootPath); err != nil {
		slog.Warn("watcher.root_gone", "scope", ref.Key(), "path", rootPath)
		state.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := takeSnapshot(w.ctx, rootPath)
	if err != nil {
		slog.Warn("watcher.snapshot", "scope", ref.Key(), "err", err)
		state.nextPoll = time.Now().Add(state.interval)
		return
	}

	interval := scanInterval(len(snap))

	if state.snapshot == nil {
		// First poll — capture baseline, no index trigger
		slog.Debug("watcher.baseline", "scope", ref.Key(), "files", len(snap))
		state.snapshot = snap
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	if !snap.changed(state.snapshot) {
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "scope", ref.Key(), "files", len(snap))
	if err := w.indexFn(w.ctx, ref, rootPath); err != nil {
		slog.Warn("watcher.index", "scope", ref.Key(), "err", err)
		// Keep old snapshot so we retry next cycle
		state.nextPoll = time.Now().Add(interval)
		return
	}

	state.snapshot = snap
	state.interval = interval
	state.nextPoll = time.Now().Add(state.interval)
}

// takeSnapshot stamps the file tree in one discovery walk; discover already
// carries size and mtime, so no per-file stat is needed.
func takeSnapshot(ctx context.Context, rootPath string) (treeSnapshot, error) {
	files, err := discover.Discover(ctx, rootPath, nil)
	if err != nil {
		return nil, err
	}
	snap := make(treeSnapshot, len(files))
	for _, f := range files {
		snap[f.RelPath] = fileStamp{size: f.Size, modTime: f.ModTime}
	}
	return snap, nil
}

// changed reports whether the tree differs from prev: a file added, removed,
// resized, or touched.
func (s treeSnapshot) changed(prev treeSnapshot) bool {
	if len(s) != len(prev) {
		return true
	}
	for rel, stamp := range s {
		old, ok := prev[rel]
		if !ok || old.size != stamp.size || !old.modTime.Equal(stamp.modTime) {
			return true
		}
	}
	return false
}

// scanInterval grows with tree size: one extra second per 500 files on top
// of the base, capped at maxInterval.
func scanInterval(fileCount int) time.Duration {
	d := baseInterval + time.Duration(fileCount/500)*time.Second
	if d > maxInterval {
		d = maxInterval
	}
	return d
}
