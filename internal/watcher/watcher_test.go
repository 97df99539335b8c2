package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/graphward/code-graph-guard/internal/engine"
)

func TestSnapshotChanged(t *testing.T) {
	now := time.Now()

	prev := treeSnapshot{
		"src/app.ts":  {size: 100, modTime: now},
		"src/util.ts": {size: 200, modTime: now},
	}
	same := treeSnapshot{
		"src/app.ts":  {size: 100, modTime: now},
		"src/util.ts": {size: 200, modTime: now},
	}
	if same.changed(prev) {
		t.Error("identical trees should not report a change")
	}

	resized := treeSnapshot{
		"src/app.ts":  {size: 101, modTime: now},
		"src/util.ts": {size: 200, modTime: now},
	}
	if !resized.changed(prev) {
		t.Error("size change not detected")
	}

	touched := treeSnapshot{
		"src/app.ts":  {size: 100, modTime: now.Add(time.Second)},
		"src/util.ts": {size: 200, modTime: now},
	}
	if !touched.changed(prev) {
		t.Error("mtime change not detected")
	}

	removed := treeSnapshot{
		"src/app.ts": {size: 100, modTime: now},
	}
	if !removed.changed(prev) {
		t.Error("removed file not detected")
	}
	if !prev.changed(removed) {
		t.Error("added file not detected")
	}
}

func TestScanInterval(t *testing.T) {
	cases := []struct {
		files int
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{499, 1 * time.Second},
		{500, 2 * time.Second},
		{5000, 11 * time.Second},
		{100000, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := scanInterval(tc.files); got != tc.want {
			t.Errorf("scanInterval(%d) = %v, want %v", tc.files, got, tc.want)
		}
	}
}

func TestSnapshotFromDiscovery(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.ts"), []byte("export {};"), 0o600); err != nil {
		t.Fatal(err)
	}

	snap, err := takeSnapshot(context.Background(), dir)
	if err != nil {
		t.Fatalf("takeSnapshot: %v", err)
	}
	stamp, ok := snap["app.ts"]
	if !ok {
		t.Fatalf("app.ts missing from snapshot: %+v", snap)
	}
	if stamp.size != int64(len("export {};")) {
		t.Errorf("unexpected size: %d", stamp.size)
	}
	if stamp.modTime.IsZero() {
		t.Error("mtime not captured")
	}
}

func TestPollScopeTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.ts")
	if err := os.WriteFile(file, []byte("export {};"), 0o600); err != nil {
		t.Fatal(err)
	}

	var triggered int
	w := New(nil, func(ctx context.Context, ref engine.ScopeRef, rootPath string) error {
		triggered++
		return nil
	})
	w.ctx = context.Background()

	ref := engine.ScopeRef{Project: "app", Branch: "main"}
	state := &scopeState{}

	// First poll captures the baseline without indexing.
	w.pollScope(ref, dir, state)
	if triggered != 0 {
		t.Fatalf("baseline poll triggered indexing %d times", triggered)
	}
	if state.snapshot == nil {
		t.Fatal("baseline snapshot not captured")
	}

	// Unchanged tree: still no trigger.
	state.nextPoll = time.Time{}
	w.pollScope(ref, dir, state)
	if triggered != 0 {
		t.Fatalf("unchanged poll triggered indexing %d times", triggered)
	}

	// Change the file; mtime resolution can be coarse, so change size too.
	if err := os.WriteFile(file, []byte("export {}; // changed"), 0o600); err != nil {
		t.Fatal(err)
	}
	state.nextPoll = time.Time{}
	w.pollScope(ref, dir, state)
	if triggered != 1 {
		t.Fatalf("expected 1 index trigger after change, got %d", triggered)
	}
}

func TestPollScopeKeepsSnapshotOnIndexError(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.ts")
	if err := os.WriteFile(file, []byte("export {};"), 0o600); err != nil {
		t.Fatal(err)
	}

	calls := 0
	w := New(nil, func(ctx context.Context, ref engine.ScopeRef, rootPath string) error {
		calls++
		return os.ErrDeadlineExceeded
	})
	w.ctx = context.Background()

	ref := engine.ScopeRef{Project: "app", Branch: "main"}
	state := &scopeState{}
	w.pollScope(ref, dir, state)

	if err := os.WriteFile(file, []byte("export {}; // changed"), 0o600); err != nil {
		t.Fatal(err)
	}
	state.nextPoll = time.Time{}
	w.pollScope(ref, dir, state)
	if calls != 1 {
		t.Fatalf("expected 1 failed index call, got %d", calls)
	}

	// The snapshot was kept, so the change is retried on the next poll.
	state.nextPoll = time.Time{}
	w.pollScope(ref, dir, state)
	if calls != 2 {
		t.Fatalf("expected retry after failed indexing, got %d calls", calls)
	}
}
