// Package graph implements the SQLite-backed property-graph store: scoped
// entities, typed edges, batched upserts, and scope-wide graph loads.
package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both contexts.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps a SQLite connection holding one project's graph. All branches
// of the project live in the same database so branch comparison never
// crosses files.
type Store struct {
	db     *sql.DB
	q      Querier // active querier: db or tx
	dbPath string
	calls  *atomic.Int64 // statement round trips, shared with tx stores
}

// EntityKey is the in-scope identity of an entity.
type EntityKey struct {
	Kind string
	Name string
}

// Entity is a graph node. A nil Body marks a placeholder created to anchor
// an edge before the real entity was indexed.
type Entity struct {
	ID         int64
	ScopeID    int64
	Kind       string
	Name       string
	Body       *string
	FilePath   string
	CreatedAt  string
	UpdatedAt  string
	Properties map[string]any
}

// Key returns the entity's in-scope identity key.
func (e *Entity) Key() EntityKey {
	return EntityKey{Kind: e.Kind, Name: e.Name}
}

// Edge is a directed, typed relationship between two entities of one scope.
type Edge struct {
	ID         int64
	ScopeID    int64
	SourceID   int64
	TargetID   int64
	Type       string
	Properties map[string]any
}

// OpenPath opens a SQLite database at the given path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, dbPath: dbPath, calls: &atomic.Int64{}}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenInDir opens or creates the database for a project inside dir.
func OpenInDir(dir, project string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	return OpenPath(filepath.Join(dir, project+".db"))
}

// OpenMemory opens an in-memory SQLite database (for testing).
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	s := &Store{db: db, dbPath: ":memory:", calls: &atomic.Int64{}}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// WithTransaction executes fn within a single SQLite transaction.
// The callback receives a transaction-scoped Store — all store methods called
// on txStore use the transaction. The receiver's q field is never mutated, so
// concurrent read-only callers (using s.q == s.db) are unaffected.
func (s *Store) WithTransaction(fn func(txStore *Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dbPath: s.dbPath, calls: s.calls}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// QueryCount returns the number of statement round trips issued so far.
// Tests use it to enforce the batched-access invariant.
func (s *Store) QueryCount() int64 {
	return s.calls.Load()
}

// ResetQueryCount zeroes the round-trip counter.
func (s *Store) ResetQueryCount() {
	s.calls.Store(0)
}

func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	s.calls.Add(1)
	return s.q.Exec(query, args...)
}

func (s *Store) query(query string, args ...any) (*sql.Rows, error) {
	s.calls.Add(1)
	return s.q.Query(query, args...)
}

func (s *Store) queryRow(query string, args ...any) *sql.Row {
	s.calls.Add(1)
	return s.q.QueryRow(query, args...)
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scopes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		branch TEXT NOT NULL,
		root_path TEXT DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(project, branch)
	);

	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scope_id INTEGER NOT NULL REFERENCES scopes(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		body TEXT,
		file_path TEXT DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		properties TEXT DEFAULT '{}',
		UNIQUE(scope_id, kind, name)
	);

	CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(scope_id, kind);
	CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(scope_id, name);
	CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(scope_id, file_path);

	CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scope_id INTEGER NOT NULL REFERENCES scopes(id) ON DELETE CASCADE,
		source_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		target_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		properties TEXT DEFAULT '{}',
		UNIQUE(source_id, target_id, type)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id, type);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id, type);
	CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(scope_id, type);

	CREATE TABLE IF NOT EXISTS file_hashes (
		scope_id INTEGER NOT NULL REFERENCES scopes(id) ON DELETE CASCADE,
		rel_path TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (scope_id, rel_path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// marshalProps serializes properties to JSON.
func marshalProps(props map[string]any) string {
	if props == nil {
		return "{}"
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// unmarshalProps deserializes JSON properties.
func unmarshalProps(data string) map[string]any {
	if data == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Now returns the current time in ISO 8601 format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
