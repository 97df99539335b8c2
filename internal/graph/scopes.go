package graph

import (
	"database/sql"
	"fmt"
	"strings"
)

// Scope is one (project, branch) isolation unit. RootPath records where the
// scope was last indexed from, when indexing ran against a filesystem path.
type Scope struct {
	ID        int64
	Project   string
	Branch    string
	RootPath  string
	CreatedAt string
}

// UpsertScope creates the scope row if absent and returns its ID.
// Existing scopes are returned unchanged — created_at is immutable.
func (s *Store) UpsertScope(project, branch string) (int64, error) {
	_, err := s.exec(`
		INSERT INTO scopes (project, branch, created_at) VALUES (?, ?, ?)
		ON CONFLICT(project, branch) DO NOTHING`,
		project, branch, Now())
	if err != nil {
		return 0, fmt.Errorf("upsert scope: %w", err)
	}
	var id int64
	err = s.queryRow("SELECT id FROM scopes WHERE project=? AND branch=?", project, branch).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get scope id: %w", err)
	}
	return id, nil
}

// SetScopeRootPath records where a scope was last indexed from.
func (s *Store) SetScopeRootPath(scopeID int64, rootPath string) error {
	_, err := s.exec("UPDATE scopes SET root_path=? WHERE id=?", rootPath, scopeID)
	return err
}

// GetScope returns a scope by project and branch, or nil if absent.
func (s *Store) GetScope(project, branch string) (*Scope, error) {
	var sc Scope
	err := s.queryRow("SELECT id, project, branch, root_path, created_at FROM scopes WHERE project=? AND branch=?",
		project, branch).Scan(&sc.ID, &sc.Project, &sc.Branch, &sc.RootPath, &sc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get scope: %w", err)
	}
	return &sc, nil
}

// ListScopes returns all scopes in this store ordered by branch name.
func (s *Store) ListScopes() ([]*Scope, error) {
	rows, err := s.query("SELECT id, project, branch, root_path, created_at FROM scopes ORDER BY project, branch")
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	defer rows.Close()
	var result []*Scope
	for rows.Next() {
		var sc Scope
		if err := rows.Scan(&sc.ID, &sc.Project, &sc.Branch, &sc.RootPath, &sc.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &sc)
	}
	return result, rows.Err()
}

// ClearScope deletes all entities, edges, and file hashes in a scope while
// keeping the scope row itself, so future indexing reuses the same identity.
func (s *Store) ClearScope(scopeID int64) error {
	if _, err := s.exec("DELETE FROM edges WHERE scope_id=?", scopeID); err != nil {
		return fmt.Errorf("clear edges: %w", err)
	}
	if _, err := s.exec("DELETE FROM entities WHERE scope_id=?", scopeID); err != nil {
		return fmt.Errorf("clear entities: %w", err)
	}
	if _, err := s.exec("DELETE FROM file_hashes WHERE scope_id=?", scopeID); err != nil {
		return fmt.Errorf("clear file hashes: %w", err)
	}
	return nil
}

// DeleteScope removes the scope row; entities, edges, and file hashes cascade.
func (s *Store) DeleteScope(scopeID int64) error {
	_, err := s.exec("DELETE FROM scopes WHERE id=?", scopeID)
	return err
}

// UpsertFileHash stores a file's content hash for incremental re-indexing.
func (s *Store) UpsertFileHash(scopeID int64, relPath, hash string) error {
	_, err := s.exec(`
		INSERT INTO file_hashes (scope_id, rel_path, hash) VALUES (?, ?, ?)
		ON CONFLICT(scope_id, rel_path) DO UPDATE SET hash=excluded.hash`,
		scopeID, relPath, hash)
	return err
}

// FileHash is one (rel path, content hash) pair for incremental indexing.
type FileHash struct {
	RelPath string
	Hash    string
}

const fileHashBatchSize = 333 // 3 bind vars per row under the 999 limit

// UpsertFileHashBatch stores file hashes in batched multi-row INSERTs,
// chunked only by the bind-variable limit.
func (s *Store) UpsertFileHashBatch(scopeID int64, hashes []FileHash) error {
	for i := 0; i < len(hashes); i += fileHashBatchSize {
		end := i + fileHashBatchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		if err := s.upsertFileHashChunk(scopeID, hashes[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertFileHashChunk(scopeID int64, chunk []FileHash) error {
	if len(chunk) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO file_hashes (scope_id, rel_path, hash) VALUES ")
	args := make([]any, 0, len(chunk)*3)
	for i, fh := range chunk {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?)")
		args = append(args, scopeID, fh.RelPath, fh.Hash)
	}
	sb.WriteString(" ON CONFLICT(scope_id, rel_path) DO UPDATE SET hash=excluded.hash")
	if _, err := s.exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert file hash batch: %w", err)
	}
	return nil
}

// FileHashes returns all stored file hashes for a scope keyed by rel path.
func (s *Store) FileHashes(scopeID int64) (map[string]string, error) {
	rows, err := s.query("SELECT rel_path, hash FROM file_hashes WHERE scope_id=?", scopeID)
	if err != nil {
		return nil, fmt.Errorf("file hashes: %w", err)
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		result[path] = hash
	}
	return result, rows.Err()
}
