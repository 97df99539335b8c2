package graph

import (
	"database/sql"
	"fmt"
	"strings"
)

// edgesBatchSize is the max rows per batch INSERT for edges (5 cols × 150 = 750 vars < 999).
const edgesBatchSize = 150

// UpsertEdgeBatch inserts edges in batched multi-row INSERTs.
// Re-deriving an existing (source, target, type) edge only refreshes its
// properties — never a duplicate row.
func (s *Store) UpsertEdgeBatch(edges []*Edge) error {
	for i := 0; i < len(edges); i += edgesBatchSize {
		end := i + edgesBatchSize
		if end > len(edges) {
			end = len(edges)
		}
		if err := s.upsertEdgeChunk(edges[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertEdgeChunk(batch []*Edge) error {
	if len(batch) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO edges (scope_id, source_id, target_id, type, properties) VALUES `)

	args := make([]any, 0, len(batch)*5)
	for i, e := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?)")
		args = append(args, e.ScopeID, e.SourceID, e.TargetID, e.Type, marshalProps(e.Properties))
	}
	sb.WriteString(` ON CONFLICT(source_id, target_id, type) DO UPDATE SET properties=excluded.properties`)

	if _, err := s.exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert edge batch: %w", err)
	}
	return nil
}

// EdgesByScope returns all edges in a scope, optionally filtered by type.
func (s *Store) EdgesByScope(scopeID int64, edgeTypes []string) ([]*Edge, error) {
	query := `SELECT id, scope_id, source_id, target_id, type, properties FROM edges WHERE scope_id=?`
	args := []any{scopeID}
	if len(edgeTypes) > 0 {
		placeholders := make([]string, len(edgeTypes))
		for i, et := range edgeTypes {
			placeholders[i] = "?"
			args = append(args, et)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}
	rows, err := s.query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("edges by scope: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// CountEdges returns the number of edges in a scope.
func (s *Store) CountEdges(scopeID int64) (int, error) {
	var count int
	err := s.queryRow("SELECT COUNT(*) FROM edges WHERE scope_id=?", scopeID).Scan(&count)
	return count, err
}

// CountEdgesByType returns per-type edge counts for a scope.
func (s *Store) CountEdgesByType(scopeID int64) (map[string]int, error) {
	rows, err := s.query("SELECT type, COUNT(*) FROM edges WHERE scope_id=? GROUP BY type", scopeID)
	if err != nil {
		return nil, fmt.Errorf("count edges by type: %w", err)
	}
	defer rows.Close()
	result := make(map[string]int)
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return nil, err
		}
		result[t] = c
	}
	return result, rows.Err()
}

func scanEdges(rows *sql.Rows) ([]*Edge, error) {
	var result []*Edge
	for rows.Next() {
		var e Edge
		var props string
		if err := rows.Scan(&e.ID, &e.ScopeID, &e.SourceID, &e.TargetID, &e.Type, &props); err != nil {
			return nil, err
		}
		e.Properties = unmarshalProps(props)
		result = append(result, &e)
	}
	return result, rows.Err()
}
