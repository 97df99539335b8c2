package graph

import (
	"database/sql"
	"fmt"
	"strings"
)

const entityCols = `id, scope_id, kind, name, body, file_path, created_at, updated_at, properties`

// Formula-derived batch sizes: SQLite has a 999 bind variable limit.
const numEntityCols = 8
const entitiesBatchSize = 999 / numEntityCols // = 124
const keysBatchSize = 499                     // 1 scope var + 2 vars per key

// FindEntitiesByKeys returns the entities matching any of the given identity
// keys, in one batched read (chunked only by the bind-variable limit).
func (s *Store) FindEntitiesByKeys(scopeID int64, keys []EntityKey) (map[EntityKey]*Entity, error) {
	result := make(map[EntityKey]*Entity, len(keys))
	for i := 0; i < len(keys); i += keysBatchSize {
		end := i + keysBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := s.findEntitiesChunk(scopeID, keys[i:end], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) findEntitiesChunk(scopeID int64, keys []EntityKey, result map[EntityKey]*Entity) error {
	if len(keys) == 0 {
		return nil
	}
	rowValues := make([]string, len(keys))
	args := make([]any, 0, 1+len(keys)*2)
	args = append(args, scopeID)
	for i, k := range keys {
		rowValues[i] = "(?,?)"
		args = append(args, k.Kind, k.Name)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM entities WHERE scope_id = ? AND (kind, name) IN (VALUES %s)",
		entityCols, strings.Join(rowValues, ","))

	rows, err := s.query(query, args...)
	if err != nil {
		return fmt.Errorf("find entities by keys: %w", err)
	}
	defer rows.Close()
	entities, err := scanEntities(rows)
	if err != nil {
		return err
	}
	for _, e := range entities {
		result[e.Key()] = e
	}
	return nil
}

// UpsertEntityBatch inserts or updates entities in batched multi-row INSERTs.
// On conflict with an existing identity key, body, file_path, properties and
// updated_at are replaced; created_at is never touched.
func (s *Store) UpsertEntityBatch(entities []*Entity) error {
	for i := 0; i < len(entities); i += entitiesBatchSize {
		end := i + entitiesBatchSize
		if end > len(entities) {
			end = len(entities)
		}
		if err := s.upsertEntityChunk(entities[i:end], false); err != nil {
			return err
		}
	}
	return nil
}

// InsertPlaceholderBatch inserts placeholder entities (nil body) for edge
// targets that have not been indexed yet. Existing rows are left untouched so
// a placeholder never clobbers a real entity.
func (s *Store) InsertPlaceholderBatch(entities []*Entity) error {
	for i := 0; i < len(entities); i += entitiesBatchSize {
		end := i + entitiesBatchSize
		if end > len(entities) {
			end = len(entities)
		}
		if err := s.upsertEntityChunk(entities[i:end], true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertEntityChunk(batch []*Entity, placeholders bool) error {
	if len(batch) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO entities (scope_id, kind, name, body, file_path, created_at, updated_at, properties) VALUES `)

	args := make([]any, 0, len(batch)*numEntityCols)
	for i, e := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?)")
		args = append(args, e.ScopeID, e.Kind, e.Name, nullableBody(e.Body), e.FilePath, e.CreatedAt, e.UpdatedAt, marshalProps(e.Properties))
	}
	if placeholders {
		sb.WriteString(` ON CONFLICT(scope_id, kind, name) DO NOTHING`)
	} else {
		sb.WriteString(` ON CONFLICT(scope_id, kind, name) DO UPDATE SET
			body=excluded.body, file_path=excluded.file_path,
			updated_at=excluded.updated_at, properties=excluded.properties`)
	}

	if _, err := s.exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert entity batch: %w", err)
	}
	return nil
}

func nullableBody(body *string) any {
	if body == nil {
		return nil
	}
	return *body
}

// ResolveEntityIDs returns a key → ID map for the given identity keys,
// batching the IN clause under the bind-variable limit.
func (s *Store) ResolveEntityIDs(scopeID int64, keys []EntityKey) (map[EntityKey]int64, error) {
	idMap := make(map[EntityKey]int64, len(keys))
	for i := 0; i < len(keys); i += keysBatchSize {
		end := i + keysBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[i:end]

		rowValues := make([]string, len(chunk))
		args := make([]any, 0, 1+len(chunk)*2)
		args = append(args, scopeID)
		for j, k := range chunk {
			rowValues[j] = "(?,?)"
			args = append(args, k.Kind, k.Name)
		}
		query := fmt.Sprintf(
			"SELECT id, kind, name FROM entities WHERE scope_id = ? AND (kind, name) IN (VALUES %s)",
			strings.Join(rowValues, ","))

		if err := func() error {
			rows, err := s.query(query, args...)
			if err != nil {
				return fmt.Errorf("resolve entity ids: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var id int64
				var kind, name string
				if err := rows.Scan(&id, &kind, &name); err != nil {
					return err
				}
				idMap[EntityKey{Kind: kind, Name: name}] = id
			}
			return rows.Err()
		}(); err != nil {
			return nil, err
		}
	}
	return idMap, nil
}

// FindEntityByKey returns the entity with the given identity key, or nil.
func (s *Store) FindEntityByKey(scopeID int64, key EntityKey) (*Entity, error) {
	row := s.queryRow(fmt.Sprintf(
		`SELECT %s FROM entities WHERE scope_id=? AND kind=? AND name=?`, entityCols),
		scopeID, key.Kind, key.Name)
	return scanEntity(row)
}

// FindEntitiesByName returns all entities with the given name in a scope.
func (s *Store) FindEntitiesByName(scopeID int64, name string) ([]*Entity, error) {
	rows, err := s.query(fmt.Sprintf(
		`SELECT %s FROM entities WHERE scope_id=? AND name=?`, entityCols), scopeID, name)
	if err != nil {
		return nil, fmt.Errorf("find by name: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// AllEntities returns all entities in a scope.
func (s *Store) AllEntities(scopeID int64) ([]*Entity, error) {
	rows, err := s.query(fmt.Sprintf(`SELECT %s FROM entities WHERE scope_id=?`, entityCols), scopeID)
	if err != nil {
		return nil, fmt.Errorf("all entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// AllEntityKeys returns the identity keys of every entity in a scope.
// Used by branch comparison, which needs presence only, not bodies.
func (s *Store) AllEntityKeys(scopeID int64) ([]EntityKey, error) {
	rows, err := s.query("SELECT kind, name FROM entities WHERE scope_id=?", scopeID)
	if err != nil {
		return nil, fmt.Errorf("all entity keys: %w", err)
	}
	defer rows.Close()
	var keys []EntityKey
	for rows.Next() {
		var k EntityKey
		if err := rows.Scan(&k.Kind, &k.Name); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// CountEntities returns the number of entities in a scope.
func (s *Store) CountEntities(scopeID int64) (int, error) {
	var count int
	err := s.queryRow("SELECT COUNT(*) FROM entities WHERE scope_id=?", scopeID).Scan(&count)
	return count, err
}

// Orphans returns entities with neither incoming nor outgoing edges in their scope.
func (s *Store) Orphans(scopeID int64) ([]*Entity, error) {
	rows, err := s.query(fmt.Sprintf(`
		SELECT %s FROM entities e
		WHERE e.scope_id = ?
		  AND NOT EXISTS (SELECT 1 FROM edges WHERE source_id = e.id)
		  AND NOT EXISTS (SELECT 1 FROM edges WHERE target_id = e.id)
		ORDER BY e.kind, e.name`, entityCols), scopeID)
	if err != nil {
		return nil, fmt.Errorf("orphans: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner) (*Entity, error) {
	var e Entity
	var body sql.NullString
	var props string
	err := row.Scan(&e.ID, &e.ScopeID, &e.Kind, &e.Name, &body, &e.FilePath, &e.CreatedAt, &e.UpdatedAt, &props)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if body.Valid {
		e.Body = &body.String
	}
	e.Properties = unmarshalProps(props)
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*Entity, error) {
	var result []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
