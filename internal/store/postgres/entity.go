package postgres

import (
	"context"
	"fmt"

	"chronicle/internal/store"
)

type entityTable struct {
	pool   querier
	kind   store.Kind
	tables store.Tables
}

func (c *Client) Entities(kind store.Kind) store.EntityStore {
	return &entityTable{pool: c.pool, kind: kind, tables: kind.Tables()}
}

func (t *entityTable) Kind() store.Kind { return t.kind }

// columns lists the select expressions shared by every entity query. Only the
// players table carries external_id.
func (t *entityTable) columns() string {
	external := "''"
	if t.kind == store.KindPlayer {
		external = "external_id"
	}
	return `id, world_id, name, description, COALESCE(embedding::text, ''), COALESCE(image_url, ''), ` + external + `, created_at`
}

func (t *entityTable) scan(row interface{ Scan(...any) error }, extra ...any) (*store.Entity, error) {
	e := store.Entity{Kind: t.kind}
	var embedding string
	dest := append([]any{&e.ID, &e.WorldID, &e.Name, &e.Description, &embedding, &e.ImageURL, &e.ExternalID, &e.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	v, err := store.DecodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("decoding %s embedding: %w", t.kind, err)
	}
	e.Embedding = v
	return &e, nil
}

func (t *entityTable) Create(ctx context.Context, in store.EntityInput) (*store.Entity, error) {
	var (
		query string
		args  = []any{in.WorldID, in.Name, in.Description, store.EncodeVector(in.Embedding)}
	)
	if t.kind == store.KindPlayer {
		query = fmt.Sprintf(`
INSERT INTO %s (world_id, name, description, embedding, external_id)
VALUES ($1, $2, $3, NULLIF($4, '')::vector, $5)
RETURNING %s`, t.tables.Entities, t.columns())
		args = append(args, in.ExternalID)
	} else {
		query = fmt.Sprintf(`
INSERT INTO %s (world_id, name, description, embedding)
VALUES ($1, $2, $3, NULLIF($4, '')::vector)
RETURNING %s`, t.tables.Entities, t.columns())
	}

	e, err := t.scan(t.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", t.kind, translateError(err))
	}
	return e, nil
}

func (t *entityTable) Get(ctx context.Context, id int64) (*store.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, t.columns(), t.tables.Entities)
	e, err := t.scan(t.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("getting %s %d: %w", t.kind, id, translateError(err))
	}
	return e, nil
}

func (t *entityTable) Update(ctx context.Context, worldID, id int64, in store.EntityInput) (*store.Entity, error) {
	query := fmt.Sprintf(`
UPDATE %s
SET name = $3, description = $4, embedding = NULLIF($5, '')::vector
WHERE id = $1 AND world_id = $2
RETURNING %s`, t.tables.Entities, t.columns())

	e, err := t.scan(t.pool.QueryRow(ctx, query, id, worldID, in.Name, in.Description, store.EncodeVector(in.Embedding)))
	if err != nil {
		return nil, fmt.Errorf("updating %s %d: %w", t.kind, id, translateError(err))
	}
	return e, nil
}

func (t *entityTable) SetImage(ctx context.Context, id int64, url string) error {
	tag, err := t.pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET image_url = $2 WHERE id = $1`, t.tables.Entities), id, url)
	if err != nil {
		return fmt.Errorf("setting %s image: %w", t.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", t.kind, id, store.ErrNotFound)
	}
	return nil
}

func (t *entityTable) List(ctx context.Context, worldID int64) ([]store.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE world_id = $1 ORDER BY id`, t.columns(), t.tables.Entities)
	rows, err := t.pool.Query(ctx, query, worldID)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.tables.Entities, err)
	}
	defer rows.Close()

	entities := []store.Entity{}
	for rows.Next() {
		e, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", t.kind, err)
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", t.tables.Entities, err)
	}
	return entities, nil
}

func (t *entityTable) Search(ctx context.Context, worldID int64, embedding []float32, threshold float64, limit int) ([]store.ScoredEntity, error) {
	query := fmt.Sprintf(`
SELECT %s, 1 - (embedding <=> $2::vector) AS similarity
FROM %s
WHERE world_id = $1
  AND embedding IS NOT NULL
  AND 1 - (embedding <=> $2::vector) > $3
ORDER BY similarity DESC, id ASC
LIMIT $4`, t.columns(), t.tables.Entities)

	rows, err := t.pool.Query(ctx, query, worldID, store.EncodeVector(embedding), threshold, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", t.tables.Entities, err)
	}
	defer rows.Close()

	results := []store.ScoredEntity{}
	for rows.Next() {
		var similarity float64
		e, err := t.scan(rows, &similarity)
		if err != nil {
			return nil, fmt.Errorf("scanning %s search result: %w", t.kind, err)
		}
		results = append(results, store.ScoredEntity{Entity: *e, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s search results: %w", t.kind, err)
	}
	return results, nil
}

// limitArg maps a non-positive limit to NULL, which postgres treats as
// LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
