package sqlite

import (
	"context"
	"fmt"

	"chronicle/internal/store"
)

type entityTable struct {
	db     execer
	kind   store.Kind
	tables store.Tables
}

func (c *Client) Entities(kind store.Kind) store.EntityStore {
	return &entityTable{db: c.db, kind: kind, tables: kind.Tables()}
}

func (t *entityTable) Kind() store.Kind { return t.kind }

func (t *entityTable) columns() string {
	external := "''"
	if t.kind == store.KindPlayer {
		external = "external_id"
	}
	return `id, world_id, name, description, COALESCE(embedding, ''), COALESCE(image_url, ''), ` + external + `, created_at`
}

func (t *entityTable) scan(row interface{ Scan(...any) error }) (*store.Entity, error) {
	e := store.Entity{Kind: t.kind}
	var embedding, created string
	if err := row.Scan(&e.ID, &e.WorldID, &e.Name, &e.Description, &embedding, &e.ImageURL, &e.ExternalID, &created); err != nil {
		return nil, err
	}
	v, err := store.DecodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("decoding %s embedding: %w", t.kind, err)
	}
	e.Embedding = v
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *entityTable) Create(ctx context.Context, in store.EntityInput) (*store.Entity, error) {
	var (
		query string
		args  = []any{in.WorldID, in.Name, in.Description, store.EncodeVector(in.Embedding), now()}
	)
	if t.kind == store.KindPlayer {
		query = fmt.Sprintf(`INSERT INTO %s (world_id, name, description, embedding, created_at, external_id)
	VALUES (?, ?, ?, NULLIF(?, ''), ?, ?)`, t.tables.Entities)
		args = append(args, in.ExternalID)
	} else {
		query = fmt.Sprintf(`INSERT INTO %s (world_id, name, description, embedding, created_at)
	VALUES (?, ?, ?, NULLIF(?, ''), ?)`, t.tables.Entities)
	}

	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", t.kind, translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading %s id: %w", t.kind, err)
	}
	return t.Get(ctx, id)
}

func (t *entityTable) Get(ctx context.Context, id int64) (*store.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, t.columns(), t.tables.Entities)
	e, err := t.scan(t.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("getting %s %d: %w", t.kind, id, translateError(err))
	}
	return e, nil
}

func (t *entityTable) Update(ctx context.Context, worldID, id int64, in store.EntityInput) (*store.Entity, error) {
	res, err := t.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET name = ?, description = ?, embedding = NULLIF(?, '') WHERE id = ? AND world_id = ?`, t.tables.Entities),
		in.Name, in.Description, store.EncodeVector(in.Embedding), id, worldID)
	if err := checkAffected(res, err, fmt.Sprintf("%s %d", t.kind, id)); err != nil {
		return nil, err
	}
	return t.Get(ctx, id)
}

func (t *entityTable) SetImage(ctx context.Context, id int64, url string) error {
	res, err := t.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET image_url = ? WHERE id = ?`, t.tables.Entities), url, id)
	return checkAffected(res, err, fmt.Sprintf("%s %d", t.kind, id))
}

func (t *entityTable) List(ctx context.Context, worldID int64) ([]store.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE world_id = ? ORDER BY id`, t.columns(), t.tables.Entities)
	rows, err := t.db.QueryContext(ctx, query, worldID)
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

// Search scores every embedded row of the world in process; sqlite has no
// vector operator.
func (t *entityTable) Search(ctx context.Context, worldID int64, embedding []float32, threshold float64, limit int) ([]store.ScoredEntity, error) {
	entities, err := t.List(ctx, worldID)
	if err != nil {
		return nil, err
	}

	candidates := make([]scored[store.Entity], 0, len(entities))
	for _, e := range entities {
		sim, ok := cosine(embedding, e.Embedding)
		if !ok {
			continue
		}
		candidates = append(candidates, scored[store.Entity]{id: e.ID, sim: sim, value: e})
	}

	ranked := rank(candidates, threshold, limit)
	results := make([]store.ScoredEntity, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, store.ScoredEntity{Entity: r.value, Similarity: r.sim})
	}
	return results, nil
}
