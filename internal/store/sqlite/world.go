package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"chronicle/internal/store"
)

const worldColumns = `id, name, description, slug, COALESCE(embedding, ''), COALESCE(image_url, ''), created_at`

func scanWorld(row interface{ Scan(...any) error }) (*store.World, error) {
	var w store.World
	var embedding, created string
	if err := row.Scan(&w.ID, &w.Name, &w.Description, &w.Slug, &embedding, &w.ImageURL, &created); err != nil {
		return nil, err
	}
	v, err := store.DecodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("decoding world embedding: %w", err)
	}
	w.Embedding = v
	if w.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *Client) CreateWorld(ctx context.Context, in store.WorldInput) (*store.World, error) {
	res, err := c.db.ExecContext(ctx, `
	INSERT INTO worlds (name, description, slug, embedding, created_at)
	VALUES (?, ?, ?, NULLIF(?, ''), ?)`,
		in.Name, in.Description, in.Slug, store.EncodeVector(in.Embedding), now())
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", translateError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading world id: %w", err)
	}
	return c.GetWorld(ctx, id)
}

func (c *Client) GetWorld(ctx context.Context, id int64) (*store.World, error) {
	w, err := scanWorld(c.db.QueryRowContext(ctx, `SELECT `+worldColumns+` FROM worlds WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("getting world %d: %w", id, translateError(err))
	}
	return w, nil
}

func (c *Client) GetWorldBySlug(ctx context.Context, slug string) (*store.World, error) {
	w, err := scanWorld(c.db.QueryRowContext(ctx, `SELECT `+worldColumns+` FROM worlds WHERE slug = ?`, slug))
	if err != nil {
		return nil, fmt.Errorf("getting world %q: %w", slug, translateError(err))
	}
	return w, nil
}

func (c *Client) ListWorlds(ctx context.Context) ([]store.World, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+worldColumns+` FROM worlds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing worlds: %w", err)
	}
	defer rows.Close()

	worlds := []store.World{}
	for rows.Next() {
		w, err := scanWorld(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning world: %w", err)
		}
		worlds = append(worlds, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating worlds: %w", err)
	}
	return worlds, nil
}

func (c *Client) SetWorldImage(ctx context.Context, id int64, url string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE worlds SET image_url = ? WHERE id = ?`, url, id)
	return checkAffected(res, err, fmt.Sprintf("world %d", id))
}

func checkAffected(res sql.Result, err error, what string) error {
	if err != nil {
		return fmt.Errorf("updating %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}
