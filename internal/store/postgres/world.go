package postgres

import (
	"context"
	"fmt"

	"chronicle/internal/store"
)

const worldColumns = `id, name, description, slug, COALESCE(embedding::text, ''), COALESCE(image_url, ''), created_at`

func scanWorld(row interface{ Scan(...any) error }) (*store.World, error) {
	var w store.World
	var embedding string
	if err := row.Scan(&w.ID, &w.Name, &w.Description, &w.Slug, &embedding, &w.ImageURL, &w.CreatedAt); err != nil {
		return nil, err
	}
	v, err := store.DecodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("decoding world embedding: %w", err)
	}
	w.Embedding = v
	return &w, nil
}

func (c *Client) CreateWorld(ctx context.Context, in store.WorldInput) (*store.World, error) {
	row := c.pool.QueryRow(ctx, `
INSERT INTO worlds (name, description, slug, embedding)
VALUES ($1, $2, $3, NULLIF($4, '')::vector)
RETURNING `+worldColumns,
		in.Name, in.Description, in.Slug, store.EncodeVector(in.Embedding))
	w, err := scanWorld(row)
	if err != nil {
		return nil, fmt.Errorf("creating world: %w", translateError(err))
	}
	return w, nil
}

func (c *Client) GetWorld(ctx context.Context, id int64) (*store.World, error) {
	w, err := scanWorld(c.pool.QueryRow(ctx, `SELECT `+worldColumns+` FROM worlds WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("getting world %d: %w", id, translateError(err))
	}
	return w, nil
}

func (c *Client) GetWorldBySlug(ctx context.Context, slug string) (*store.World, error) {
	w, err := scanWorld(c.pool.QueryRow(ctx, `SELECT `+worldColumns+` FROM worlds WHERE slug = $1`, slug))
	if err != nil {
		return nil, fmt.Errorf("getting world %q: %w", slug, translateError(err))
	}
	return w, nil
}

func (c *Client) ListWorlds(ctx context.Context) ([]store.World, error) {
	rows, err := c.pool.Query(ctx, `SELECT `+worldColumns+` FROM worlds ORDER BY id`)
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
	tag, err := c.pool.Exec(ctx, `UPDATE worlds SET image_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("setting world image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("world %d: %w", id, store.ErrNotFound)
	}
	return nil
}
