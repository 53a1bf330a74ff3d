package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"chronicle/internal/store"
)

const eventColumns = `e.id, e.world_id, e.description, e.short_description, COALESCE(e.embedding::text, ''), e.created_at`

func scanEvent(row interface{ Scan(...any) error }, extra ...any) (*store.Event, error) {
	var ev store.Event
	var embedding string
	dest := append([]any{&ev.ID, &ev.WorldID, &ev.Description, &ev.ShortDescription, &embedding, &ev.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	v, err := store.DecodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("decoding event embedding: %w", err)
	}
	ev.Embedding = v
	return &ev, nil
}

func collectEvents(rows pgx.Rows) ([]store.Event, error) {
	defer rows.Close()
	events := []store.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

func (c *Client) CreateEvent(ctx context.Context, in store.EventInput) (*store.Event, error) {
	links := in.Links.Dedupe()
	if links.Empty() {
		return nil, fmt.Errorf("event has no links")
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning event transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ev, err := scanEvent(tx.QueryRow(ctx, `
INSERT INTO events AS e (world_id, description, short_description, embedding)
VALUES ($1, $2, $3, NULLIF($4, '')::vector)
RETURNING `+eventColumns,
		in.WorldID, in.Description, in.ShortDescription, store.EncodeVector(in.Embedding)))
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", translateError(err))
	}

	for _, kind := range store.Kinds {
		ids := links.IDs(kind)
		if len(ids) == 0 {
			continue
		}
		t := kind.Tables()
		// Selecting through the entity table drops ids of other worlds, which
		// the row count check below turns into ErrNotFound.
		tag, err := tx.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (event_id, %s)
SELECT $1, id FROM %s WHERE world_id = $2 AND id = ANY($3)`,
			t.Links, t.LinkColumn, t.Entities), ev.ID, in.WorldID, ids)
		if err != nil {
			return nil, fmt.Errorf("linking event %s: %w", t.Entities, err)
		}
		if tag.RowsAffected() != int64(len(ids)) {
			return nil, fmt.Errorf("linking event %s: %w", t.Entities, store.ErrNotFound)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing event: %w", err)
	}
	return ev, nil
}

func (c *Client) GetEvent(ctx context.Context, worldID, id int64) (*store.Event, error) {
	ev, err := scanEvent(c.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1 AND e.world_id = $2`, id, worldID))
	if err != nil {
		return nil, fmt.Errorf("getting event %d: %w", id, translateError(err))
	}
	return ev, nil
}

func (c *Client) EventLinks(ctx context.Context, eventID int64) (store.EventLinks, error) {
	var links store.EventLinks
	for _, kind := range store.Kinds {
		t := kind.Tables()
		rows, err := c.pool.Query(ctx,
			fmt.Sprintf(`SELECT %s FROM %s WHERE event_id = $1 ORDER BY %s`, t.LinkColumn, t.Links, t.LinkColumn), eventID)
		if err != nil {
			return links, fmt.Errorf("loading %s links: %w", kind, err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return links, fmt.Errorf("scanning %s links: %w", kind, err)
		}
		switch kind {
		case store.KindLocation:
			links.LocationIDs = ids
		case store.KindCharacter:
			links.CharacterIDs = ids
		case store.KindPlayer:
			links.PlayerIDs = ids
		case store.KindItem:
			links.ItemIDs = ids
		}
	}
	return links, nil
}

func (c *Client) ListEvents(ctx context.Context, worldID int64, limit int) ([]store.Event, error) {
	rows, err := c.pool.Query(ctx, `
SELECT `+eventColumns+`
FROM events e
WHERE e.world_id = $1
ORDER BY e.created_at DESC, e.id DESC
LIMIT $2`, worldID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return collectEvents(rows)
}

func (c *Client) EventsFor(ctx context.Context, kind store.Kind, entityID int64, limit int) ([]store.Event, error) {
	t := kind.Tables()
	rows, err := c.pool.Query(ctx, fmt.Sprintf(`
SELECT %s
FROM events e
JOIN %s l ON l.event_id = e.id
WHERE l.%s = $1
ORDER BY e.created_at DESC, e.id DESC
LIMIT $2`, eventColumns, t.Links, t.LinkColumn), entityID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("listing events for %s %d: %w", kind, entityID, err)
	}
	return collectEvents(rows)
}

func (c *Client) SearchEvents(ctx context.Context, worldID int64, embedding []float32, threshold float64, limit int) ([]store.ScoredEvent, error) {
	rows, err := c.pool.Query(ctx, `
SELECT `+eventColumns+`, 1 - (e.embedding <=> $2::vector) AS similarity
FROM events e
WHERE e.world_id = $1
  AND e.embedding IS NOT NULL
  AND 1 - (e.embedding <=> $2::vector) > $3
ORDER BY similarity DESC, e.id ASC
LIMIT $4`, worldID, store.EncodeVector(embedding), threshold, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}
	defer rows.Close()

	results := []store.ScoredEvent{}
	for rows.Next() {
		var similarity float64
		ev, err := scanEvent(rows, &similarity)
		if err != nil {
			return nil, fmt.Errorf("scanning event search result: %w", err)
		}
		results = append(results, store.ScoredEvent{Event: *ev, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event search results: %w", err)
	}
	return results, nil
}

func (c *Client) ListUnlinkedEvents(ctx context.Context, worldID int64) ([]store.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.world_id = $1`
	for _, kind := range store.Kinds {
		query += fmt.Sprintf("\n  AND NOT EXISTS (SELECT 1 FROM %s l WHERE l.event_id = e.id)", kind.Tables().Links)
	}
	query += "\nORDER BY e.id"

	rows, err := c.pool.Query(ctx, query, worldID)
	if err != nil {
		return nil, fmt.Errorf("listing unlinked events: %w", err)
	}
	return collectEvents(rows)
}
