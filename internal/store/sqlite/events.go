package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chronicle/internal/store"
)

const eventColumns = `e.id, e.world_id, e.description, e.short_description, COALESCE(e.embedding, ''), e.created_at`

func scanEvent(row interface{ Scan(...any) error }) (*store.Event, error) {
	var ev store.Event
	var embedding, created string
	if err := row.Scan(&ev.ID, &ev.WorldID, &ev.Description, &ev.ShortDescription, &embedding, &created); err != nil {
		return nil, err
	}
	v, err := store.DecodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("decoding event embedding: %w", err)
	}
	ev.Embedding = v
	if ev.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &ev, nil
}

func collectEvents(rows *sql.Rows) ([]store.Event, error) {
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

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

func (c *Client) CreateEvent(ctx context.Context, in store.EventInput) (*store.Event, error) {
	links := in.Links.Dedupe()
	if links.Empty() {
		return nil, fmt.Errorf("event has no links")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning event transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO events (world_id, description, short_description, embedding, created_at)
	VALUES (?, ?, ?, NULLIF(?, ''), ?)`,
		in.WorldID, in.Description, in.ShortDescription, store.EncodeVector(in.Embedding), now())
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", translateError(err))
	}
	eventID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading event id: %w", err)
	}

	for _, kind := range store.Kinds {
		t := kind.Tables()
		insert := fmt.Sprintf(`INSERT INTO %s (event_id, %s) SELECT ?, id FROM %s WHERE id = ? AND world_id = ?`,
			t.Links, t.LinkColumn, t.Entities)
		for _, id := range links.IDs(kind) {
			res, err := tx.ExecContext(ctx, insert, eventID, id, in.WorldID)
			if err != nil {
				return nil, fmt.Errorf("linking event %s: %w", t.Entities, err)
			}
			if n, _ := res.RowsAffected(); n != 1 {
				return nil, fmt.Errorf("linking event %s %d: %w", kind, id, store.ErrNotFound)
			}
		}
	}

	ev, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, eventID))
	if err != nil {
		return nil, fmt.Errorf("reading event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing event: %w", err)
	}
	return ev, nil
}

func (c *Client) GetEvent(ctx context.Context, worldID, id int64) (*store.Event, error) {
	ev, err := scanEvent(c.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = ? AND e.world_id = ?`, id, worldID))
	if err != nil {
		return nil, fmt.Errorf("getting event %d: %w", id, translateError(err))
	}
	return ev, nil
}

func (c *Client) EventLinks(ctx context.Context, eventID int64) (store.EventLinks, error) {
	var links store.EventLinks
	for _, kind := range store.Kinds {
		t := kind.Tables()
		ids, err := linkIDs(ctx, c.db,
			fmt.Sprintf(`SELECT %s FROM %s WHERE event_id = ? ORDER BY %s`, t.LinkColumn, t.Links, t.LinkColumn), eventID)
		if err != nil {
			return links, fmt.Errorf("loading %s links: %w", kind, err)
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

func linkIDs(ctx context.Context, db execer, query string, args ...any) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (c *Client) ListEvents(ctx context.Context, worldID int64, limit int) ([]store.Event, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+eventColumns+`
	FROM events e
	WHERE e.world_id = ?
	ORDER BY e.created_at DESC, e.id DESC`+limitClause(limit), worldID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return collectEvents(rows)
}

func (c *Client) EventsFor(ctx context.Context, kind store.Kind, entityID int64, limit int) ([]store.Event, error) {
	t := kind.Tables()
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s
	FROM events e
	JOIN %s l ON l.event_id = e.id
	WHERE l.%s = ?
	ORDER BY e.created_at DESC, e.id DESC`, eventColumns, t.Links, t.LinkColumn)+limitClause(limit), entityID)
	if err != nil {
		return nil, fmt.Errorf("listing events for %s %d: %w", kind, entityID, err)
	}
	return collectEvents(rows)
}

func (c *Client) SearchEvents(ctx context.Context, worldID int64, embedding []float32, threshold float64, limit int) ([]store.ScoredEvent, error) {
	events, err := c.ListEvents(ctx, worldID, 0)
	if err != nil {
		return nil, err
	}

	candidates := make([]scored[store.Event], 0, len(events))
	for _, ev := range events {
		sim, ok := cosine(embedding, ev.Embedding)
		if !ok {
			continue
		}
		candidates = append(candidates, scored[store.Event]{id: ev.ID, sim: sim, value: ev})
	}

	ranked := rank(candidates, threshold, limit)
	results := make([]store.ScoredEvent, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, store.ScoredEvent{Event: r.value, Similarity: r.sim})
	}
	return results, nil
}

func (c *Client) ListUnlinkedEvents(ctx context.Context, worldID int64) ([]store.Event, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + eventColumns + ` FROM events e WHERE e.world_id = ?`)
	for _, kind := range store.Kinds {
		fmt.Fprintf(&b, "\n\tAND NOT EXISTS (SELECT 1 FROM %s l WHERE l.event_id = e.id)", kind.Tables().Links)
	}
	b.WriteString("\n\tORDER BY e.id")

	rows, err := c.db.QueryContext(ctx, b.String(), worldID)
	if err != nil {
		return nil, fmt.Errorf("listing unlinked events: %w", err)
	}
	return collectEvents(rows)
}
