package postgres

import (
	"context"
	"fmt"
	"strings"

	"chronicle/internal/store"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// Every statement is idempotent; the whole script runs in one implicit
	// transaction.
	var b strings.Builder
	fmt.Fprintf(&b, `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS worlds (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL,
    slug        TEXT NOT NULL,
    embedding   vector(%[1]d),
    image_url   TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_world_slug UNIQUE (slug)
);

CREATE TABLE IF NOT EXISTS events (
    id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    world_id          BIGINT NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
    description       TEXT NOT NULL,
    short_description TEXT NOT NULL DEFAULT '',
    embedding         vector(%[1]d),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_world_created ON events (world_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_embedding ON events USING hnsw (embedding vector_cosine_ops);
`, c.dimensions)

	for _, kind := range store.Kinds {
		t := kind.Tables()
		extra := ""
		if kind == store.KindPlayer {
			extra = "\n    external_id TEXT NOT NULL DEFAULT '',"
		}
		fmt.Fprintf(&b, `
CREATE TABLE IF NOT EXISTS %[1]s (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    world_id    BIGINT NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    description TEXT NOT NULL,%[5]s
    embedding   vector(%[4]d),
    image_url   TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[2]s (
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    %[3]s BIGINT NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
    PRIMARY KEY (event_id, %[3]s)
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_world ON %[1]s (world_id);
CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s USING hnsw (embedding vector_cosine_ops);
CREATE INDEX IF NOT EXISTS idx_%[2]s_entity ON %[2]s (%[3]s);
`, t.Entities, t.Links, t.LinkColumn, c.dimensions, extra)
	}

	b.WriteString(`
CREATE INDEX IF NOT EXISTS idx_players_external ON players (world_id, external_id);

CREATE TABLE IF NOT EXISTS chat_histories (
    player_id  BIGINT PRIMARY KEY REFERENCES players(id) ON DELETE CASCADE,
    messages   JSONB NOT NULL DEFAULT '[]',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)

	if _, err := c.pool.Exec(ctx, b.String()); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
