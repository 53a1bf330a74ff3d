package sqlite

import (
	"context"
	"fmt"
	"strings"

	"chronicle/internal/store"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	var ddl strings.Builder
	ddl.WriteString(`
	CREATE TABLE IF NOT EXISTS worlds (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		slug        TEXT NOT NULL,
		embedding   TEXT,
		image_url   TEXT,
		created_at  TEXT NOT NULL,
		CONSTRAINT uq_world_slug UNIQUE (slug)
	);

	CREATE TABLE IF NOT EXISTS events (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		world_id          INTEGER NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
		description       TEXT NOT NULL,
		short_description TEXT NOT NULL DEFAULT '',
		embedding         TEXT,
		created_at        TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_world_created ON events (world_id, created_at);
`)

	for _, kind := range store.Kinds {
		t := kind.Tables()
		extra := ""
		if kind == store.KindPlayer {
			extra = "\n\t\texternal_id TEXT NOT NULL DEFAULT '',"
		}
		fmt.Fprintf(&ddl, `
	CREATE TABLE IF NOT EXISTS %[1]s (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		world_id    INTEGER NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,%[4]s
		embedding   TEXT,
		image_url   TEXT,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS %[2]s (
		event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		%[3]s INTEGER NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
		PRIMARY KEY (event_id, %[3]s)
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_world ON %[1]s (world_id);
	CREATE INDEX IF NOT EXISTS idx_%[2]s_entity ON %[2]s (%[3]s);
`, t.Entities, t.Links, t.LinkColumn, extra)
	}

	ddl.WriteString(`
	CREATE INDEX IF NOT EXISTS idx_players_external ON players (world_id, external_id);

	CREATE TABLE IF NOT EXISTS chat_histories (
		player_id  INTEGER PRIMARY KEY REFERENCES players(id) ON DELETE CASCADE,
		messages   TEXT NOT NULL DEFAULT '[]',
		updated_at TEXT NOT NULL
	);
`)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl.String()) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		statements = append(statements, current.String())
	}
	return statements
}
