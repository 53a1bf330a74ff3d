package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"chronicle/internal/store"
)

func (c *Client) MergeEntities(ctx context.Context, kind store.Kind, worldID, survivorID, loserID int64) error {
	if survivorID == loserID {
		return fmt.Errorf("cannot merge %s %d into itself", kind, survivorID)
	}
	t := kind.Tables()

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var found int
	err = tx.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE world_id = $1 AND id IN ($2, $3)`, t.Entities),
		worldID, survivorID, loserID).Scan(&found)
	if err != nil {
		return fmt.Errorf("checking merge participants: %w", err)
	}
	if found != 2 {
		return fmt.Errorf("merging %s: %w", t.Entities, store.ErrNotFound)
	}

	if err := relink(ctx, tx, t, t, loserID, survivorID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.Entities), loserID); err != nil {
		return fmt.Errorf("deleting merged %s: %w", kind, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing merge: %w", err)
	}
	return nil
}

func (c *Client) AbsorbCharacter(ctx context.Context, worldID, characterID, playerID int64) error {
	from := store.KindCharacter.Tables()
	to := store.KindPlayer.Tables()

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning absorb transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var found int
	err = tx.QueryRow(ctx, `
SELECT (SELECT count(*) FROM characters WHERE id = $2 AND world_id = $1)
     + (SELECT count(*) FROM players WHERE id = $3 AND world_id = $1)`,
		worldID, characterID, playerID).Scan(&found)
	if err != nil {
		return fmt.Errorf("checking absorb participants: %w", err)
	}
	if found != 2 {
		return fmt.Errorf("absorbing character: %w", store.ErrNotFound)
	}

	if err := relink(ctx, tx, from, to, characterID, playerID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM characters WHERE id = $1`, characterID); err != nil {
		return fmt.Errorf("deleting absorbed character: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing absorb: %w", err)
	}
	return nil
}

// relink copies every event link of fromID onto toID, skipping events toID is
// already linked to, then removes fromID's links.
func relink(ctx context.Context, tx pgx.Tx, from, to store.Tables, fromID, toID int64) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (event_id, %s)
SELECT event_id, $2 FROM %s WHERE %s = $1
ON CONFLICT DO NOTHING`, to.Links, to.LinkColumn, from.Links, from.LinkColumn), fromID, toID)
	if err != nil {
		return fmt.Errorf("re-pointing %s: %w", from.Links, err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, from.Links, from.LinkColumn), fromID); err != nil {
		return fmt.Errorf("removing old %s: %w", from.Links, err)
	}
	return nil
}
