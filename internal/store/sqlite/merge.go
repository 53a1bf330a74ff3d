package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"chronicle/internal/store"
)

func (c *Client) MergeEntities(ctx context.Context, kind store.Kind, worldID, survivorID, loserID int64) error {
	if survivorID == loserID {
		return fmt.Errorf("cannot merge %s %d into itself", kind, survivorID)
	}
	t := kind.Tables()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning merge transaction: %w", err)
	}
	defer tx.Rollback()

	var found int
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE world_id = ? AND id IN (?, ?)`, t.Entities),
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
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.Entities), loserID); err != nil {
		return fmt.Errorf("deleting merged %s: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing merge: %w", err)
	}
	return nil
}

func (c *Client) AbsorbCharacter(ctx context.Context, worldID, characterID, playerID int64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning absorb transaction: %w", err)
	}
	defer tx.Rollback()

	var found int
	err = tx.QueryRowContext(ctx, `SELECT
	(SELECT count(*) FROM characters WHERE id = ? AND world_id = ?) +
	(SELECT count(*) FROM players WHERE id = ? AND world_id = ?)`,
		characterID, worldID, playerID, worldID).Scan(&found)
	if err != nil {
		return fmt.Errorf("checking absorb participants: %w", err)
	}
	if found != 2 {
		return fmt.Errorf("absorbing character: %w", store.ErrNotFound)
	}

	if err := relink(ctx, tx, store.KindCharacter.Tables(), store.KindPlayer.Tables(), characterID, playerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, characterID); err != nil {
		return fmt.Errorf("deleting absorbed character: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing absorb: %w", err)
	}
	return nil
}

// relink copies every event link of fromID onto toID, skipping events toID is
// already linked to, then removes fromID's links.
func relink(ctx context.Context, tx *sql.Tx, from, to store.Tables, fromID, toID int64) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT OR IGNORE INTO %s (event_id, %s)
	SELECT event_id, ? FROM %s WHERE %s = ?`, to.Links, to.LinkColumn, from.Links, from.LinkColumn), toID, fromID)
	if err != nil {
		return fmt.Errorf("re-pointing %s: %w", from.Links, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, from.Links, from.LinkColumn), fromID); err != nil {
		return fmt.Errorf("removing old %s: %w", from.Links, err)
	}
	return nil
}
