// Package merge folds duplicate knowledge entities into one.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chronicle/internal/cache"
	"chronicle/internal/knowledge"
	"chronicle/internal/llm"
	"chronicle/internal/store"
)

// ErrCrossWorld is wrapped in a *knowledge.ValidationError when the two
// entities do not both belong to the session's world.
var ErrCrossWorld = errors.New("entities belong to different worlds")

type Result struct {
	Survivor  *store.Entity
	RemovedID int64
}

type Deps struct {
	Knowledge  *knowledge.Service
	Summarizer llm.Summarizer
	Cache      *cache.Cache
	Logger     *slog.Logger
}

type Engine struct {
	knowledge  *knowledge.Service
	store      store.Store
	summarizer llm.Summarizer
	cache      *cache.Cache
	logger     *slog.Logger
}

func New(d Deps) *Engine {
	return &Engine{
		knowledge:  d.Knowledge,
		store:      d.Knowledge.Store(),
		summarizer: d.Summarizer,
		cache:      d.Cache,
		logger:     d.Logger.With("component", "merge"),
	}
}

// MergeSameKind folds entity b into entity a. The summarised record is
// written to a, b's event links move to a without duplicates, and b is
// deleted.
func (e *Engine) MergeSameKind(ctx context.Context, world *store.World, kind store.Kind, a, b int64) (*Result, error) {
	if kind == store.KindPlayer {
		return nil, &knowledge.ValidationError{Field: "kind", Err: errors.New("players cannot be merged with each other")}
	}
	if !kind.Valid() {
		return nil, &knowledge.ValidationError{Field: "kind", Err: fmt.Errorf("unknown entity kind %q", kind)}
	}
	if a == b {
		return nil, &knowledge.ValidationError{Field: "id", Err: fmt.Errorf("cannot merge %s %d into itself", kind, a)}
	}

	survivor, loser, err := e.participants(ctx, world, kind, a, kind, b)
	if err != nil {
		return nil, err
	}
	e.logger.Info("merging entities", "kind", kind, "survivor", survivor.Name, "removed", loser.Name, "world", world.ID)

	merged, err := e.summarize(ctx, survivor, loser)
	if err != nil {
		return nil, err
	}
	updated, err := e.knowledge.Update(ctx, world, kind, a, merged.Name, merged.Description)
	if err != nil {
		return nil, fmt.Errorf("updating merged %s: %w", kind, err)
	}
	if err := e.store.MergeEntities(ctx, kind, world.ID, a, b); err != nil {
		// The survivor already carries the merged record; both rows remain.
		e.logger.Error("relinking merged entities failed", "kind", kind, "survivor_id", a, "removed_id", b, "world", world.ID, "error", err)
		return nil, fmt.Errorf("merging %s: %w", kind.Plural(), err)
	}

	e.cache.Invalidate(
		cache.EntityTag(kind, a), cache.EntityTag(kind, b),
		cache.EntityEventsTag(kind, a), cache.EntityEventsTag(kind, b),
		cache.ListTag(kind, world.ID),
	)
	return &Result{Survivor: updated, RemovedID: b}, nil
}

// MergeCharacterIntoPlayer folds a character that was created for an existing
// player into that player and deletes the character.
func (e *Engine) MergeCharacterIntoPlayer(ctx context.Context, world *store.World, characterID, playerID int64) (*Result, error) {
	character, player, err := e.participants(ctx, world, store.KindCharacter, characterID, store.KindPlayer, playerID)
	if err != nil {
		return nil, err
	}
	e.logger.Info("merging character into player", "character", character.Name, "player", player.Name, "world", world.ID)

	merged, err := e.summarize(ctx, character, player)
	if err != nil {
		return nil, err
	}
	updated, err := e.knowledge.Update(ctx, world, store.KindPlayer, playerID, merged.Name, merged.Description)
	if err != nil {
		return nil, fmt.Errorf("updating merged player: %w", err)
	}
	if err := e.store.AbsorbCharacter(ctx, world.ID, characterID, playerID); err != nil {
		e.logger.Error("absorbing character failed", "survivor_id", playerID, "removed_id", characterID, "world", world.ID, "error", err)
		return nil, fmt.Errorf("absorbing character: %w", err)
	}

	e.cache.Invalidate(
		cache.EntityTag(store.KindCharacter, characterID),
		cache.EntityEventsTag(store.KindCharacter, characterID),
		cache.ListTag(store.KindCharacter, world.ID),
		cache.EntityEventsTag(store.KindPlayer, playerID),
	)
	return &Result{Survivor: updated, RemovedID: characterID}, nil
}

// participants loads both entities uncached. A missing id is
// store.ErrNotFound; ids outside the world are ErrCrossWorld.
func (e *Engine) participants(ctx context.Context, world *store.World, kindA store.Kind, a int64, kindB store.Kind, b int64) (*store.Entity, *store.Entity, error) {
	first, err := e.store.Entities(kindA).Get(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	second, err := e.store.Entities(kindB).Get(ctx, b)
	if err != nil {
		return nil, nil, err
	}
	if first.WorldID != second.WorldID || first.WorldID != world.ID {
		return nil, nil, &knowledge.ValidationError{Field: "id", Err: ErrCrossWorld}
	}
	return first, second, nil
}

func (e *Engine) summarize(ctx context.Context, a, b *store.Entity) (llm.Described, error) {
	merged, err := e.summarizer.Merge(ctx,
		llm.Described{Name: a.Name, Description: a.Description},
		llm.Described{Name: b.Name, Description: b.Description})
	if err != nil {
		return llm.Described{}, fmt.Errorf("summarizing merge: %w", err)
	}
	return merged, nil
}
