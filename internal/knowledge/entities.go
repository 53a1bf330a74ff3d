package knowledge

import (
	"context"
	"fmt"
	"strings"

	"chronicle/internal/cache"
	"chronicle/internal/realtime"
	"chronicle/internal/store"
)

// Create adds a location, character or item. Players are only created by
// their owners through CreatePlayer.
func (s *Service) Create(ctx context.Context, world *store.World, kind store.Kind, name, description string) (*store.Entity, error) {
	if kind == store.KindPlayer {
		return nil, invalid("kind", "players are created by users, not by the narrator")
	}
	if !kind.Valid() {
		return nil, invalid("kind", "unknown entity kind %q", kind)
	}
	return s.create(ctx, world, kind, store.EntityInput{Name: name, Description: description})
}

// CreatePlayer adds a player owned by the given external identity.
func (s *Service) CreatePlayer(ctx context.Context, world *store.World, externalID, name, description string) (*store.Entity, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, invalid("external_id", "must not be empty")
	}
	return s.create(ctx, world, store.KindPlayer, store.EntityInput{Name: name, Description: description, ExternalID: externalID})
}

func (s *Service) create(ctx context.Context, world *store.World, kind store.Kind, in store.EntityInput) (*store.Entity, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return nil, invalid("name", "must not be empty")
	}
	if in.Description == "" {
		return nil, invalid("description", "must not be empty")
	}

	embedding, err := s.embedder.Embed(ctx, DescribeEntity(kind, in.Name, in.Description))
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", kind, err)
	}
	in.WorldID = world.ID
	in.Embedding = embedding

	entity, err := s.store.Entities(kind).Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(cache.ListTag(kind, world.ID))
	s.logger.Info("created entity", "kind", kind, "id", entity.ID, "world", world.ID, "name", entity.Name)

	s.scheduleImage(ctx, world, entity)
	return entity, nil
}

// Update overwrites an entity's name and description and recomputes its
// embedding. An empty field keeps its current value. Concurrent updates are
// last-writer-wins.
func (s *Service) Update(ctx context.Context, world *store.World, kind store.Kind, id int64, name, description string) (*store.Entity, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" && description == "" {
		return nil, invalid("description", "name or description is required")
	}

	current, err := s.lookup(ctx, world, kind, id)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = current.Name
	}
	if description == "" {
		description = current.Description
	}

	embedding, err := s.embedder.Embed(ctx, DescribeEntity(kind, name, description))
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", kind, err)
	}
	updated, err := s.store.Entities(kind).Update(ctx, world.ID, id, store.EntityInput{
		WorldID:     world.ID,
		Name:        name,
		Description: description,
		Embedding:   embedding,
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(cache.EntityTag(kind, id), cache.ListTag(kind, world.ID))
	if kind == store.KindPlayer {
		s.publish(ctx, realtime.PlayerTopic(id), realtime.MessageUpdate, map[string]any{"player": entityPayload(updated)})
	}
	return updated, nil
}

// Get returns an entity of the world. An entity of another world is
// reported as store.ErrNotFound.
func (s *Service) Get(ctx context.Context, world *store.World, kind store.Kind, id int64) (*store.Entity, error) {
	key := fmt.Sprintf("entity:%s:%d", kind, id)
	entity, err := cache.Load(ctx, s.cache, key, []string{cache.EntityTag(kind, id)}, func(ctx context.Context) (*store.Entity, error) {
		return s.store.Entities(kind).Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if entity.WorldID != world.ID {
		return nil, fmt.Errorf("%s %d: %w", kind, id, store.ErrNotFound)
	}
	return entity, nil
}

// lookup reads through to the store, bypassing the cache, before a write.
func (s *Service) lookup(ctx context.Context, world *store.World, kind store.Kind, id int64) (*store.Entity, error) {
	entity, err := s.store.Entities(kind).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity.WorldID != world.ID {
		return nil, fmt.Errorf("%s %d: %w", kind, id, store.ErrNotFound)
	}
	return entity, nil
}

func (s *Service) List(ctx context.Context, world *store.World, kind store.Kind) ([]store.Entity, error) {
	key := fmt.Sprintf("list:%s:%d", kind, world.ID)
	return cache.Load(ctx, s.cache, key, []string{cache.ListTag(kind, world.ID)}, func(ctx context.Context) ([]store.Entity, error) {
		return s.store.Entities(kind).List(ctx, world.ID)
	})
}

// PlayerForIdentity returns the player only when it belongs to both the world
// and the external identity.
func (s *Service) PlayerForIdentity(ctx context.Context, world *store.World, id int64, externalID string) (*store.Entity, error) {
	player, err := s.Get(ctx, world, store.KindPlayer, id)
	if err != nil {
		return nil, err
	}
	if player.ExternalID != externalID {
		return nil, fmt.Errorf("player %d: %w", id, ErrIdentityMismatch)
	}
	return player, nil
}

// PlayersForIdentity lists the world's players owned by externalID.
func (s *Service) PlayersForIdentity(ctx context.Context, world *store.World, externalID string) ([]store.Entity, error) {
	players, err := s.List(ctx, world, store.KindPlayer)
	if err != nil {
		return nil, err
	}
	owned := []store.Entity{}
	for _, p := range players {
		if p.ExternalID == externalID {
			owned = append(owned, p)
		}
	}
	return owned, nil
}

// scheduleImage generates an image after the entity is already usable. A
// failure leaves the image empty.
func (s *Service) scheduleImage(ctx context.Context, world *store.World, entity *store.Entity) {
	if s.images == nil {
		return
	}
	kind, id, prompt := entity.Kind, entity.ID, entityImagePrompt(world, entity)
	s.tasks.Go(ctx, fmt.Sprintf("image %s-%d", kind, id), func(ctx context.Context) error {
		url, err := s.images.GenerateImage(ctx, prompt)
		if err != nil {
			return fmt.Errorf("generating %s image: %w", kind, err)
		}
		if err := s.store.Entities(kind).SetImage(ctx, id, url); err != nil {
			return fmt.Errorf("storing %s image: %w", kind, err)
		}
		s.invalidate(cache.EntityTag(kind, id), cache.ListTag(kind, world.ID))
		return nil
	})
}

func entityPayload(e *store.Entity) map[string]any {
	return map[string]any{
		"id":          e.ID,
		"kind":        e.Kind,
		"world_id":    e.WorldID,
		"name":        e.Name,
		"description": e.Description,
		"image_url":   e.ImageURL,
	}
}
