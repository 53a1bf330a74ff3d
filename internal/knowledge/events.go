package knowledge

import (
	"context"
	"fmt"
	"strings"

	"chronicle/internal/cache"
	"chronicle/internal/realtime"
	"chronicle/internal/store"
)

type EventInput struct {
	Description      string
	ShortDescription string
	Links            store.EventLinks
}

// AddEvent appends an event to the world's log. The event and its links are
// written together; a link to an entity outside the world fails the whole
// write with store.ErrNotFound. Identical events are not deduplicated.
func (s *Service) AddEvent(ctx context.Context, world *store.World, in EventInput) (*store.Event, error) {
	links := in.Links.Dedupe()
	if links.Empty() {
		return nil, &ValidationError{Field: "links", Err: ErrNoReferences}
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, invalid("description", "must not be empty")
	}

	names := make([]string, 0, len(links.LocationIDs))
	for _, id := range links.LocationIDs {
		loc, err := s.Get(ctx, world, store.KindLocation, id)
		if err != nil {
			return nil, fmt.Errorf("resolving event location: %w", err)
		}
		names = append(names, loc.Name)
	}

	embedding, err := s.embedder.Embed(ctx, DescribeEvent(names, description))
	if err != nil {
		return nil, fmt.Errorf("embedding event: %w", err)
	}

	event, err := s.store.CreateEvent(ctx, store.EventInput{
		WorldID:          world.ID,
		Description:      description,
		ShortDescription: strings.TrimSpace(in.ShortDescription),
		Embedding:        embedding,
		Links:            links,
	})
	if err != nil {
		return nil, fmt.Errorf("recording event: %w", err)
	}

	tags := []string{cache.EventsTag(world.ID)}
	for _, kind := range store.Kinds {
		for _, id := range links.IDs(kind) {
			tags = append(tags, cache.EntityEventsTag(kind, id))
		}
	}
	s.invalidate(tags...)
	s.logger.Info("recorded event", "id", event.ID, "world", world.ID)

	s.publish(ctx, realtime.WorldEventTopic(world.ID), realtime.MessageEvent, map[string]any{"event": eventPayload(event)})
	return event, nil
}

// EventsFor lists the events linked to an entity, most recent first. A
// non-positive limit returns every event.
func (s *Service) EventsFor(ctx context.Context, world *store.World, kind store.Kind, id int64, limit int) ([]store.Event, error) {
	if _, err := s.Get(ctx, world, kind, id); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("events:%s:%d:%d", kind, id, limit)
	return cache.Load(ctx, s.cache, key, []string{cache.EntityEventsTag(kind, id)}, func(ctx context.Context) ([]store.Event, error) {
		return s.store.EventsFor(ctx, kind, id, limit)
	})
}

// RecentEvents lists the world's events, most recent first.
func (s *Service) RecentEvents(ctx context.Context, world *store.World, limit int) ([]store.Event, error) {
	key := fmt.Sprintf("events:world:%d:%d", world.ID, limit)
	return cache.Load(ctx, s.cache, key, []string{cache.EventsTag(world.ID)}, func(ctx context.Context) ([]store.Event, error) {
		return s.store.ListEvents(ctx, world.ID, limit)
	})
}

func (s *Service) EventLinks(ctx context.Context, world *store.World, eventID int64) (store.EventLinks, error) {
	if _, err := s.store.GetEvent(ctx, world.ID, eventID); err != nil {
		return store.EventLinks{}, err
	}
	return s.store.EventLinks(ctx, eventID)
}

func eventPayload(e *store.Event) map[string]any {
	return map[string]any{
		"id":                e.ID,
		"world_id":          e.WorldID,
		"description":       e.Description,
		"short_description": e.ShortDescription,
		"created_at":        e.CreatedAt,
	}
}
