package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"chronicle/internal/cache"
	"chronicle/internal/store"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CreateWorld creates a world. An empty slug is derived from the name.
func (s *Service) CreateWorld(ctx context.Context, name, description, slug string) (*store.World, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, invalid("name", "must not be empty")
	}
	if description == "" {
		return nil, invalid("description", "must not be empty")
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return nil, invalid("slug", "%q must be lowercase letters, digits and dashes", slug)
	}

	embedding, err := s.embedder.Embed(ctx, DescribeWorld(name, description))
	if err != nil {
		return nil, fmt.Errorf("embedding world: %w", err)
	}
	world, err := s.store.CreateWorld(ctx, store.WorldInput{Name: name, Description: description, Slug: slug, Embedding: embedding})
	if err != nil {
		return nil, err
	}
	s.invalidate(cache.WorldsTag)
	s.logger.Info("created world", "id", world.ID, "slug", world.Slug)

	if s.images != nil {
		id, prompt := world.ID, worldImagePrompt(world)
		s.tasks.Go(ctx, fmt.Sprintf("image world-%d", id), func(ctx context.Context) error {
			url, err := s.images.GenerateImage(ctx, prompt)
			if err != nil {
				return fmt.Errorf("generating world image: %w", err)
			}
			if err := s.store.SetWorldImage(ctx, id, url); err != nil {
				return fmt.Errorf("storing world image: %w", err)
			}
			s.invalidate(cache.WorldTag(id), cache.WorldsTag)
			return nil
		})
	}
	return world, nil
}

func (s *Service) GetWorld(ctx context.Context, id int64) (*store.World, error) {
	return cache.Load(ctx, s.cache, fmt.Sprintf("world:%d", id), []string{cache.WorldTag(id)}, func(ctx context.Context) (*store.World, error) {
		return s.store.GetWorld(ctx, id)
	})
}

func (s *Service) GetWorldBySlug(ctx context.Context, slug string) (*store.World, error) {
	return cache.Load(ctx, s.cache, "world-slug:"+slug, []string{cache.WorldsTag}, func(ctx context.Context) (*store.World, error) {
		return s.store.GetWorldBySlug(ctx, slug)
	})
}

func (s *Service) ListWorlds(ctx context.Context) ([]store.World, error) {
	return cache.Load(ctx, s.cache, "worlds", []string{cache.WorldsTag}, func(ctx context.Context) ([]store.World, error) {
		return s.store.ListWorlds(ctx)
	})
}
