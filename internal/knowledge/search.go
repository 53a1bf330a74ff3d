package knowledge

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"chronicle/internal/store"
)

// Search ranks entities of one kind in the world by similarity to query.
// Results at or below the kind's threshold are dropped. An empty result is not
// an error.
func (s *Service) Search(ctx context.Context, world *store.World, kind store.Kind, query string, limit int) ([]store.ScoredEntity, error) {
	if !kind.Valid() {
		return nil, invalid("kind", "unknown entity kind %q", kind)
	}
	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := s.store.Entities(kind).Search(ctx, world.ID, embedding, s.search.Threshold(string(kind)), s.limit(limit))
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", kind.Plural(), err)
	}
	return results, nil
}

func (s *Service) SearchEvents(ctx context.Context, world *store.World, query string, limit int) ([]store.ScoredEvent, error) {
	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := s.store.SearchEvents(ctx, world.ID, embedding, s.search.Threshold("event"), s.limit(limit))
	if err != nil {
		return nil, fmt.Errorf("searching events: %w", err)
	}
	return results, nil
}

// SearchPersonalities searches characters and players together. Each result
// keeps its kind; the merged list is ordered by similarity and truncated.
func (s *Service) SearchPersonalities(ctx context.Context, world *store.World, query string, limit int) ([]store.ScoredEntity, error) {
	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	limit = s.limit(limit)

	kinds := []store.Kind{store.KindCharacter, store.KindPlayer}
	found := make([][]store.ScoredEntity, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			results, err := s.store.Entities(kind).Search(gctx, world.ID, embedding, s.search.Threshold(string(kind)), limit)
			if err != nil {
				return fmt.Errorf("searching %s: %w", kind.Plural(), err)
			}
			found[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := slices.Concat(found...)
	slices.SortStableFunc(merged, func(a, b store.ScoredEntity) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Field: "query", Err: ErrEmptyQuery}
	}
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return embedding, nil
}
