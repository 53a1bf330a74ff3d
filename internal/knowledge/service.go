// Package knowledge is the world knowledge base: semantic search, entity
// writes, the event log and worlds, with the cache and realtime side effects
// of every mutation.
package knowledge

import (
	"context"
	"log/slog"

	"chronicle/internal/cache"
	"chronicle/internal/config"
	"chronicle/internal/llm"
	"chronicle/internal/realtime"
	"chronicle/internal/store"
	"chronicle/internal/tasks"
)

const maxLimit = 50

type Deps struct {
	Store     store.Store
	Embedder  llm.Embedder
	Images    llm.ImageGenerator
	Cache     *cache.Cache
	Publisher realtime.Publisher
	Tasks     *tasks.Runner
	Search    config.SearchConfig
	Logger    *slog.Logger
}

type Service struct {
	store     store.Store
	embedder  llm.Embedder
	images    llm.ImageGenerator
	cache     *cache.Cache
	publisher realtime.Publisher
	tasks     *tasks.Runner
	search    config.SearchConfig
	logger    *slog.Logger
}

func New(d Deps) *Service {
	return &Service{
		store:     d.Store,
		embedder:  d.Embedder,
		images:    d.Images,
		cache:     d.Cache,
		publisher: d.Publisher,
		tasks:     d.Tasks,
		search:    d.Search,
		logger:    d.Logger.With("component", "knowledge"),
	}
}

func (s *Service) Store() store.Store { return s.store }

func (s *Service) limit(n int) int {
	if n <= 0 {
		n = s.search.DefaultLimit
	}
	if n <= 0 {
		n = 10
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n
}

func (s *Service) invalidate(tags ...string) {
	s.cache.Invalidate(tags...)
}

// publish delivers a realtime notification in the background. A failure is
// logged; nothing is retried.
func (s *Service) publish(ctx context.Context, topic, name string, data any) {
	if s.publisher == nil {
		return
	}
	s.tasks.Go(ctx, "publish "+topic, func(ctx context.Context) error {
		return s.publisher.Publish(ctx, topic, name, data)
	})
}
