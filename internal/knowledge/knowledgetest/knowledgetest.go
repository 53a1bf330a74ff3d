// Package knowledgetest wires a knowledge.Service over an in-memory sqlite
// store and deterministic model fakes.
package knowledgetest

import (
	"context"
	"testing"

	"chronicle/internal/cache"
	"chronicle/internal/config"
	"chronicle/internal/knowledge"
	"chronicle/internal/llm/llmtest"
	"chronicle/internal/logging"
	"chronicle/internal/realtime"
	"chronicle/internal/store"
	"chronicle/internal/store/sqlite"
	"chronicle/internal/tasks"
)

type Env struct {
	Config   *config.ProjectConfig
	Store    store.Store
	Embedder *llmtest.Embedder
	Images   *llmtest.Images
	Hub      *realtime.Hub
	Tasks    *tasks.Runner
	Cache    *cache.Cache
	Service  *knowledge.Service
}

func New(t *testing.T) *Env {
	t.Helper()
	ctx := context.Background()

	cfg := config.Default()
	cfg.Project = "test"
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "sqlite://:memory:"

	db, err := sqlite.New(ctx, cfg.Database.DSN)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	c, err := cache.New(cfg.Cache)
	if err != nil {
		t.Fatalf("creating cache: %v", err)
	}

	logger := logging.Discard()
	env := &Env{
		Config:   cfg,
		Store:    db,
		Embedder: llmtest.NewEmbedder(),
		Images:   &llmtest.Images{},
		Hub:      realtime.NewHub(16, logger),
		Tasks:    tasks.NewRunner(4, logger),
		Cache:    c,
	}
	env.Service = knowledge.New(knowledge.Deps{
		Store:     env.Store,
		Embedder:  env.Embedder,
		Images:    env.Images,
		Cache:     env.Cache,
		Publisher: env.Hub,
		Tasks:     env.Tasks,
		Search:    cfg.Search,
		Logger:    logger,
	})

	t.Cleanup(func() {
		env.Tasks.Wait()
		c.Close()
		_ = db.Close(ctx)
	})
	return env
}

// World creates a world and waits for its background image task.
func (e *Env) World(t *testing.T, name string) *store.World {
	t.Helper()
	w, err := e.Service.CreateWorld(context.Background(), name, "A world called "+name, "")
	if err != nil {
		t.Fatalf("creating world %q: %v", name, err)
	}
	e.Tasks.Wait()
	return w
}

// Entity creates a non-player entity.
func (e *Env) Entity(t *testing.T, w *store.World, kind store.Kind, name, description string) *store.Entity {
	t.Helper()
	entity, err := e.Service.Create(context.Background(), w, kind, name, description)
	if err != nil {
		t.Fatalf("creating %s %q: %v", kind, name, err)
	}
	return entity
}

func (e *Env) Player(t *testing.T, w *store.World, externalID, name, description string) *store.Entity {
	t.Helper()
	p, err := e.Service.CreatePlayer(context.Background(), w, externalID, name, description)
	if err != nil {
		t.Fatalf("creating player %q: %v", name, err)
	}
	return p
}

func (e *Env) Event(t *testing.T, w *store.World, description string, links store.EventLinks) *store.Event {
	t.Helper()
	ev, err := e.Service.AddEvent(context.Background(), w, knowledge.EventInput{Description: description, Links: links})
	if err != nil {
		t.Fatalf("adding event %q: %v", description, err)
	}
	return ev
}
