package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chronicle/internal/archivist"
	"chronicle/internal/cache"
	"chronicle/internal/config"
	"chronicle/internal/knowledge"
	"chronicle/internal/llm"
	"chronicle/internal/logging"
	"chronicle/internal/merge"
	"chronicle/internal/narrator"
	"chronicle/internal/realtime"
	"chronicle/internal/store"
	"chronicle/internal/tasks"
	"chronicle/internal/tools"
)

// app holds the process-wide components every command builds on.
type app struct {
	cfg       *config.ProjectConfig
	logger    *slog.Logger
	db        store.Store
	cache     *cache.Cache
	hub       *realtime.Hub
	tasks     *tasks.Runner
	knowledge *knowledge.Service
	merge     *merge.Engine
	narrator  *narrator.Narrator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}

	// stdout belongs to command output and the MCP stdio transport.
	logger, err := logging.New(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		_ = db.Close(ctx)
		return nil, err
	}

	openai := llm.NewOpenAIClient(cfg.OpenAI)
	decider := llm.NewAnthropicDecider(cfg.Anthropic)

	a := &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		cache:  c,
		hub:    realtime.NewHub(64, logger),
		tasks:  tasks.NewRunner(cfg.Tasks.Concurrency, logger),
	}
	a.knowledge = knowledge.New(knowledge.Deps{
		Store:     db,
		Embedder:  openai,
		Images:    openai,
		Cache:     c,
		Publisher: a.hub,
		Tasks:     a.tasks,
		Search:    cfg.Search,
		Logger:    logger,
	})
	a.merge = merge.New(merge.Deps{
		Knowledge:  a.knowledge,
		Summarizer: openai,
		Cache:      c,
		Logger:     logger,
	})

	var arch *archivist.Archivist
	if cfg.Archivist.Enabled {
		arch = archivist.New(archivist.Deps{
			Decider:       decider,
			Tools:         a.toolDeps(),
			Tasks:         a.tasks,
			Budget:        cfg.Budgets.Archive,
			FocusMessages: cfg.Archivist.FocusMessages,
			Logger:        logger,
		})
	}
	a.narrator = narrator.New(narrator.Deps{
		Store:     db,
		Decider:   decider,
		Tools:     a.toolDeps(),
		Archivist: arch,
		Budgets:   cfg.Budgets,
		Logger:    logger,
	})
	return a, nil
}

func (a *app) toolDeps() tools.Deps {
	return tools.Deps{Knowledge: a.knowledge, Merge: a.merge, Logger: a.logger}
}

// close drains background work before releasing the cache and database.
func (a *app) close(ctx context.Context) {
	shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := a.tasks.Shutdown(shutdown); err != nil {
		a.logger.Warn("background tasks still running at exit", "error", err)
	}
	a.cache.Close()
	if err := a.db.Close(shutdown); err != nil {
		a.logger.Warn("closing database", "error", err)
	}
}

func (a *app) world(ctx context.Context, slug string) (*store.World, error) {
	if slug == "" {
		return nil, fmt.Errorf("--world is required")
	}
	return a.knowledge.GetWorldBySlug(ctx, slug)
}
