// Package server exposes worlds, the knowledge wiki, player sessions and the
// realtime stream over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chronicle/internal/knowledge"
	"chronicle/internal/narrator"
	"chronicle/internal/realtime"
)

// IdentityHeader carries the caller's external identity. Player session
// routes require it to match the player's owner.
const IdentityHeader = "X-External-ID"

type Deps struct {
	Knowledge *knowledge.Service
	Narrator  *narrator.Narrator
	Hub       *realtime.Hub
	Logger    *slog.Logger
}

type Server struct {
	knowledge *knowledge.Service
	narrator  *narrator.Narrator
	realtime  http.Handler
	logger    *slog.Logger
}

func New(d Deps) *Server {
	logger := d.Logger.With("component", "http")
	return &Server{
		knowledge: d.Knowledge,
		narrator:  d.Narrator,
		realtime:  realtime.NewHandler(d.Hub, d.Logger),
		logger:    logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	r.GET("/worlds", s.listWorlds)
	r.POST("/worlds", s.createWorld)
	r.GET("/realtime", gin.WrapH(s.realtime))

	w := r.Group("/worlds/:slug", s.loadWorld())
	w.GET("", s.getWorld)
	w.GET("/events", s.recentEvents)
	w.GET("/search", s.search)
	w.GET("/:kind", s.listEntities)
	w.GET("/:kind/:id", s.getEntity)
	w.POST("/players", s.createPlayer)
	// The session group below owns the players/:id prefix, so the player
	// page cannot fall through to /:kind/:id.
	w.GET("/players/:id", s.getPlayerPage)

	p := w.Group("/players/:id", s.loadPlayer())
	p.POST("/intro", s.introduce)
	p.POST("/chat", s.chat)
	p.GET("/history", s.history)
	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http: %w", err)
		}
		return nil
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
