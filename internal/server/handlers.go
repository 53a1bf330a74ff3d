package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chronicle/internal/store"
)

const (
	worldKey  = "world"
	playerKey = "player"
)

type createWorldRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Slug        string `json:"slug"`
}

type createPlayerRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) listWorlds(c *gin.Context) {
	worlds, err := s.knowledge.ListWorlds(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]worldView, 0, len(worlds))
	for i := range worlds {
		out = append(out, newWorldView(&worlds[i]))
	}
	c.JSON(http.StatusOK, gin.H{"worlds": out})
}

func (s *Server) createWorld(c *gin.Context) {
	var req createWorldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	w, err := s.knowledge.CreateWorld(c.Request.Context(), req.Name, req.Description, req.Slug)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"world": newWorldView(w)})
}

func (s *Server) loadWorld() gin.HandlerFunc {
	return func(c *gin.Context) {
		w, err := s.knowledge.GetWorldBySlug(c.Request.Context(), c.Param("slug"))
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(worldKey, w)
		c.Next()
	}
}

func world(c *gin.Context) *store.World {
	return c.MustGet(worldKey).(*store.World)
}

func (s *Server) getWorld(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"world": newWorldView(world(c))})
}

func (s *Server) recentEvents(c *gin.Context) {
	events, err := s.knowledge.RecentEvents(c.Request.Context(), world(c), queryInt(c, "limit", 50))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": eventViews(events)})
}

// search runs a semantic search. kind=event searches the event log and
// kind=personality searches characters and players together.
func (s *Server) search(c *gin.Context) {
	ctx := c.Request.Context()
	query := c.Query("q")
	limit := queryInt(c, "limit", 0)

	switch kind := c.DefaultQuery("kind", "location"); kind {
	case "event", "events":
		found, err := s.knowledge.SearchEvents(ctx, world(c), query, limit)
		if err != nil {
			s.fail(c, err)
			return
		}
		out := make([]eventView, 0, len(found))
		for _, ev := range found {
			v := newEventView(&ev.Event)
			v.Similarity = ev.Similarity
			out = append(out, v)
		}
		c.JSON(http.StatusOK, gin.H{"events": out})
	default:
		var (
			found []store.ScoredEntity
			err   error
		)
		if kind == "personality" || kind == "personalities" {
			found, err = s.knowledge.SearchPersonalities(ctx, world(c), query, limit)
		} else {
			k, perr := store.ParseKind(kind)
			if perr != nil {
				badRequest(c, perr.Error())
				return
			}
			found, err = s.knowledge.Search(ctx, world(c), k, query, limit)
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		out := make([]entityView, 0, len(found))
		for _, e := range found {
			v := newEntityView(&e.Entity)
			v.Similarity = e.Similarity
			out = append(out, v)
		}
		c.JSON(http.StatusOK, gin.H{"results": out})
	}
}

func (s *Server) listEntities(c *gin.Context) {
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	entities, err := s.knowledge.List(c.Request.Context(), world(c), kind)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]entityView, 0, len(entities))
	for i := range entities {
		out = append(out, newEntityView(&entities[i]))
	}
	c.JSON(http.StatusOK, gin.H{kind.Plural(): out})
}

// getEntity is the wiki page of one entity: its record and its events, most
// recent first.
func (s *Server) getEntity(c *gin.Context) {
	kind, err := store.ParseKind(c.Param("kind"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.showEntity(c, kind)
}

func (s *Server) getPlayerPage(c *gin.Context) {
	s.showEntity(c, store.KindPlayer)
}

func (s *Server) showEntity(c *gin.Context, kind store.Kind) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	entity, err := s.knowledge.Get(ctx, world(c), kind, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	events, err := s.knowledge.EventsFor(ctx, world(c), kind, id, queryInt(c, "events", 20))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": newEntityView(entity), "events": eventViews(events)})
}

func (s *Server) createPlayer(c *gin.Context) {
	identity := strings.TrimSpace(c.GetHeader(IdentityHeader))
	if identity == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": IdentityHeader + " header is required"})
		return
	}
	var req createPlayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := s.knowledge.CreatePlayer(c.Request.Context(), world(c), identity, req.Name, req.Description)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"player": newEntityView(p)})
}

// loadPlayer resolves the path player and checks it belongs to the caller.
func (s *Server) loadPlayer() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := strings.TrimSpace(c.GetHeader(IdentityHeader))
		if identity == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": IdentityHeader + " header is required"})
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		p, err := s.knowledge.PlayerForIdentity(c.Request.Context(), world(c), id, identity)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(playerKey, p)
		c.Next()
	}
}

func player(c *gin.Context) *store.Entity {
	return c.MustGet(playerKey).(*store.Entity)
}

func (s *Server) introduce(c *gin.Context) {
	messages, err := s.narrator.Introduce(c.Request.Context(), world(c), player(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	narration, err := s.narrator.Turn(c.Request.Context(), world(c), player(c), req.Message)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"narration": narration})
}

func (s *Server) history(c *gin.Context) {
	messages, err := s.narrator.History(c.Request.Context(), player(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return value
}
