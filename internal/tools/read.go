package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"chronicle/internal/store"
)

const maxQueries = 10

func (c *Catalogue) readTools() []func() (*Tool, error) {
	return []func() (*Tool, error){
		c.searchTool("get_world_events",
			"Get the latest events in the world. Use this to find out what has recently happened at a location or with a character.",
			"The queries to search for events, such as a location or character name. Include at least 3 different queries.",
			3, c.searchEvents),
		c.searchTool("get_world_locations",
			"Get locations in the world and their descriptions. Use this thoroughly as part of your knowledge of the world.",
			"The queries to search for locations, such as a location name or type or nearby locations. Include at least 3 different queries.",
			3, c.searchKind(store.KindLocation)),
		c.searchTool("get_world_npcs",
			"Get non-player characters (NPCs) in the world and their descriptions. Use this thoroughly as part of your knowledge of the world.",
			"The queries to search for characters, such as a name or type or nearby characters. Include at least 3 different queries.",
			3, c.searchKind(store.KindCharacter)),
		c.searchTool("get_world_players",
			"Get players in the world and their descriptions. Use this to learn about other players that may have interacted with locations, characters or items.",
			"The queries to search for players, such as a player name or type or related activities.",
			1, c.searchKind(store.KindPlayer)),
		c.searchTool("get_world_personalities",
			"Get personalities in the world and their descriptions. This is the main character search tool and searches both characters (NPCs) and players.",
			"The queries to search for personalities, such as a name or type or related personalities.",
			1, c.searchPersonalities),
		c.searchTool("get_world_items",
			"Get items in the world and their descriptions. Use this thoroughly as part of your knowledge of the world.",
			"The queries to search for items, such as an item name or type or related items. Include at least 3 different queries.",
			3, c.searchKind(store.KindItem)),
		define("get_current_player",
			"Get the current player and their description.",
			false, nil, func(ctx context.Context, _ NoInput) (any, error) {
				return c.currentPlayer(ctx)
			}),
	}
}

type searchFunc func(ctx context.Context, query string) ([]KnowledgeItem, error)

// searchTool defines a tool taking between minQueries and maxQueries query
// strings. Every query runs concurrently; one failure fails the call.
func (c *Catalogue) searchTool(name, description, queriesDescription string, minQueries int, search searchFunc) func() (*Tool, error) {
	patch := func(s *jsonschema.Schema) {
		q := s.Properties["queries"]
		q.Description = queriesDescription
		q.MinItems = intPtr(minQueries)
		q.MaxItems = intPtr(maxQueries)
	}
	return define(name, description, false, patch, func(ctx context.Context, in SearchInput) (any, error) {
		if n := len(in.Queries); n < minQueries || n > maxQueries {
			return nil, inputErrorf(name, "queries must hold between %d and %d entries, got %d", minQueries, maxQueries, n)
		}
		for i, q := range in.Queries {
			if strings.TrimSpace(q) == "" {
				return nil, inputErrorf(name, "query %d is empty", i)
			}
		}
		return fanOut(ctx, in.Queries, search)
	})
}

func fanOut(ctx context.Context, queries []string, search searchFunc) ([]QueryResult, error) {
	results := make([]QueryResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			items, err := search(gctx, query)
			if err != nil {
				return fmt.Errorf("searching %q: %w", query, err)
			}
			results[i] = QueryResult{Query: query, Items: items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Catalogue) searchKind(kind store.Kind) searchFunc {
	return func(ctx context.Context, query string) ([]KnowledgeItem, error) {
		found, err := c.knowledge.Search(ctx, c.session.World, kind, query, 0)
		if err != nil {
			return nil, err
		}
		return scoredEntityItems(found), nil
	}
}

func (c *Catalogue) searchPersonalities(ctx context.Context, query string) ([]KnowledgeItem, error) {
	found, err := c.knowledge.SearchPersonalities(ctx, c.session.World, query, 0)
	if err != nil {
		return nil, err
	}
	return scoredEntityItems(found), nil
}

func (c *Catalogue) searchEvents(ctx context.Context, query string) ([]KnowledgeItem, error) {
	found, err := c.knowledge.SearchEvents(ctx, c.session.World, query, 0)
	if err != nil {
		return nil, err
	}
	items := make([]KnowledgeItem, 0, len(found))
	for _, ev := range found {
		items = append(items, scoredEventItem(ev))
	}
	return items, nil
}

func (c *Catalogue) currentPlayer(ctx context.Context) (KnowledgeItem, error) {
	if c.session.Player == nil {
		return KnowledgeItem{}, fmt.Errorf("no player in this session: %w", store.ErrNotFound)
	}
	p, err := c.knowledge.Get(ctx, c.session.World, store.KindPlayer, c.session.Player.ID)
	if err != nil {
		return KnowledgeItem{}, err
	}
	return EntityItem(p), nil
}

func scoredEntityItems(found []store.ScoredEntity) []KnowledgeItem {
	items := make([]KnowledgeItem, 0, len(found))
	for _, e := range found {
		items = append(items, scoredEntityItem(e))
	}
	return items
}

func intPtr(n int) *int { return &n }
