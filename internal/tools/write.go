package tools

import (
	"context"
	"fmt"

	"chronicle/internal/knowledge"
	"chronicle/internal/store"
)

func (c *Catalogue) writeTools() []func() (*Tool, error) {
	return []func() (*Tool, error){
		define("add_world_event",
			"Add an event to the world. If anything happens, record it here. If a new item, character or location is involved, save it first to get its id, then add the event with the ids.",
			true, nil, c.addEvent),
		c.createTool("add_location", store.KindLocation,
			"Add a location to the world."),
		c.updateTool("update_location", store.KindLocation,
			"Update a location that is already in the world if something has changed."),
		c.createTool("add_character", store.KindCharacter,
			"Add a new non-player character to the world. Never use this for players."),
		c.updateTool("update_character", store.KindCharacter,
			"Update a character that is already in the world if something has changed."),
		c.mergeTool("merge_characters", store.KindCharacter,
			"Merge two characters into one. Use this when two character entries are the same person under different names."),
		define("merge_character_into_player",
			"Merge a character into a player. Use this when a character was created for someone who is actually a player.",
			true, nil, c.absorb),
		c.createTool("add_item", store.KindItem,
			"Add a new item to the world. Use this whenever an item of note is mentioned that is not already in the knowledge base."),
		c.updateTool("update_item", store.KindItem,
			"Update an item that is already in the world if something has changed."),
		c.mergeTool("merge_items", store.KindItem,
			"Merge two items into one. Use this when two item entries are the same object."),
		c.mergeTool("merge_locations", store.KindLocation,
			"Merge two locations into one. Use this when two location entries are the same place."),
		define("update_player",
			"Update the current player's name or description, for example when they are injured, die or gain new powers.",
			true, nil, c.updatePlayer),
	}
}

func (c *Catalogue) addEvent(ctx context.Context, in AddEventInput) (any, error) {
	ev, err := c.knowledge.AddEvent(ctx, c.session.World, knowledge.EventInput{
		Description:      in.Description,
		ShortDescription: in.ShortDescription,
		Links: store.EventLinks{
			LocationIDs:  in.LocationIDs,
			CharacterIDs: in.CharacterIDs,
			PlayerIDs:    in.PlayerIDs,
			ItemIDs:      in.ItemIDs,
		},
	})
	if err != nil {
		return nil, err
	}
	links, err := c.knowledge.EventLinks(ctx, c.session.World, ev.ID)
	if err != nil {
		return nil, err
	}
	return EventResult{Event: EventItem(ev), Links: linksOf(links)}, nil
}

func (c *Catalogue) createTool(name string, kind store.Kind, description string) func() (*Tool, error) {
	return define(name, description, true, nil, func(ctx context.Context, in CreateInput) (any, error) {
		e, err := c.knowledge.Create(ctx, c.session.World, kind, in.Name, in.Description)
		if err != nil {
			return nil, err
		}
		return EntityItem(e), nil
	})
}

func (c *Catalogue) updateTool(name string, kind store.Kind, description string) func() (*Tool, error) {
	return define(name, description, true, nil, func(ctx context.Context, in UpdateInput) (any, error) {
		if in.ID <= 0 {
			return nil, inputErrorf(name, "id is required")
		}
		e, err := c.knowledge.Update(ctx, c.session.World, kind, in.ID, in.Name, in.Description)
		if err != nil {
			return nil, err
		}
		return EntityItem(e), nil
	})
}

func (c *Catalogue) mergeTool(name string, kind store.Kind, description string) func() (*Tool, error) {
	return define(name, description, true, nil, func(ctx context.Context, in MergeInput) (any, error) {
		if in.ID <= 0 || in.OtherID <= 0 {
			return nil, inputErrorf(name, "id and other_id are required")
		}
		result, err := c.merge.MergeSameKind(ctx, c.session.World, kind, in.ID, in.OtherID)
		if err != nil {
			return nil, err
		}
		return MergeResult{Survivor: EntityItem(result.Survivor), RemovedID: result.RemovedID}, nil
	})
}

func (c *Catalogue) absorb(ctx context.Context, in AbsorbInput) (any, error) {
	if in.CharacterID <= 0 || in.PlayerID <= 0 {
		return nil, inputErrorf("merge_character_into_player", "character_id and player_id are required")
	}
	result, err := c.merge.MergeCharacterIntoPlayer(ctx, c.session.World, in.CharacterID, in.PlayerID)
	if err != nil {
		return nil, err
	}
	return MergeResult{Survivor: EntityItem(result.Survivor), RemovedID: result.RemovedID}, nil
}

// updatePlayer only ever touches the session's own player.
func (c *Catalogue) updatePlayer(ctx context.Context, in UpdatePlayerInput) (any, error) {
	if c.session.Player == nil {
		return nil, fmt.Errorf("no player in this session: %w", store.ErrNotFound)
	}
	e, err := c.knowledge.Update(ctx, c.session.World, store.KindPlayer, c.session.Player.ID, in.Name, in.Description)
	if err != nil {
		return nil, err
	}
	return EntityItem(e), nil
}
