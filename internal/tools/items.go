package tools

import (
	"time"

	"chronicle/internal/store"
)

// ItemType tags a KnowledgeItem with the kind of record it came from.
type ItemType string

const (
	TypeEvent     ItemType = "world_event"
	TypeLocation  ItemType = "world_location"
	TypeCharacter ItemType = "world_character"
	TypePlayer    ItemType = "world_player"
	TypeItem      ItemType = "world_item"
	TypeWorld     ItemType = "world_world"
)

// ItemTypeOf maps an entity kind to its item tag.
func ItemTypeOf(kind store.Kind) ItemType {
	switch kind {
	case store.KindLocation:
		return TypeLocation
	case store.KindCharacter:
		return TypeCharacter
	case store.KindPlayer:
		return TypePlayer
	default:
		return TypeItem
	}
}

// KnowledgeItem is the tagged record every tool returns.
type KnowledgeItem struct {
	Type             ItemType  `json:"type"`
	ID               int64     `json:"id"`
	Name             string    `json:"name,omitempty"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	Similarity       float64   `json:"similarity,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// EntityItem tags an entity with its item type.
func EntityItem(e *store.Entity) KnowledgeItem {
	return KnowledgeItem{
		Type:        ItemTypeOf(e.Kind),
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		CreatedAt:   e.CreatedAt,
	}
}

func scoredEntityItem(e store.ScoredEntity) KnowledgeItem {
	item := EntityItem(&e.Entity)
	item.Similarity = e.Similarity
	return item
}

func EventItem(e *store.Event) KnowledgeItem {
	return KnowledgeItem{
		Type:             TypeEvent,
		ID:               e.ID,
		Description:      e.Description,
		ShortDescription: e.ShortDescription,
		CreatedAt:        e.CreatedAt,
	}
}

func scoredEventItem(e store.ScoredEvent) KnowledgeItem {
	item := EventItem(&e.Event)
	item.Similarity = e.Similarity
	return item
}

// QueryResult groups the items found for one search query.
type QueryResult struct {
	Query string          `json:"query"`
	Items []KnowledgeItem `json:"items"`
}

// Links lists the entities an event references.
type Links struct {
	LocationIDs  []int64 `json:"location_ids"`
	CharacterIDs []int64 `json:"character_ids"`
	PlayerIDs    []int64 `json:"player_ids"`
	ItemIDs      []int64 `json:"item_ids"`
}

func linksOf(l store.EventLinks) Links {
	orEmpty := func(ids []int64) []int64 {
		if ids == nil {
			return []int64{}
		}
		return ids
	}
	return Links{
		LocationIDs:  orEmpty(l.LocationIDs),
		CharacterIDs: orEmpty(l.CharacterIDs),
		PlayerIDs:    orEmpty(l.PlayerIDs),
		ItemIDs:      orEmpty(l.ItemIDs),
	}
}

type EventResult struct {
	Event KnowledgeItem `json:"event"`
	Links Links         `json:"links"`
}

type MergeResult struct {
	Survivor  KnowledgeItem `json:"survivor"`
	RemovedID int64         `json:"removed_id"`
}
