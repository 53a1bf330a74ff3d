package store

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a row does not exist or belongs to a
// different world than the one requested.
var ErrNotFound = errors.New("not found")

// Kind names one of the four knowledge entity tables.
type Kind string

const (
	KindLocation  Kind = "location"
	KindCharacter Kind = "character"
	KindPlayer    Kind = "player"
	KindItem      Kind = "item"
)

// Kinds lists every entity kind in a stable order.
var Kinds = []Kind{KindLocation, KindCharacter, KindPlayer, KindItem}

func ParseKind(value string) (Kind, error) {
	switch value {
	case "location", "locations":
		return KindLocation, nil
	case "character", "characters":
		return KindCharacter, nil
	case "player", "players":
		return KindPlayer, nil
	case "item", "items":
		return KindItem, nil
	default:
		return "", fmt.Errorf("unknown entity kind: %s", value)
	}
}

func (k Kind) Valid() bool {
	switch k {
	case KindLocation, KindCharacter, KindPlayer, KindItem:
		return true
	}
	return false
}

// Plural is the collection name used for tables and cache tags.
func (k Kind) Plural() string {
	return string(k) + "s"
}

type World struct {
	ID          int64
	Name        string
	Description string
	Slug        string
	Embedding   []float32
	ImageURL    string
	CreatedAt   time.Time
}

type WorldInput struct {
	Name        string
	Description string
	Slug        string
	Embedding   []float32
}

type Entity struct {
	ID          int64
	Kind        Kind
	WorldID     int64
	Name        string
	Description string
	Embedding   []float32
	ImageURL    string
	ExternalID  string
	CreatedAt   time.Time
}

type EntityInput struct {
	WorldID     int64
	Name        string
	Description string
	Embedding   []float32
	// ExternalID is only stored for players.
	ExternalID string
}

type ScoredEntity struct {
	Entity
	Similarity float64
}

type Event struct {
	ID               int64
	WorldID          int64
	Description      string
	ShortDescription string
	Embedding        []float32
	CreatedAt        time.Time
}

type ScoredEvent struct {
	Event
	Similarity float64
}

// EventLinks holds the entity ids an event references, one list per kind.
type EventLinks struct {
	LocationIDs  []int64
	CharacterIDs []int64
	PlayerIDs    []int64
	ItemIDs      []int64
}

func (l EventLinks) Empty() bool {
	return len(l.LocationIDs) == 0 && len(l.CharacterIDs) == 0 && len(l.PlayerIDs) == 0 && len(l.ItemIDs) == 0
}

// IDs returns the id list for a kind.
func (l EventLinks) IDs(kind Kind) []int64 {
	switch kind {
	case KindLocation:
		return l.LocationIDs
	case KindCharacter:
		return l.CharacterIDs
	case KindPlayer:
		return l.PlayerIDs
	case KindItem:
		return l.ItemIDs
	}
	return nil
}

// Dedupe returns a copy with repeated ids removed, preserving first-seen order.
func (l EventLinks) Dedupe() EventLinks {
	return EventLinks{
		LocationIDs:  uniqueIDs(l.LocationIDs),
		CharacterIDs: uniqueIDs(l.CharacterIDs),
		PlayerIDs:    uniqueIDs(l.PlayerIDs),
		ItemIDs:      uniqueIDs(l.ItemIDs),
	}
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type EventInput struct {
	WorldID          int64
	Description      string
	ShortDescription string
	Embedding        []float32
	Links            EventLinks
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatHistory struct {
	PlayerID  int64
	Messages  []Message
	UpdatedAt time.Time
}

// ErrConflict is returned when a unique constraint (such as a world slug)
// would be violated.
var ErrConflict = errors.New("already exists")

// Tables names the entity table and event join table backing a kind.
type Tables struct {
	Entities   string
	Links      string
	LinkColumn string
}

func (k Kind) Tables() Tables {
	return Tables{
		Entities:   k.Plural(),
		Links:      "event_" + k.Plural(),
		LinkColumn: string(k) + "_id",
	}
}
