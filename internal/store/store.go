package store

import (
	"context"
)

// Store is the relational knowledge base. Every entity and event query is
// scoped to a world; rows of another world behave as missing.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	CreateWorld(ctx context.Context, in WorldInput) (*World, error)
	GetWorld(ctx context.Context, id int64) (*World, error)
	GetWorldBySlug(ctx context.Context, slug string) (*World, error)
	ListWorlds(ctx context.Context) ([]World, error)
	SetWorldImage(ctx context.Context, id int64, url string) error

	// Entities returns the repository for one entity kind.
	Entities(kind Kind) EntityStore

	// CreateEvent inserts the event and all of its links atomically. A link
	// to an entity outside the event's world aborts the insert with ErrNotFound.
	CreateEvent(ctx context.Context, in EventInput) (*Event, error)
	GetEvent(ctx context.Context, worldID, id int64) (*Event, error)
	EventLinks(ctx context.Context, eventID int64) (EventLinks, error)
	ListEvents(ctx context.Context, worldID int64, limit int) ([]Event, error)
	EventsFor(ctx context.Context, kind Kind, entityID int64, limit int) ([]Event, error)
	SearchEvents(ctx context.Context, worldID int64, embedding []float32, threshold float64, limit int) ([]ScoredEvent, error)
	ListUnlinkedEvents(ctx context.Context, worldID int64) ([]Event, error)

	// MergeEntities re-points every event link of loserID to survivorID,
	// skipping events the survivor is already linked to, then deletes loserID.
	MergeEntities(ctx context.Context, kind Kind, worldID, survivorID, loserID int64) error
	// AbsorbCharacter moves a character's event links onto a player of the
	// same world and deletes the character.
	AbsorbCharacter(ctx context.Context, worldID, characterID, playerID int64) error

	GetChatHistory(ctx context.Context, playerID int64) (*ChatHistory, error)
	SaveChatHistory(ctx context.Context, playerID int64, messages []Message) error
}

// EntityStore is the repository for a single entity kind.
type EntityStore interface {
	Kind() Kind
	Create(ctx context.Context, in EntityInput) (*Entity, error)
	// Get looks an entity up by id regardless of world; callers enforce scope.
	Get(ctx context.Context, id int64) (*Entity, error)
	Update(ctx context.Context, worldID, id int64, in EntityInput) (*Entity, error)
	SetImage(ctx context.Context, id int64, url string) error
	List(ctx context.Context, worldID int64) ([]Entity, error)
	Search(ctx context.Context, worldID int64, embedding []float32, threshold float64, limit int) ([]ScoredEntity, error)
}
