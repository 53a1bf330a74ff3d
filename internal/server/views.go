package server

import (
	"time"

	"chronicle/internal/store"
)

type worldView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func newWorldView(w *store.World) worldView {
	return worldView{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Slug:        w.Slug,
		ImageURL:    w.ImageURL,
		CreatedAt:   w.CreatedAt,
	}
}

type entityView struct {
	ID          int64      `json:"id"`
	Kind        store.Kind `json:"kind"`
	WorldID     int64      `json:"world_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	Similarity  float64    `json:"similarity,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newEntityView(e *store.Entity) entityView {
	return entityView{
		ID:          e.ID,
		Kind:        e.Kind,
		WorldID:     e.WorldID,
		Name:        e.Name,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		CreatedAt:   e.CreatedAt,
	}
}

type eventView struct {
	ID               int64     `json:"id"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description,omitempty"`
	Similarity       float64   `json:"similarity,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func newEventView(e *store.Event) eventView {
	return eventView{
		ID:               e.ID,
		Description:      e.Description,
		ShortDescription: e.ShortDescription,
		CreatedAt:        e.CreatedAt,
	}
}

func eventViews(events []store.Event) []eventView {
	out := make([]eventView, 0, len(events))
	for i := range events {
		out = append(out, newEventView(&events[i]))
	}
	return out
}
