package audit

import (
	"context"
	"errors"
	"testing"

	"chronicle/internal/store"
)

type mockStore struct {
	store.Store
	unlinked    []store.Event
	entities    map[store.Kind][]store.Entity
	unlinkedErr error
}

func (m *mockStore) ListUnlinkedEvents(ctx context.Context, worldID int64) ([]store.Event, error) {
	return m.unlinked, m.unlinkedErr
}

func (m *mockStore) Entities(kind store.Kind) store.EntityStore {
	return &mockEntities{kind: kind, entities: m.entities[kind]}
}

type mockEntities struct {
	store.EntityStore
	kind     store.Kind
	entities []store.Entity
}

func (m *mockEntities) List(ctx context.Context, worldID int64) ([]store.Entity, error) {
	return m.entities, nil
}

func entity(id int64, name, image string, embedding ...float32) store.Entity {
	return store.Entity{ID: id, Name: name, ImageURL: image, Embedding: embedding}
}

func codes(report *Report) map[string]int {
	counts := make(map[string]int)
	for _, issue := range report.Issues {
		counts[issue.Code]++
	}
	return counts
}

func TestRun(t *testing.T) {
	world := &store.World{ID: 1, Name: "Eldoria", ImageURL: "https://img/world.png"}

	t.Run("clean world has no issues", func(t *testing.T) {
		db := &mockStore{entities: map[store.Kind][]store.Entity{
			store.KindLocation: {
				entity(1, "Oakhaven", "https://img/1.png", 1, 0),
				entity(2, "Ashfall", "https://img/2.png", 0, 1),
			},
		}}
		report, err := Run(context.Background(), db, world, Options{})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(report.Issues) != 0 {
			t.Fatalf("expected no issues, got %+v", report.Issues)
		}
	})

	t.Run("unlinked events are errors", func(t *testing.T) {
		db := &mockStore{unlinked: []store.Event{{ID: 7, ShortDescription: "orphan"}}}
		report, err := Run(context.Background(), db, world, Options{})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(report.Issues) != 1 {
			t.Fatalf("expected 1 issue, got %+v", report.Issues)
		}
		issue := report.Issues[0]
		if issue.Code != codeUnlinkedEvent || issue.ID != 7 || issue.Severity != SeverityError {
			t.Fatalf("unexpected issue: %+v", issue)
		}
		if report.Errors() != 1 {
			t.Fatalf("expected 1 error, got %d", report.Errors())
		}
	})

	t.Run("missing images and embeddings", func(t *testing.T) {
		bare := &store.World{ID: 2, Name: "Bare"}
		db := &mockStore{entities: map[store.Kind][]store.Entity{
			store.KindItem: {entity(3, "Lantern", "")},
		}}
		report, err := Run(context.Background(), db, bare, Options{})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		got := codes(report)
		if got[codeMissingImage] != 2 {
			t.Fatalf("expected world and item image issues, got %v", got)
		}
		if got[codeMissingEmbedding] != 1 {
			t.Fatalf("expected missing embedding issue, got %v", got)
		}
	})

	t.Run("duplicates within a kind", func(t *testing.T) {
		db := &mockStore{entities: map[store.Kind][]store.Entity{
			store.KindCharacter: {
				entity(1, "Mira", "x", 1, 0, 0),
				entity(2, "mira ", "x", 0, 0, 1),
				entity(3, "Mira the Smuggler", "x", 0.99, 0.1, 0),
			},
			store.KindItem: {
				entity(4, "Lantern", "x", 1, 0, 0),
			},
		}}
		report, err := Run(context.Background(), db, world, Options{DuplicateThreshold: 0.9})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		got := codes(report)
		if got[codeDuplicateName] != 1 {
			t.Fatalf("expected 1 duplicate name, got %v", got)
		}
		if got[codeLikelyDuplicate] != 1 {
			t.Fatalf("expected 1 likely duplicate, got %v", got)
		}
		for _, issue := range report.Issues {
			if issue.Code == codeLikelyDuplicate && issue.ID != 3 {
				t.Fatalf("expected entity 3 flagged, got %+v", issue)
			}
		}
		if report.Errors() != 0 {
			t.Fatalf("expected only warnings, got %d errors", report.Errors())
		}
	})

	t.Run("store failure", func(t *testing.T) {
		db := &mockStore{unlinkedErr: errors.New("boom")}
		if _, err := Run(context.Background(), db, world, Options{}); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("requires world", func(t *testing.T) {
		if _, err := Run(context.Background(), &mockStore{}, nil, Options{}); err == nil {
			t.Fatalf("expected error")
		}
	})
}
