//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"chronicle/internal/store"
)

const testDimensions = 3

func testClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("CHRONICLE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CHRONICLE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	client, err := New(ctx, dsn, testDimensions)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(ctx) })
	if err := client.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return client
}

func testWorld(t *testing.T, c *Client) *store.World {
	t.Helper()
	ctx := context.Background()
	slug := fmt.Sprintf("test-%d", time.Now().UnixNano())
	w, err := c.CreateWorld(ctx, store.WorldInput{Name: slug, Description: "integration world", Slug: slug})
	if err != nil {
		t.Fatalf("create world: %v", err)
	}
	t.Cleanup(func() { _, _ = c.pool.Exec(ctx, `DELETE FROM worlds WHERE id = $1`, w.ID) })
	return w
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	c := testClient(t)
	if err := c.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema (idempotent): %v", err)
	}
}

func TestEntitySearch_WorldScoped(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)
	w := testWorld(t, c)
	other := testWorld(t, c)

	locations := c.Entities(store.KindLocation)
	near, err := locations.Create(ctx, store.EntityInput{WorldID: w.ID, Name: "Oakhaven", Description: "fishing village", Embedding: []float32{1, 0.1, 0}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := locations.Create(ctx, store.EntityInput{WorldID: other.ID, Name: "Elsewhere", Description: "x", Embedding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	results, err := locations.Search(ctx, w.ID, []float32{1, 0, 0}, 0.3, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != near.ID {
		t.Fatalf("expected only %d, got %+v", near.ID, results)
	}
}

func TestCreateEvent_RejectsForeignLink(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)
	w := testWorld(t, c)
	other := testWorld(t, c)

	loc, err := c.Entities(store.KindLocation).Create(ctx, store.EntityInput{WorldID: w.ID, Name: "Tavern", Description: "x", Embedding: []float32{1, 0, 0}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	foreign, err := c.Entities(store.KindItem).Create(ctx, store.EntityInput{WorldID: other.ID, Name: "Sword", Description: "x", Embedding: []float32{0, 1, 0}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = c.CreateEvent(ctx, store.EventInput{
		WorldID:     w.ID,
		Description: "a sword appears",
		Embedding:   []float32{1, 1, 0},
		Links:       store.EventLinks{LocationIDs: []int64{loc.ID}, ItemIDs: []int64{foreign.ID}},
	})
	if err == nil {
		t.Fatalf("expected error for cross-world link")
	}

	events, err := c.ListEvents(ctx, w.ID, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestMergeEntities_UnionsLinks(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)
	w := testWorld(t, c)

	chars := c.Entities(store.KindCharacter)
	a, _ := chars.Create(ctx, store.EntityInput{WorldID: w.ID, Name: "Mira", Description: "smith", Embedding: []float32{1, 0, 0}})
	b, _ := chars.Create(ctx, store.EntityInput{WorldID: w.ID, Name: "Mira Smith", Description: "blacksmith", Embedding: []float32{1, 0, 0}})

	shared, err := c.CreateEvent(ctx, store.EventInput{WorldID: w.ID, Description: "both", Links: store.EventLinks{CharacterIDs: []int64{a.ID, b.ID}}})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := c.MergeEntities(ctx, store.KindCharacter, w.ID, a.ID, b.ID); err != nil {
		t.Fatalf("merge: %v", err)
	}
	links, err := c.EventLinks(ctx, shared.ID)
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if len(links.CharacterIDs) != 1 || links.CharacterIDs[0] != a.ID {
		t.Fatalf("expected single link to survivor, got %v", links.CharacterIDs)
	}
}

func TestChatHistory_Upsert(t *testing.T) {
	ctx := context.Background()
	c := testClient(t)
	w := testWorld(t, c)
	p, err := c.Entities(store.KindPlayer).Create(ctx, store.EntityInput{WorldID: w.ID, Name: "Ayla", Description: "ranger", Embedding: []float32{0, 0, 1}, ExternalID: "u1"})
	if err != nil {
		t.Fatalf("create player: %v", err)
	}
	if err := c.SaveChatHistory(ctx, p.ID, []store.Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.SaveChatHistory(ctx, p.ID, []store.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	h, err := c.GetChatHistory(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(h.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(h.Messages))
	}
}
