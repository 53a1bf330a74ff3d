package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chronicle/internal/knowledge/knowledgetest"
	"chronicle/internal/store"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "places/oakhaven.md", "---\ntitle: Oakhaven\ntype: location\n---\nA quiet fishing village.\n")
	writeFile(t, dir, "people/mira.md", "---\ntitle: Mira\ntype: character\n---\nA sharp-eyed smuggler.\n")
	writeFile(t, dir, "things/lantern.md", "---\ntitle: Storm Lantern\ntype: item\nsummary: A lantern that never goes out\n---\n")
	writeFile(t, dir, "history/storm.md", "---\ntitle: The storm\ntype: event\nlocations: [oakhaven]\ncharacters: [Mira]\nitems: [Storm Lantern]\n---\nLightning struck the harbour.\n")
	writeFile(t, dir, "notes/readme.md", "Plain notes without frontmatter.\n")
	writeFile(t, dir, "notes/faction.md", "---\ntitle: The Watch\ntype: faction\n---\nGuards.\n")
	writeFile(t, dir, "notes/image.png", "not markdown")
	return dir
}

func TestRun_SeedsEntitiesAndEvents(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	result, err := Run(ctx, env.Service, w, []string{seedDir(t)}, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.EntitiesCreated != 3 {
		t.Fatalf("expected 3 entities, got %d", result.EntitiesCreated)
	}
	if result.EventsCreated != 1 {
		t.Fatalf("expected 1 event, got %d", result.EventsCreated)
	}
	if result.FilesSkipped != 2 {
		t.Fatalf("expected 2 skipped files, got %d", result.FilesSkipped)
	}

	items, err := env.Service.List(ctx, w, store.KindItem)
	if err != nil {
		t.Fatalf("listing items: %v", err)
	}
	if len(items) != 1 || items[0].Description != "A lantern that never goes out" {
		t.Fatalf("expected lantern described by its summary, got %+v", items)
	}

	events, err := env.Service.RecentEvents(ctx, w, 0)
	if err != nil {
		t.Fatalf("listing events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ShortDescription != "The storm" {
		t.Fatalf("expected title as short description, got %q", events[0].ShortDescription)
	}
	links, err := env.Service.EventLinks(ctx, w, events[0].ID)
	if err != nil {
		t.Fatalf("loading links: %v", err)
	}
	if len(links.LocationIDs) != 1 || len(links.CharacterIDs) != 1 || len(links.ItemIDs) != 1 {
		t.Fatalf("unexpected links: %+v", links)
	}
}

func TestRun_IsRepeatable(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")
	dir := seedDir(t)

	if _, err := Run(ctx, env.Service, w, []string{dir}, Options{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := Run(ctx, env.Service, w, []string{dir}, Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.EntitiesCreated != 0 || result.EventsCreated != 0 {
		t.Fatalf("expected nothing created on re-run, got %+v", result)
	}
	if result.FilesSkipped != 6 {
		t.Fatalf("expected 6 skipped files, got %d", result.FilesSkipped)
	}
}

func TestRun_UnknownReference(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	dir := t.TempDir()
	writeFile(t, dir, "storm.md", "---\ntitle: The storm\ntype: event\nlocations: [Atlantis]\n---\nThe sea rose.\n")

	result, err := Run(ctx, env.Service, w, []string{dir}, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
	if !errors.Is(result.Errors[0], store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", result.Errors[0])
	}
	if result.EventsCreated != 0 {
		t.Fatalf("expected no events, got %d", result.EventsCreated)
	}
}

func TestRun_EventWithoutReferences(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	dir := t.TempDir()
	writeFile(t, dir, "rumour.md", "---\ntitle: A rumour\ntype: event\n---\nSomething stirs.\n")

	result, err := Run(ctx, env.Service, w, []string{dir}, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected the unlinked event to be rejected, got %v", result.Errors)
	}
}

func TestRun_Exclude(t *testing.T) {
	env := knowledgetest.New(t)
	ctx := context.Background()
	w := env.World(t, "Eldoria")

	dir := t.TempDir()
	writeFile(t, dir, "oakhaven.md", "---\ntitle: Oakhaven\ntype: location\n---\nA quiet fishing village.\n")
	writeFile(t, dir, "drafts/ashfall.md", "---\ntitle: Ashfall\ntype: location\n---\nA smoking volcano.\n")

	result, err := Run(ctx, env.Service, w, []string{dir}, Options{Exclude: []string{filepath.Join(dir, "drafts")}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.EntitiesCreated != 1 {
		t.Fatalf("expected 1 entity, got %d", result.EntitiesCreated)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	env := knowledgetest.New(t)
	w := env.World(t, "Eldoria")

	if _, err := Run(context.Background(), env.Service, w, []string{filepath.Join(t.TempDir(), "missing")}, Options{}); err == nil {
		t.Fatalf("expected error for missing root")
	}
}
