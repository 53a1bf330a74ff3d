// Package seed loads a world's starting knowledge from a directory of
// markdown files.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"chronicle/internal/knowledge"
	"chronicle/internal/logging"
	"chronicle/internal/parser"
	"chronicle/internal/store"
)

type Result struct {
	EntitiesCreated int
	EventsCreated   int
	FilesSkipped    int
	Errors          []error
}

type Options struct {
	Exclude []string
	Logger  *slog.Logger
}

// Run creates every location, character and item document under roots, then
// every event document, resolving the titles an event references against the
// world's entities. Entities whose name already exists in the world and
// events whose description is already logged are skipped, so a seed can be
// re-run after adding files.
func Run(ctx context.Context, svc *knowledge.Service, world *store.World, roots []string, options Options) (*Result, error) {
	if svc == nil || world == nil {
		return nil, fmt.Errorf("knowledge service and world are required")
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	files, err := walkMarkdownFiles(roots, options.Exclude)
	if err != nil {
		return nil, fmt.Errorf("walking seed files: %w", err)
	}

	known, err := loadNames(ctx, svc, world)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	var events []*parser.Document

	for _, path := range files {
		doc, err := parser.ParseFile(path)
		if err != nil {
			if errors.Is(err, parser.ErrNoFrontmatter) || errors.Is(err, parser.ErrMissingType) {
				result.FilesSkipped++
				continue
			}
			result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
			continue
		}

		if doc.Type == parser.TypeEvent {
			events = append(events, doc)
			continue
		}

		kind, err := store.ParseKind(doc.Type)
		if err != nil || kind == store.KindPlayer {
			result.FilesSkipped++
			continue
		}
		if _, ok := known[kind][nameKey(doc.Title)]; ok {
			result.FilesSkipped++
			continue
		}

		entity, err := svc.Create(ctx, world, kind, doc.Title, describe(doc))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("creating %s from %s: %w", kind, path, err))
			continue
		}
		known[kind][nameKey(entity.Name)] = entity.ID
		result.EntitiesCreated++
		logger.Debug("seeded entity", "kind", kind, "name", entity.Name, "file", path)
	}

	if len(events) == 0 {
		return result, nil
	}

	logged, err := svc.RecentEvents(ctx, world, 0)
	if err != nil {
		return nil, fmt.Errorf("loading existing events: %w", err)
	}
	seen := make(map[string]bool, len(logged))
	for _, ev := range logged {
		seen[ev.Description] = true
	}

	for _, doc := range events {
		description := describe(doc)
		if seen[description] {
			result.FilesSkipped++
			continue
		}

		links, err := resolveRefs(doc, known)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("resolving %s: %w", doc.SourceFile, err))
			continue
		}

		short := doc.Summary
		if short == "" {
			short = doc.Title
		}
		if _, err := svc.AddEvent(ctx, world, knowledge.EventInput{
			Description:      description,
			ShortDescription: short,
			Links:            links,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("adding event from %s: %w", doc.SourceFile, err))
			continue
		}
		seen[description] = true
		result.EventsCreated++
		logger.Debug("seeded event", "title", doc.Title, "file", doc.SourceFile)
	}

	return result, nil
}

func loadNames(ctx context.Context, svc *knowledge.Service, world *store.World) (map[store.Kind]map[string]int64, error) {
	known := make(map[store.Kind]map[string]int64, len(store.Kinds))
	for _, kind := range store.Kinds {
		entities, err := svc.List(ctx, world, kind)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", kind.Plural(), err)
		}
		names := make(map[string]int64, len(entities))
		for _, e := range entities {
			if _, ok := names[nameKey(e.Name)]; !ok {
				names[nameKey(e.Name)] = e.ID
			}
		}
		known[kind] = names
	}
	return known, nil
}

func resolveRefs(doc *parser.Document, known map[store.Kind]map[string]int64) (store.EventLinks, error) {
	var links store.EventLinks
	for _, kind := range store.Kinds {
		for _, name := range doc.Refs[string(kind)] {
			id, ok := known[kind][nameKey(name)]
			if !ok {
				return links, fmt.Errorf("unknown %s %q: %w", kind, name, store.ErrNotFound)
			}
			switch kind {
			case store.KindLocation:
				links.LocationIDs = append(links.LocationIDs, id)
			case store.KindCharacter:
				links.CharacterIDs = append(links.CharacterIDs, id)
			case store.KindPlayer:
				links.PlayerIDs = append(links.PlayerIDs, id)
			case store.KindItem:
				links.ItemIDs = append(links.ItemIDs, id)
			}
		}
	}
	return links, nil
}

// describe picks the text stored as a seeded record's description: the body,
// falling back to the summary.
func describe(doc *parser.Document) string {
	if doc.Body != "" {
		return doc.Body
	}
	return doc.Summary
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func walkMarkdownFiles(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if isExcluded(path, excluded) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
