// Package audit checks a world's knowledge for records the narrator and the
// archivist should not have left behind.
package audit

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/viterin/vek/vek32"

	"chronicle/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeUnlinkedEvent    = "unlinked_event"
	codeMissingEmbedding = "missing_embedding"
	codeMissingImage     = "missing_image"
	codeDuplicateName    = "duplicate_name"
	codeLikelyDuplicate  = "likely_duplicate"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Kind     string
	ID       int64
	Name     string
}

type Report struct {
	Issues []Issue
}

// Errors counts the issues of error severity.
func (r *Report) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

type Options struct {
	// DuplicateThreshold is the cosine similarity at or above which two
	// entities of one kind are reported as a likely duplicate.
	DuplicateThreshold float64
}

func Run(ctx context.Context, db store.Store, world *store.World, options Options) (*Report, error) {
	if db == nil {
		return nil, fmt.Errorf("store is required")
	}
	if world == nil {
		return nil, fmt.Errorf("world is required")
	}
	if options.DuplicateThreshold <= 0 {
		options.DuplicateThreshold = 0.9
	}

	issues := make([]Issue, 0)

	if world.ImageURL == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarn,
			Code:     codeMissingImage,
			Message:  "world has no image",
			Kind:     "world",
			ID:       world.ID,
			Name:     world.Name,
		})
	}

	unlinked, err := db.ListUnlinkedEvents(ctx, world.ID)
	if err != nil {
		return nil, fmt.Errorf("list unlinked events: %w", err)
	}
	for _, ev := range unlinked {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     codeUnlinkedEvent,
			Message:  "event references no location, character, player or item",
			Kind:     "event",
			ID:       ev.ID,
			Name:     ev.ShortDescription,
		})
	}

	for _, kind := range store.Kinds {
		entities, err := db.Entities(kind).List(ctx, world.ID)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind.Plural(), err)
		}
		issues = append(issues, checkEntities(kind, entities)...)
		issues = append(issues, duplicateNames(kind, entities)...)
		issues = append(issues, likelyDuplicates(kind, entities, options.DuplicateThreshold)...)
	}

	return &Report{Issues: issues}, nil
}

func checkEntities(kind store.Kind, entities []store.Entity) []Issue {
	var issues []Issue
	for _, e := range entities {
		if len(e.Embedding) == 0 {
			issues = append(issues, entityIssue(kind, e, SeverityError, codeMissingEmbedding, "entity has no embedding and cannot be found by search"))
		}
		if e.ImageURL == "" {
			issues = append(issues, entityIssue(kind, e, SeverityWarn, codeMissingImage, "entity has no image"))
		}
	}
	return issues
}

func duplicateNames(kind store.Kind, entities []store.Entity) []Issue {
	first := make(map[string]store.Entity, len(entities))
	var issues []Issue
	for _, e := range entities {
		key := strings.ToLower(strings.TrimSpace(e.Name))
		original, ok := first[key]
		if !ok {
			first[key] = e
			continue
		}
		issues = append(issues, entityIssue(kind, e, SeverityWarn, codeDuplicateName,
			fmt.Sprintf("name is also used by %s %d", kind, original.ID)))
	}
	return issues
}

// likelyDuplicates compares every pair of same-kind entities. Worlds are small
// enough for the quadratic scan.
func likelyDuplicates(kind store.Kind, entities []store.Entity, threshold float64) []Issue {
	var issues []Issue
	for i := range entities {
		a := entities[i]
		if len(a.Embedding) == 0 {
			continue
		}
		for j := i + 1; j < len(entities); j++ {
			b := entities[j]
			if len(b.Embedding) != len(a.Embedding) {
				continue
			}
			sim, ok := cosine(a.Embedding, b.Embedding)
			if ok && sim >= threshold {
				issues = append(issues, entityIssue(kind, b, SeverityWarn, codeLikelyDuplicate,
					fmt.Sprintf("%.2f similar to %s %d %q; consider merging", sim, kind, a.ID, a.Name)))
			}
		}
	}
	return issues
}

func cosine(a, b []float32) (float64, bool) {
	na := vek32.Dot(a, a)
	nb := vek32.Dot(b, b)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return float64(vek32.Dot(a, b)) / math.Sqrt(float64(na)*float64(nb)), true
}

func entityIssue(kind store.Kind, e store.Entity, severity Severity, code, message string) Issue {
	return Issue{
		Severity: severity,
		Code:     code,
		Message:  message,
		Kind:     string(kind),
		ID:       e.ID,
		Name:     e.Name,
	}
}
