// Package parser reads world seed documents: markdown files with a YAML
// frontmatter block naming the record's type and title.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const TypeEvent = "event"

// Document is one parsed seed file. Type is a knowledge kind (location,
// character, item) or "event". Refs holds, for events, the titles of the
// entities listed under each kind's frontmatter key.
type Document struct {
	Frontmatter map[string]any
	Title       string
	Type        string
	Summary     string
	Body        string
	Refs        map[string][]string
	SourceFile  string
}

var (
	ErrNoFrontmatter = errors.New("no frontmatter found")
	ErrInvalidYAML   = errors.New("invalid YAML in frontmatter")
	ErrMissingTitle  = errors.New("frontmatter missing required 'title' field")
	ErrMissingType   = errors.New("frontmatter missing required 'type' field")
)

// refKeys maps the frontmatter keys an event may use to the kind they name.
var refKeys = map[string]string{
	"locations":  "location",
	"characters": "character",
	"players":    "player",
	"items":      "item",
}

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.SourceFile = path
	return doc, nil
}

func Parse(content []byte) (*Document, error) {
	trimmed := bytes.TrimLeft(content, "\ufeff\n\r\t ")
	trimmed = bytes.ReplaceAll(trimmed, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(trimmed, []byte("---\n")) {
		return nil, ErrNoFrontmatter
	}

	rest := trimmed[len("---\n"):]
	end := bytes.Index(rest, []byte("---\n"))
	if end == -1 {
		return nil, ErrNoFrontmatter
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal(rest[:end], &frontmatter); err != nil {
		return nil, ErrInvalidYAML
	}

	title, ok := frontmatter["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return nil, ErrMissingTitle
	}

	docType, ok := frontmatter["type"].(string)
	if !ok || strings.TrimSpace(docType) == "" {
		return nil, ErrMissingType
	}

	doc := &Document{
		Frontmatter: frontmatter,
		Title:       strings.TrimSpace(title),
		Type:        strings.ToLower(strings.TrimSpace(docType)),
		Body:        strings.TrimSpace(string(rest[end+len("---\n"):])),
	}
	if summary, ok := frontmatter["summary"].(string); ok {
		doc.Summary = strings.TrimSpace(summary)
	}

	for key, kind := range refKeys {
		names, err := parseNames(key, frontmatter[key])
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			continue
		}
		if doc.Refs == nil {
			doc.Refs = make(map[string][]string)
		}
		doc.Refs[kind] = names
	}

	return doc, nil
}

func parseNames(key string, value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{strings.TrimSpace(v)}, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be strings", key)
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			names = append(names, strings.TrimSpace(s))
		}
		if len(names) == 0 {
			return nil, nil
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%s must be string or list of strings", key)
	}
}
