// Package tools is the fixed catalogue of knowledge operations offered to the
// narrator and archivist. It routes calls and makes no decisions of its own.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"

	"chronicle/internal/agent"
	"chronicle/internal/knowledge"
	"chronicle/internal/merge"
	"chronicle/internal/store"
)

// Set selects which tools a session is offered.
type Set int

const (
	ReadOnly Set = iota
	ReadWrite
)

// Session binds the catalogue to a world and the player being narrated to.
type Session struct {
	World  *store.World
	Player *store.Entity
}

type Deps struct {
	Knowledge *knowledge.Service
	Merge     *merge.Engine
	Logger    *slog.Logger
}

// Tool is one catalogue entry.
type Tool struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Write       bool

	call func(ctx context.Context, raw json.RawMessage) (any, error)
}

type Catalogue struct {
	session   Session
	knowledge *knowledge.Service
	merge     *merge.Engine
	logger    *slog.Logger
	tools     []*Tool
	byName    map[string]*Tool
}

func New(d Deps, session Session) (*Catalogue, error) {
	c := &Catalogue{
		session:   session,
		knowledge: d.Knowledge,
		merge:     d.Merge,
		logger:    d.Logger.With("component", "tools", "world", session.World.ID),
		byName:    map[string]*Tool{},
	}
	defs, err := c.definitions()
	if err != nil {
		return nil, err
	}
	for _, t := range defs {
		c.tools = append(c.tools, t)
		c.byName[t.Name] = t
	}
	return c, nil
}

func (c *Catalogue) definitions() ([]*Tool, error) {
	var defs []*Tool
	for _, build := range append(c.readTools(), c.writeTools()...) {
		t, err := build()
		if err != nil {
			return nil, err
		}
		defs = append(defs, t)
	}
	return defs, nil
}

// Tools returns the catalogue entries offered by set, in catalogue order.
func (c *Catalogue) Tools(set Set) []*Tool {
	out := make([]*Tool, 0, len(c.tools))
	for _, t := range c.tools {
		if t.Write && set != ReadWrite {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Specs describes the tools of set to the decision capability.
func (c *Catalogue) Specs(set Set) ([]agent.ToolSpec, error) {
	tools := c.Tools(set)
	specs := make([]agent.ToolSpec, 0, len(tools))
	for _, t := range tools {
		schema, err := schemaMap(t.Schema)
		if err != nil {
			return nil, fmt.Errorf("encoding %s schema: %w", t.Name, err)
		}
		specs = append(specs, agent.ToolSpec{Name: t.Name, Description: t.Description, Schema: schema})
	}
	return specs, nil
}

// Call decodes raw into the named tool's input and runs it.
func (c *Catalogue) Call(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	t, ok := c.byName[name]
	if !ok {
		return nil, &InputError{Tool: name, Msg: "unknown tool"}
	}
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	c.logger.Debug("calling tool", "tool", name)
	result, err := t.call(ctx, raw)
	if err != nil {
		c.logger.Warn("tool failed", "tool", name, "error", err)
		return nil, err
	}
	return result, nil
}

// Executor returns an agent.Executor that only accepts the tools of set.
func (c *Catalogue) Executor(set Set) agent.Executor {
	return &executor{catalogue: c, set: set}
}

type executor struct {
	catalogue *Catalogue
	set       Set
}

func (e *executor) Call(ctx context.Context, name string, input json.RawMessage) (any, error) {
	offered := slices.ContainsFunc(e.catalogue.Tools(e.set), func(t *Tool) bool { return t.Name == name })
	if !offered {
		return nil, &InputError{Tool: name, Msg: "tool is not available in this session"}
	}
	return e.catalogue.Call(ctx, name, input)
}

// define builds a tool whose input decodes into In. patch may tighten the
// generated schema.
func define[In any](name, description string, write bool, patch func(*jsonschema.Schema), handle func(ctx context.Context, in In) (any, error)) func() (*Tool, error) {
	return func() (*Tool, error) {
		schema, err := jsonschema.For[In](nil)
		if err != nil {
			return nil, fmt.Errorf("building %s schema: %w", name, err)
		}
		if patch != nil {
			patch(schema)
		}
		return &Tool{
			Name:        name,
			Description: description,
			Schema:      schema,
			Write:       write,
			call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var in In
				if err := json.Unmarshal(raw, &in); err != nil {
					return nil, inputErrorf(name, "%v", err)
				}
				return handle(ctx, in)
			},
		}, nil
	}
}

func schemaMap(s *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
