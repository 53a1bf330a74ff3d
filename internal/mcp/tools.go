package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"chronicle/internal/store"
	"chronicle/internal/tools"
)

// CallOutput wraps a catalogue result so structured content is always an
// object.
type CallOutput struct {
	Result any `json:"result"`
}

type GetEntityInput struct {
	Kind   string `json:"kind" jsonschema:"location, character, player or item"`
	ID     int64  `json:"id" jsonschema:"entity id"`
	Events int    `json:"events,omitempty" jsonschema:"how many recent events to include, default 10"`
}

type EntityOutput struct {
	Entity tools.KnowledgeItem   `json:"entity"`
	Events []tools.KnowledgeItem `json:"events"`
}

func (s *Server) registerTools(set tools.Set) {
	for _, t := range s.catalogue.Tools(set) {
		sdk.AddTool(s.mcp, &sdk.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema,
		}, s.catalogueHandler(t.Name))
	}

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity",
		Description: "Retrieve an entity of the world with its most recent events",
	}, s.handleGetEntity)
}

func (s *Server) catalogueHandler(name string) func(context.Context, *sdk.CallToolRequest, map[string]any) (*sdk.CallToolResult, CallOutput, error) {
	return func(ctx context.Context, req *sdk.CallToolRequest, input map[string]any) (*sdk.CallToolResult, CallOutput, error) {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, CallOutput{}, fmt.Errorf("encoding %s input: %w", name, err)
		}
		result, err := s.catalogue.Call(ctx, name, raw)
		if err != nil {
			return nil, CallOutput{}, err
		}
		return nil, CallOutput{Result: result}, nil
	}
}

func (s *Server) handleGetEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEntityInput) (*sdk.CallToolResult, EntityOutput, error) {
	kind, err := store.ParseKind(input.Kind)
	if err != nil {
		return nil, EntityOutput{}, err
	}
	if input.ID <= 0 {
		return nil, EntityOutput{}, fmt.Errorf("id is required")
	}
	limit := input.Events
	if limit <= 0 {
		limit = 10
	}

	entity, err := s.knowledge.Get(ctx, s.session.World, kind, input.ID)
	if err != nil {
		return nil, EntityOutput{}, err
	}
	events, err := s.knowledge.EventsFor(ctx, s.session.World, kind, input.ID, limit)
	if err != nil {
		return nil, EntityOutput{}, err
	}
	return nil, entityOutput(entity, events), nil
}

func entityOutput(entity *store.Entity, events []store.Event) EntityOutput {
	out := EntityOutput{
		Entity: tools.EntityItem(entity),
		Events: make([]tools.KnowledgeItem, 0, len(events)),
	}
	for i := range events {
		out.Events = append(out.Events, tools.EventItem(&events[i]))
	}
	return out
}
