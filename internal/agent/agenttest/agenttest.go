// Package agenttest provides a scripted agent.Decider.
package agenttest

import (
	"context"
	"encoding/json"
	"sync"

	"chronicle/internal/agent"
)

// Script replays Steps in order and then ends every run with Final. Requests
// are recorded for inspection.
type Script struct {
	mu       sync.Mutex
	steps    []agent.Step
	requests []agent.Request

	Final string
	Err   error
}

var _ agent.Decider = (*Script)(nil)

func NewScript(steps ...agent.Step) *Script {
	return &Script{steps: steps, Final: "done"}
}

func (s *Script) Next(ctx context.Context, req agent.Request) (agent.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.Err != nil {
		return agent.Step{}, s.Err
	}
	if len(s.steps) == 0 {
		return agent.Step{Text: s.Final}, nil
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step, nil
}

func (s *Script) Requests() []agent.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]agent.Request(nil), s.requests...)
}

// Call builds a tool call, encoding input as JSON.
func Call(id, name string, input any) agent.ToolCall {
	raw, err := json.Marshal(input)
	if err != nil {
		panic(err)
	}
	return agent.ToolCall{ID: id, Name: name, Input: raw}
}

// Calls is a step that only calls tools.
func Calls(calls ...agent.ToolCall) agent.Step {
	return agent.Step{Calls: calls}
}

// ToolNames lists the tool names offered in a request.
func ToolNames(req agent.Request) []string {
	names := make([]string, 0, len(req.Tools))
	for _, t := range req.Tools {
		names = append(names, t.Name)
	}
	return names
}
