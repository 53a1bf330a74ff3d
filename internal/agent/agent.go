// Package agent runs a bounded decide-then-call-tools loop on behalf of a
// narrator or archivist.
package agent

import (
	"context"
	"encoding/json"

	"chronicle/internal/store"
)

// ToolSpec describes one callable tool to the decision capability. Schema is a
// JSON Schema object for the tool input.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

type ToolResult struct {
	CallID  string
	Content string
	IsError bool
}

// Step is one decision: optional text plus the tool calls to run next. A step
// without calls ends the loop.
type Step struct {
	Text  string
	Calls []ToolCall
}

// Exchange records an executed step and the results fed back for it.
type Exchange struct {
	Step    Step
	Results []ToolResult
}

// Request is everything the decider sees when choosing the next step.
type Request struct {
	System    string
	Messages  []store.Message
	Tools     []ToolSpec
	Exchanges []Exchange
}

type Decider interface {
	Next(ctx context.Context, req Request) (Step, error)
}

// Executor runs a named tool with raw JSON input and returns a
// JSON-serialisable result.
type Executor interface {
	Call(ctx context.Context, name string, input json.RawMessage) (any, error)
}

type Task struct {
	System   string
	Messages []store.Message
	Tools    []ToolSpec
	Executor Executor
	MaxSteps int
}

type Outcome struct {
	// Text is the text of the last step that produced any.
	Text      string
	Steps     int
	Exchanges []Exchange
	// Exhausted is set when MaxSteps ran out before the decider stopped.
	Exhausted bool
}
