package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/agent"
	"chronicle/internal/config"
	"chronicle/internal/store"
)

const toolUseResponse = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-haiku-4-5",
  "content": [
    {"type": "text", "text": "Let me check the world."},
    {"type": "tool_use", "id": "tu_1", "name": "get_world_npcs", "input": {"queries": ["blacksmith", "guard", "innkeeper"]}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

func TestConvertResponse(t *testing.T) {
	var msg anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(toolUseResponse), &msg))

	step := convertResponse(&msg)
	assert.Equal(t, "Let me check the world.", step.Text)
	require.Len(t, step.Calls, 1)
	assert.Equal(t, "tu_1", step.Calls[0].ID)
	assert.Equal(t, "get_world_npcs", step.Calls[0].Name)
	assert.JSONEq(t, `{"queries":["blacksmith","guard","innkeeper"]}`, string(step.Calls[0].Input))
}

func TestConvertResponseNullToolInput(t *testing.T) {
	const body = `{
  "id": "msg_2",
  "type": "message",
  "role": "assistant",
  "model": "claude-haiku-4-5",
  "content": [
    {"type": "tool_use", "id": "tu_2", "name": "get_world_events", "input": null}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`
	var msg anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(body), &msg))

	step := convertResponse(&msg)
	require.Len(t, step.Calls, 1)
	assert.Equal(t, "get_world_events", step.Calls[0].Name)
	assert.JSONEq(t, `{}`, string(step.Calls[0].Input))
}

func TestToolInput(t *testing.T) {
	assert.Equal(t, `{}`, string(toolInput(nil)))
	assert.Equal(t, `{}`, string(toolInput(json.RawMessage(" null "))))
	assert.Equal(t, `{"limit":3}`, string(toolInput(json.RawMessage(`{"limit":3}`))))
}

func TestConvertMessagesAlternates(t *testing.T) {
	messages := []store.Message{
		{Role: "assistant", Content: "Welcome to Eldoria."},
		{Role: "user", Content: "I look around."},
		{Role: "user", Content: "And listen."},
	}
	exchanges := []agent.Exchange{{
		Step:    agent.Step{Calls: []agent.ToolCall{{ID: "tu_1", Name: "get_current_player"}}},
		Results: []agent.ToolResult{{CallID: "tu_1", Content: `{"name":"Ayla"}`}},
	}}

	got := convertMessages(messages, exchanges)
	require.Len(t, got, 5)
	roles := make([]anthropic.MessageParamRole, len(got))
	for i, m := range got {
		roles[i] = m.Role
	}
	assert.Equal(t, []anthropic.MessageParamRole{
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
		anthropic.MessageParamRoleAssistant,
		anthropic.MessageParamRoleUser,
	}, roles)
}

func TestConvertMessagesAfterAssistant(t *testing.T) {
	messages := []store.Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	exchanges := []agent.Exchange{{
		Step:    agent.Step{Calls: []agent.ToolCall{{ID: "t", Name: "get_world_events"}}},
		Results: []agent.ToolResult{{CallID: "t", Content: "boom", IsError: true}},
	}}
	got := convertMessages(messages, exchanges)
	require.Len(t, got, 5)
	assert.Equal(t, anthropic.MessageParamRoleUser, got[2].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, got[3].Role)
}

func TestBuildInputSchema(t *testing.T) {
	schema := buildInputSchema(map[string]any{
		"type":       "object",
		"properties": map[string]any{"queries": map[string]any{"type": "array"}},
		"required":   []any{"queries"},
	})
	assert.Equal(t, []string{"queries"}, schema.Required)
	assert.NotNil(t, schema.Properties)

	empty := buildInputSchema(nil)
	assert.Equal(t, map[string]any{}, empty.Properties)
	assert.Nil(t, empty.Required)
}

func TestAnthropicDeciderNext(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolUseResponse)
	}))
	defer srv.Close()

	cfg := config.Default().Anthropic
	cfg.APIKey = "test"
	cfg.BaseURL = srv.URL
	d := NewAnthropicDecider(cfg)

	step, err := d.Next(context.Background(), agent.Request{
		System:   "You are the narrator.",
		Messages: []store.Message{{Role: "user", Content: "Who is here?"}},
		Tools:    []agent.ToolSpec{{Name: "get_world_npcs", Description: "search characters", Schema: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)
	require.Len(t, step.Calls, 1)
	assert.Equal(t, cfg.Model, captured["model"])
	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 1)
}
