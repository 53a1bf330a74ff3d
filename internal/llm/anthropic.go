package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"chronicle/internal/agent"
	"chronicle/internal/config"
	"chronicle/internal/store"
)

// sessionOpener stands in for the first user turn when a transcript starts
// with the narrator's own message; the API requires a user message first.
const sessionOpener = "(The session begins.)"

var _ agent.Decider = (*AnthropicDecider)(nil)

type AnthropicDecider struct {
	client *anthropic.Client
	cfg    config.AnthropicConfig
}

func NewAnthropicDecider(cfg config.AnthropicConfig) *AnthropicDecider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicDecider{client: &client, cfg: cfg}
}

func (d *AnthropicDecider) Next(ctx context.Context, req agent.Request) (agent.Step, error) {
	msg, err := d.client.Messages.New(ctx, buildParams(d.cfg, req))
	if err != nil {
		return agent.Step{}, fmt.Errorf("requesting decision: %w", err)
	}
	return convertResponse(msg), nil
}

func buildParams(cfg config.AnthropicConfig, req agent.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: int64(cfg.MaxTokens),
		Messages:  convertMessages(req.Messages, req.Exchanges),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}
	return params
}

// convertMessages renders the transcript followed by the tool exchanges of the
// current run. Consecutive messages of the same role are joined, since the API
// requires alternating turns.
func convertMessages(messages []store.Message, exchanges []agent.Exchange) []anthropic.MessageParam {
	type turn struct {
		role string
		text []string
	}
	var turns []turn
	for _, m := range messages {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].text = append(turns[n-1].text, m.Content)
			continue
		}
		turns = append(turns, turn{role: role, text: []string{m.Content}})
	}
	if len(turns) == 0 || turns[0].role != "user" {
		turns = append([]turn{{role: "user", text: []string{sessionOpener}}}, turns...)
	}

	result := make([]anthropic.MessageParam, 0, len(turns)+2*len(exchanges))
	for _, t := range turns {
		block := anthropic.NewTextBlock(strings.Join(t.text, "\n\n"))
		if t.role == "assistant" {
			result = append(result, anthropic.NewAssistantMessage(block))
		} else {
			result = append(result, anthropic.NewUserMessage(block))
		}
	}

	// A transcript ending with the assistant cannot be followed by another
	// assistant tool turn.
	if len(exchanges) > 0 && turns[len(turns)-1].role == "assistant" {
		result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(sessionOpener)))
	}

	for _, ex := range exchanges {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(ex.Step.Calls)+1)
		if ex.Step.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(ex.Step.Text))
		}
		for _, call := range ex.Step.Calls {
			input := call.Input
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    call.ID,
					Name:  call.Name,
					Input: input,
				},
			})
		}
		result = append(result, anthropic.NewAssistantMessage(blocks...))

		results := make([]anthropic.ContentBlockParamUnion, 0, len(ex.Results))
		for _, r := range ex.Results {
			results = append(results, anthropic.NewToolResultBlock(r.CallID, r.Content, r.IsError))
		}
		result = append(result, anthropic.NewUserMessage(results...))
	}
	return result
}

func convertTools(tools []agent.ToolSpec) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		result[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: buildInputSchema(tool.Schema),
			},
		}
	}
	return result
}

func buildInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	properties, ok := schema["properties"]
	if !ok || properties == nil {
		properties = map[string]any{}
	}
	return anthropic.ToolInputSchemaParam{
		Type:       "object",
		Properties: properties,
		Required:   requiredFields(schema),
	}
}

func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func convertResponse(msg *anthropic.Message) agent.Step {
	var step agent.Step
	var text []string
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, b.Text)
		case anthropic.ToolUseBlock:
			step.Calls = append(step.Calls, agent.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: toolInput(b.Input),
			})
		}
	}
	step.Text = strings.TrimSpace(strings.Join(text, ""))
	return step
}

// toolInput normalizes a missing or null tool input to an empty object so
// tool handlers always decode an object.
func toolInput(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(trimmed)
}
