package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"chronicle/internal/config"
)

const mergeSystemPrompt = `You are a merge expert for a shared fantasy world. You are given two records that describe the same thing.
Sometimes two records are created by accident, for example when a character is introduced before their name is known.
Merge them into one and return the new name and description.
If one is far less detailed than the other, use the more detailed one as the base and add the other one's details to it.
Respond with a JSON object with the keys "name" and "description".`

const imagePromptTemplate = `Generate a realistic photo image of the following for my DND game:
%s

(Do not include any text in the image, make it look like a photo)`

var (
	_ Embedder       = (*OpenAIClient)(nil)
	_ Summarizer     = (*OpenAIClient)(nil)
	_ ImageGenerator = (*OpenAIClient)(nil)
)

type OpenAIClient struct {
	client *openai.Client
	cfg    config.OpenAIConfig
}

func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	}
	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data")
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) Merge(ctx context.Context, a, b Described) (Described, error) {
	prompt := fmt.Sprintf(`The two records are:
<RECORD_1>
%s
%s
</RECORD_1>
<RECORD_2>
%s
%s
</RECORD_2>
Merge the records into one and return the new name and description.`, a.Name, a.Description, b.Name, b.Description)

	req := openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: mergeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Described{}, fmt.Errorf("requesting merge: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Described{}, fmt.Errorf("no response choices")
	}
	return parseMerged(resp.Choices[0].Message.Content)
}

func parseMerged(content string) (Described, error) {
	var merged Described
	if err := json.Unmarshal([]byte(content), &merged); err != nil {
		return Described{}, fmt.Errorf("decoding merge result: %w", err)
	}
	merged.Name = strings.TrimSpace(merged.Name)
	merged.Description = strings.TrimSpace(merged.Description)
	if merged.Name == "" || merged.Description == "" {
		return Described{}, fmt.Errorf("merge result is missing a name or description")
	}
	return merged, nil
}

func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	req := openai.ImageRequest{
		Prompt:         fmt.Sprintf(imagePromptTemplate, prompt),
		Model:          c.cfg.ImageModel,
		Size:           c.cfg.ImageSize,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}
	resp, err := c.client.CreateImage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generating image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("no image returned")
	}
	return resp.Data[0].URL, nil
}
