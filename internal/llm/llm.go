// Package llm adapts hosted model APIs to the capabilities the knowledge base
// consumes: embeddings, merge summaries, image URLs and tool-calling decisions.
package llm

import "context"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Described is a name and description pair as fed to and returned from a
// merge summary.
type Described struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Summarizer combines two descriptions of what is believed to be the same
// entity into one.
type Summarizer interface {
	Merge(ctx context.Context, a, b Described) (Described, error)
}

// ImageGenerator turns a prompt into a hosted image URL.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
