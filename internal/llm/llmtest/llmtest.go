// Package llmtest provides deterministic in-process stand-ins for the hosted
// model capabilities.
package llmtest

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"

	"chronicle/internal/llm"
)

// Dimensions is the length of every vector produced by Embedder.
const Dimensions = 512

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`a an the and or of in on at to for with by from is are was were be been
	it its they them their there this that these those as called can described
	location character player item event world some into over under`) {
		stopwords[w] = true
	}
}

// Embedder is a bag-of-words embedder. Every distinct non-stopword gets its
// own dimension, so texts sharing words score above zero and unrelated texts
// score zero. Vectors are L2-normalised.
type Embedder struct {
	mu    sync.Mutex
	vocab map[string]int
	texts []string
	Err   error
}

var _ llm.Embedder = (*Embedder)(nil)

func NewEmbedder() *Embedder {
	return &Embedder{vocab: map[string]int{}}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.Err != nil {
		return nil, e.Err
	}

	v := make([]float32, Dimensions)
	for _, word := range Tokens(text) {
		idx, ok := e.vocab[word]
		if !ok {
			if len(e.vocab) >= Dimensions {
				return nil, fmt.Errorf("vocabulary exhausted at %q", word)
			}
			idx = len(e.vocab)
			e.vocab[word] = idx
		}
		v[idx]++
	}

	var norm float64
	for _, f := range v {
		norm += float64(f * f)
	}
	if norm == 0 {
		// Keep the vector usable for cosine ranking.
		v[Dimensions-1] = 1
		return v, nil
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v, nil
}

// Texts returns every text passed to Embed, in call order.
func (e *Embedder) Texts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

// Tokens lowercases text and returns its non-stopword words.
func Tokens(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if !stopwords[w] {
			out = append(out, w)
		}
	}
	return out
}

// Summarizer keeps the more detailed record as the base and appends the other
// description when it adds anything.
type Summarizer struct {
	mu    sync.Mutex
	calls [][2]llm.Described
	Err   error
}

var _ llm.Summarizer = (*Summarizer)(nil)

func (s *Summarizer) Merge(ctx context.Context, a, b llm.Described) (llm.Described, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, [2]llm.Described{a, b})
	if s.Err != nil {
		return llm.Described{}, s.Err
	}
	base, other := a, b
	if len(b.Description) > len(a.Description) {
		base, other = b, a
	}
	merged := base
	if !strings.Contains(base.Description, other.Description) {
		merged.Description = base.Description + " " + other.Description
	}
	return merged, nil
}

func (s *Summarizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Images returns predictable URLs and records prompts.
type Images struct {
	mu      sync.Mutex
	prompts []string
	Err     error
}

var _ llm.ImageGenerator = (*Images)(nil)

func (g *Images) GenerateImage(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return fmt.Sprintf("https://images.test/%d.png", len(g.prompts)), nil
}

func (g *Images) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}
