package usecase

import (
	"context"
	"errors"
	"strings"

	"pubmed-chat/internal/domain"
)

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.5
)

// Completer is the text-completion capability every LLM backend provides.
type Completer interface {
	Complete(ctx context.Context, in domain.CompletionRequest) (string, error)
}

// GenerationOptions bounds every completion call. A zero value means the
// defaults (1024 tokens, temperature 0.5); a zero Temperature alongside a
// set MaxTokens is sent as 0.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
}

func (o GenerationOptions) withDefaults() GenerationOptions {
	if o == (GenerationOptions{}) {
		o.Temperature = defaultTemperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Temperature < 0 {
		o.Temperature = defaultTemperature
	}
	return o
}

// QueryGenerator turns a free-text question into a PubMed boolean query.
type QueryGenerator struct {
	llm  Completer
	opts GenerationOptions
}

func NewQueryGenerator(llm Completer, opts GenerationOptions) (*QueryGenerator, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	return &QueryGenerator{llm: llm, opts: opts.withDefaults()}, nil
}

// Generate returns a validated query, ErrInvalidQuery when the model declined,
// or an *Error with code ErrorQueryGeneration when the call itself failed.
func (g *QueryGenerator) Generate(ctx context.Context, question string) (string, error) {
	raw, err := g.llm.Complete(ctx, domain.CompletionRequest{
		System:      buildQueryPrompt(),
		User:        question,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		if isRateLimited(err) {
			return "", newError(ErrorQueryGeneration, "llm_rate_limited", err)
		}
		return "", newError(ErrorQueryGeneration, "llm_error", err)
	}

	query := strings.TrimSpace(raw)
	if isInvalidQuery(query) {
		return "", ErrInvalidQuery
	}
	return query, nil
}
