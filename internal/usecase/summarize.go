package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pubmed-chat/internal/domain"
	"pubmed-chat/internal/logger"
)

// AbstractSummarizer produces a Japanese bullet summary of an abstract.
// Callers must not pass an empty abstract.
type AbstractSummarizer struct {
	llm  Completer
	opts GenerationOptions
	log  *slog.Logger
}

func NewAbstractSummarizer(llm Completer, opts GenerationOptions, log *slog.Logger) (*AbstractSummarizer, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &AbstractSummarizer{llm: llm, opts: opts.withDefaults(), log: log}, nil
}

// Summarize never fails: any LLM error, or an empty completion, yields
// SummaryFailedText so the paper's metadata can still be shown.
func (s *AbstractSummarizer) Summarize(ctx context.Context, abstract string) string {
	raw, err := s.llm.Complete(ctx, domain.CompletionRequest{
		System:      buildSummaryPrompt(),
		User:        buildSummaryInput(abstract),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		logger.FromContext(ctx, s.log).Warn("summary generation failed", "err", err, "rate_limited", isRateLimited(err))
		return SummaryFailedText
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		logger.FromContext(ctx, s.log).Warn("summary generation returned empty text")
		return SummaryFailedText
	}
	return summary
}
