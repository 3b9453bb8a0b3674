package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"pubmed-chat/internal/domain"
	"pubmed-chat/internal/logger"
)

const (
	defaultMaxResults   = 3
	defaultMaxQuestion  = 500
	defaultHistoryLimit = 100
	defaultFetchDelay   = time.Second

	// Bounds the assistant-turn write once the request context is gone.
	transcriptWriteTimeout = 5 * time.Second
)

type ArticleSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

type ArticleFetcher interface {
	Fetch(ctx context.Context, id string) (domain.ArticleRecord, error)
}

// TranscriptStore is the append-only conversation transcript.
type TranscriptStore interface {
	AppendTurn(ctx context.Context, conversationID string, turn domain.ConversationTurn) error
	GetTranscript(ctx context.Context, conversationID string, limit int) ([]domain.ConversationTurn, error)
}

type Deps struct {
	LLM        Completer
	Searcher   ArticleSearcher
	Fetcher    ArticleFetcher
	Transcript TranscriptStore
	Log        *slog.Logger
}

type Options struct {
	Generation     GenerationOptions
	MaxResults     int
	MaxQuestionLen int
	HistoryLimit   int
	// FetchDelay is the minimum spacing between metadata fetches within one
	// request. Zero disables pacing.
	FetchDelay time.Duration
}

// AskService runs one submission through query generation, search, fetch,
// summarization and assembly, recording both turns in the transcript.
type AskService struct {
	queries    *QueryGenerator
	summarizer *AbstractSummarizer
	searcher   ArticleSearcher
	fetcher    ArticleFetcher
	transcript TranscriptStore
	log        *slog.Logger

	maxResults     int
	maxQuestionLen int
	historyLimit   int
	fetchDelay     time.Duration
}

type AskInput struct {
	Question       string
	ConversationID string
}

// AskOutput is the assistant turn produced for one submission. Failure is
// empty on the happy path and on "no matches"; otherwise it names the
// failure the blocks describe.
type AskOutput struct {
	ConversationID string
	Blocks         []domain.Block
	Failure        ErrorCode
}

func NewAskService(d Deps, opts Options) (*AskService, error) {
	if d.LLM == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if d.Searcher == nil {
		return nil, errors.New("usecase: searcher must not be nil")
	}
	if d.Fetcher == nil {
		return nil, errors.New("usecase: fetcher must not be nil")
	}
	if d.Transcript == nil {
		return nil, errors.New("usecase: transcript store must not be nil")
	}
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.MaxQuestionLen <= 0 {
		opts.MaxQuestionLen = defaultMaxQuestion
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.FetchDelay < 0 {
		opts.FetchDelay = defaultFetchDelay
	}

	queries, err := NewQueryGenerator(d.LLM, opts.Generation)
	if err != nil {
		return nil, err
	}
	summarizer, err := NewAbstractSummarizer(d.LLM, opts.Generation, d.Log)
	if err != nil {
		return nil, err
	}
	return &AskService{
		queries:        queries,
		summarizer:     summarizer,
		searcher:       d.Searcher,
		fetcher:        d.Fetcher,
		transcript:     d.Transcript,
		log:            d.Log,
		maxResults:     opts.MaxResults,
		maxQuestionLen: opts.MaxQuestionLen,
		historyLimit:   opts.HistoryLimit,
		fetchDelay:     opts.FetchDelay,
	}, nil
}

func (s *AskService) Ask(ctx context.Context, in AskInput) (AskOutput, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return AskOutput{}, newError(ErrorInvalidInput, "empty_question", nil)
	}
	if utf8.RuneCountInString(question) > s.maxQuestionLen {
		return AskOutput{}, newError(ErrorInvalidInput, "question_too_long", nil)
	}
	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" {
		convID = newUUID()
	}
	log := logger.FromContext(ctx, s.log).With("conversation_id", convID)

	if err := s.transcript.AppendTurn(ctx, convID, domain.UserTurn(question, now())); err != nil {
		log.Error("transcript write failed", "role", domain.RoleUser, "err", err)
		return AskOutput{}, newError(ErrorInternal, "transcript_write_error", err)
	}

	blocks, failure := s.run(ctx, log, question)

	// The assistant turn is written even when the request was cancelled
	// mid-pipeline, so the user turn never stands alone.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transcriptWriteTimeout)
	defer cancel()
	if err := s.transcript.AppendTurn(writeCtx, convID, domain.AssistantTurn(blocks, now())); err != nil {
		log.Error("transcript write failed", "role", domain.RoleAssistant, "err", err)
		return AskOutput{}, newError(ErrorInternal, "transcript_write_error", err)
	}
	return AskOutput{ConversationID: convID, Blocks: blocks, Failure: failure}, nil
}

// run drives one submission from query generation to assembled blocks.
func (s *AskService) run(ctx context.Context, log *slog.Logger, question string) ([]domain.Block, ErrorCode) {
	query, err := s.queries.Generate(ctx, question)
	if err != nil {
		if errors.Is(err, ErrInvalidQuery) {
			log.Info("model declined to build a query")
			return []domain.Block{domain.ErrorBlock(MsgInvalidQuery)}, ErrorInvalidQuery
		}
		log.Error("query generation failed", "err", err)
		return []domain.Block{domain.ErrorBlock(fmt.Sprintf(MsgQueryFailed, cause(err)))}, failureCode(err, ErrorQueryGeneration)
	}
	log.Info("query generated", "query_len", len(query))

	ids, err := s.searcher.Search(ctx, query, s.maxResults)
	if err != nil {
		log.Error("pubmed search failed", "err", err, "rate_limited", isRateLimited(err))
		return []domain.Block{domain.QueryBlock(query), domain.ErrorBlock(MsgSearchFailed)}, failureCode(err, ErrorSearch)
	}
	log.Info("pubmed search complete", "results", len(ids))

	papers := make(map[string]domain.Paper, len(ids))
	pacer := s.newPacer()
	for _, id := range ids {
		if err := pacer.Wait(ctx); err != nil {
			log.Warn("fetch loop stopped", "pmid", id, "err", err)
			break
		}
		rec, err := s.fetcher.Fetch(ctx, id)
		if err != nil {
			log.Warn("pubmed fetch failed", "pmid", id, "err", err)
			continue
		}
		paper := domain.Paper{ArticleRecord: rec}
		if rec.Abstract != "" {
			paper.Summary = s.summarizer.Summarize(ctx, rec.Abstract)
		}
		papers[id] = paper
	}
	return Assemble(query, ids, papers), ""
}

// History returns the stored turns of a conversation in chronological order.
func (s *AskService) History(ctx context.Context, conversationID string) ([]domain.ConversationTurn, error) {
	convID := strings.TrimSpace(conversationID)
	if convID == "" {
		return nil, newError(ErrorInvalidInput, "empty_conversation_id", nil)
	}
	turns, err := s.transcript.GetTranscript(ctx, convID, s.historyLimit)
	if err != nil {
		return nil, newError(ErrorInternal, "transcript_read_error", err)
	}
	return turns, nil
}

// newPacer lets the first fetch through immediately and spaces the rest by
// fetchDelay.
func (s *AskService) newPacer() *rate.Limiter {
	if s.fetchDelay == 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(s.fetchDelay), 1)
}

// failureCode reports an upstream 429 as ErrorRateLimited and anything else
// as code.
func failureCode(err error, code ErrorCode) ErrorCode {
	if isRateLimited(err) {
		return ErrorRateLimited
	}
	return code
}

func cause(err error) error {
	var ue *Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = time.Now
