package usecase

import (
	"context"
	"errors"
	"time"

	"pubmed-chat/internal/domain"
)

// fakeLLM answers query prompts and summary prompts separately.
type fakeLLM struct {
	query      string
	queryErr   error
	summary    string
	summaryErr error
	calls      []domain.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, in domain.CompletionRequest) (string, error) {
	f.calls = append(f.calls, in)
	if in.System == buildQueryPrompt() {
		return f.query, f.queryErr
	}
	return f.summary, f.summaryErr
}

func (f *fakeLLM) summaryCalls() int {
	n := 0
	for _, c := range f.calls {
		if c.System == buildSummaryPrompt() {
			n++
		}
	}
	return n
}

type fakeSearcher struct {
	ids       []string
	err       error
	calls     int
	lastQuery string
	lastMax   int
	onSearch  func()
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) ([]string, error) {
	f.calls++
	if f.onSearch != nil {
		f.onSearch()
	}
	f.lastQuery = query
	f.lastMax = maxResults
	return f.ids, f.err
}

type fakeFetcher struct {
	records map[string]domain.ArticleRecord
	errs    map[string]error
	calls   []string
	times   []time.Time
}

func (f *fakeFetcher) Fetch(_ context.Context, id string) (domain.ArticleRecord, error) {
	f.calls = append(f.calls, id)
	f.times = append(f.times, time.Now())
	if err, ok := f.errs[id]; ok {
		return domain.ArticleRecord{}, err
	}
	rec, ok := f.records[id]
	if !ok {
		return domain.ArticleRecord{}, errors.New("unknown id")
	}
	return rec, nil
}

type fakeTranscript struct {
	turns     map[string][]domain.ConversationTurn
	appendErr error
	failAfter int
	readErr   error
	appends   int
	// honorCtx makes AppendTurn fail on a done context like an SDK-backed store.
	honorCtx bool
}

func newFakeTranscript() *fakeTranscript {
	return &fakeTranscript{turns: map[string][]domain.ConversationTurn{}, failAfter: -1}
}

func (f *fakeTranscript) AppendTurn(ctx context.Context, conversationID string, turn domain.ConversationTurn) error {
	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if f.appendErr != nil && (f.failAfter < 0 || f.appends >= f.failAfter) {
		return f.appendErr
	}
	f.appends++
	f.turns[conversationID] = append(f.turns[conversationID], turn)
	return nil
}

func (f *fakeTranscript) GetTranscript(_ context.Context, conversationID string, limit int) ([]domain.ConversationTurn, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	turns := f.turns[conversationID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func record(id, abstract string) domain.ArticleRecord {
	return domain.ArticleRecord{
		ID:       id,
		Title:    "Title " + id,
		Authors:  "Tanaka H, Suzuki K, Sato Y",
		PubDate:  "2023 Jan",
		URL:      domain.ArticleURL(id),
		Abstract: abstract,
	}
}

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return "upstream status" }
func (e *statusErr) HTTPStatusCode() int { return e.code }
