// Package pubmed is a small client for the NCBI E-utilities endpoints used
// to search PubMed and read article summaries and abstracts.
package pubmed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pubmed-chat/internal/domain"
)

const (
	DefaultBaseURL    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	DefaultMaxResults = 3
	defaultTimeout    = 30 * time.Second
	maxBodyBytes      = 4 << 20
)

type esearchResponse struct {
	Result *struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type docSummary struct {
	UID     string `json:"uid"`
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Error string `json:"error"`
}

// Client talks to esearch, esummary and efetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	tool       string
	email      string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAPIKey sets the NCBI api_key parameter sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithTool sets the tool and email parameters NCBI asks clients to identify with.
func WithTool(tool, email string) Option {
	return func(c *Client) {
		c.tool = strings.TrimSpace(tool)
		c.email = strings.TrimSpace(email)
	}
}

func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		return nil, errors.New("pubmed: base url must not be empty")
	}
	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		return nil, fmt.Errorf("pubmed: invalid base url: %w", err)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c, nil
}

// Search returns up to maxResults PMIDs in PubMed's relevance order. A
// response without an id list is treated as no matches.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults < 1 {
		maxResults = DefaultMaxResults
	}
	raw, err := c.get(ctx, "esearch.fcgi", url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(maxResults)},
	})
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}

	var payload esearchResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &SearchError{Query: query, Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.Result == nil {
		return []string{}, nil
	}

	ids := make([]string, 0, len(payload.Result.IDList))
	seen := make(map[string]struct{}, len(payload.Result.IDList))
	for _, id := range payload.Result.IDList {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == maxResults {
			break
		}
	}
	return ids, nil
}

// Fetch reads the summary and abstract for one PMID. A missing abstract is
// not an error; the record's Abstract is then empty.
func (c *Client) Fetch(ctx context.Context, id string) (domain.ArticleRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ArticleRecord{}, &MetadataError{ID: id, Err: errors.New("empty id")}
	}

	doc, err := c.summary(ctx, id)
	if err != nil {
		return domain.ArticleRecord{}, &MetadataError{ID: id, Err: err}
	}
	abstract, err := c.abstract(ctx, id)
	if err != nil {
		return domain.ArticleRecord{}, &MetadataError{ID: id, Err: err}
	}

	return domain.ArticleRecord{
		ID:       id,
		Title:    doc.Title,
		Authors:  joinAuthors(doc),
		PubDate:  doc.PubDate,
		URL:      domain.ArticleURL(id),
		Abstract: abstract,
	}, nil
}

func (c *Client) summary(ctx context.Context, id string) (docSummary, error) {
	raw, err := c.get(ctx, "esummary.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {id},
		"retmode": {"json"},
	})
	if err != nil {
		return docSummary{}, fmt.Errorf("summary: %w", err)
	}

	var payload esummaryResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return docSummary{}, fmt.Errorf("summary: decode response: %w", err)
	}
	if payload.Result == nil {
		return docSummary{}, errors.New("summary: missing result")
	}
	docRaw, ok := payload.Result[id]
	if !ok {
		return docSummary{}, errors.New("summary: missing document")
	}
	var doc docSummary
	if err := json.Unmarshal(docRaw, &doc); err != nil {
		return docSummary{}, fmt.Errorf("summary: decode document: %w", err)
	}
	if doc.Error != "" {
		return docSummary{}, fmt.Errorf("summary: %s", doc.Error)
	}
	return doc, nil
}

func (c *Client) abstract(ctx context.Context, id string) (string, error) {
	raw, err := c.get(ctx, "efetch.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {id},
		"retmode": {"text"},
		"rettype": {"abstract"},
	})
	if err != nil {
		return "", fmt.Errorf("abstract: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func joinAuthors(doc docSummary) string {
	names := make([]string, 0, domain.MaxDisplayAuthors)
	for _, a := range doc.Authors {
		if len(names) == domain.MaxDisplayAuthors {
			break
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.tool != "" {
		params.Set("tool", c.tool)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}
	target := c.baseURL + "/" + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: target, Body: string(buf)}
	}
	buf, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
