package pubmed

import "fmt"

// HTTPStatusError captures non-2xx E-utilities responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("pubmed: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// SearchError reports a failed esearch call. The whole search is unusable.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("pubmed: search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// MetadataError reports a failed summary or abstract lookup for one PMID.
type MetadataError struct {
	ID  string
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("pubmed: fetch %s: %v", e.ID, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }
