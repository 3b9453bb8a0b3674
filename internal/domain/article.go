package domain

import "fmt"

// MaxDisplayAuthors is the number of authors kept on an ArticleRecord.
const MaxDisplayAuthors = 3

// ArticleRecord is the metadata and abstract fetched for one PMID.
type ArticleRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Authors  string `json:"authors"`
	PubDate  string `json:"pubdate"`
	URL      string `json:"url"`
	Abstract string `json:"abstract,omitempty"`
}

// Paper is an ArticleRecord with its generated summary attached.
// Summary is empty when the record has no abstract.
type Paper struct {
	ArticleRecord
	Summary string `json:"summary"`
}

// ArticleURL returns the PubMed page for a PMID.
func ArticleURL(id string) string {
	return fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", id)
}
