// Package retrieval defines the narrow contracts with the vector-similarity
// and literature-search collaborators. The pipeline treats both purely as
// ranked-candidate sources; how candidates are embedded, indexed, or scored
// is out of scope.
package retrieval

import "context"

// Candidate is one ranked result from a similarity search.
type Candidate struct {
	// ID identifies the matched item in its collection.
	ID string `json:"id"`

	// Score is the similarity score assigned by the search service.
	Score float64 `json:"score"`

	// Payload carries the stored metadata of the matched item.
	Payload map[string]any `json:"payload,omitempty"`
}

// SimilaritySearcher is the vector-similarity collaborator boundary.
type SimilaritySearcher interface {
	// Search returns up to topK candidates from the named collection,
	// ordered by descending score.
	Search(ctx context.Context, collection string, vector []float64, topK int) ([]Candidate, error)
}

// Citation is one literature reference returned by a literature search.
type Citation struct {
	// Title is the work's title.
	Title string `json:"title"`

	// Source identifies where the work was found (DOI, URL, corpus id).
	Source string `json:"source"`

	// Snippet is the matched excerpt, when available.
	Snippet string `json:"snippet,omitempty"`
}

// LiteratureSearcher is the optional literature collaborator the Expander
// stage may consult for supporting citations.
type LiteratureSearcher interface {
	// Search returns up to limit citations relevant to the query.
	Search(ctx context.Context, query string, limit int) ([]Citation, error)
}
