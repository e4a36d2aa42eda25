package storage

// Metadata holds the structured fields stored alongside every document.
type Metadata struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Topic     string `json:"topic"`
	UserID    string `json:"userId"`
	Domain    string `json:"domain"`
	Path      string `json:"path"`
}

// Record is a single stored item: id, metadata and document body.
type Record struct {
	ID       string
	Metadata Metadata
	Document string
	Score    float64 // cosine similarity; only set by QuerySimilar
}

// Filter is a metadata predicate. Every non-zero field narrows the match;
// Start and End are inclusive bounds on Metadata.Timestamp.
type Filter struct {
	UserID string
	Start  *int64
	End    *int64
	Topics []string
}

// GetRequest describes a plain (unranked) filtered fetch.
type GetRequest struct {
	Filter        Filter
	IDs           []string
	Limit         int // <= 0 means no limit
	WithDocuments bool
}
