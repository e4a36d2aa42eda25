package history

// DefaultTopic is stored when classification fails or yields nothing.
const DefaultTopic = "Uncategorized"

// Entry is one indexed page visit.
type Entry struct {
	ID        string        `json:"id"`
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Timestamp int64         `json:"timestamp"` // epoch milliseconds
	Content   string        `json:"content"`
	Topic     string        `json:"topic"`
	UserID    string        `json:"userId"`
	Metadata  EntryMetadata `json:"metadata"`
}

// EntryMetadata is derived from the URL at ingestion time.
type EntryMetadata struct {
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// Visit is the raw event handed to Ingest.
type Visit struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"userId"`
}

// Skip reasons reported in IngestResult.
const (
	SkipSearchEngine = "search_engine"
	SkipDenylisted   = "denylisted"
)

// IngestResult is the outcome of Ingest: a stored entry or a skip.
type IngestResult struct {
	Entry      *Entry `json:"entry,omitempty"`
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"reason,omitempty"`
}

// Query selects entries of one user. Zero-valued fields do not filter.
type Query struct {
	UserID     string      `json:"userId"`
	TimeRange  *TimeRange  `json:"timeRange,omitempty"`
	Topics     []string    `json:"topics,omitempty"`
	Similarity *Similarity `json:"similarity,omitempty"`
	Limit      int         `json:"limit,omitempty"`
}

// TimeRange bounds are inclusive epoch milliseconds; either may be nil.
type TimeRange struct {
	Start *int64 `json:"start,omitempty"`
	End   *int64 `json:"end,omitempty"`
}

// Similarity switches a query to ranked mode against Text.
type Similarity struct {
	Text string `json:"text"`
}

// Stats summarises a user's history.
type Stats struct {
	TotalEntries int            `json:"totalEntries"`
	Domains      map[string]int `json:"domains"`
	Topics       []TopicSummary `json:"topics"`
	TimeRanges   TimeRanges     `json:"timeRanges"`
}

// TopicSummary aggregates one topic.
type TopicSummary struct {
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	FirstVisit int64  `json:"firstVisit"`
	LastVisit  int64  `json:"lastVisit"`
}

// TimeRanges counts entries per recency bucket. Buckets are disjoint and
// sum to TotalEntries.
type TimeRanges struct {
	Today     int `json:"today"`
	Yesterday int `json:"yesterday"`
	LastWeek  int `json:"lastWeek"`
	LastMonth int `json:"lastMonth"`
	Older     int `json:"older"`
}
