package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed ingests visits with per-URL content and topics.
func seed(t *testing.T, svc *Service, visits ...Visit) []Entry {
	t.Helper()
	out := make([]Entry, 0, len(visits))
	for _, v := range visits {
		res, err := svc.Ingest(context.Background(), v)
		require.NoError(t, err)
		require.NotNil(t, res.Entry)
		out = append(out, *res.Entry)
	}
	return out
}

type topicByTitle map[string]string

func (m topicByTitle) Classify(_ context.Context, title, _ string) (string, error) {
	return m[title], nil
}

func newQueryService(t *testing.T) *Service {
	t.Helper()
	ext := &fakeExtractor{content: map[string]string{
		"https://go.dev/tour":          "golang tour goroutines channels interfaces",
		"https://doc.rust-lang.org/":   "rust ownership borrowing lifetimes",
		"https://cooking.example/soup": "tomato soup recipe with basil",
		"https://go.dev/blog":          "golang blog release notes",
	}}
	cls := topicByTitle{"tour": "Programming", "rust": "Programming", "soup": "Cooking", "blog": "News"}
	svc, _ := newTestService(t, WithExtractor(ext), WithClassifier(cls))
	seed(t, svc,
		Visit{URL: "https://go.dev/tour", Title: "tour", Timestamp: 100, UserID: "u1"},
		Visit{URL: "https://doc.rust-lang.org/", Title: "rust", Timestamp: 200, UserID: "u1"},
		Visit{URL: "https://cooking.example/soup", Title: "soup", Timestamp: 300, UserID: "u1"},
		Visit{URL: "https://go.dev/blog", Title: "blog", Timestamp: 400, UserID: "u2"},
	)
	return svc
}

func titles(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Title)
	}
	return out
}

func TestQuery_Filters(t *testing.T) {
	svc := newQueryService(t)

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"user only", Query{UserID: "u1"}, []string{"soup", "rust", "tour"}},
		{"other user", Query{UserID: "u2"}, []string{"blog"}},
		{"unknown user", Query{UserID: "nobody"}, []string{}},
		{"inclusive start", Query{UserID: "u1", TimeRange: &TimeRange{Start: ptr(200)}}, []string{"soup", "rust"}},
		{"inclusive end", Query{UserID: "u1", TimeRange: &TimeRange{End: ptr(200)}}, []string{"rust", "tour"}},
		{"both bounds", Query{UserID: "u1", TimeRange: &TimeRange{Start: ptr(150), End: ptr(250)}}, []string{"rust"}},
		{"topics", Query{UserID: "u1", Topics: []string{"Cooking", "News"}}, []string{"soup"}},
		{"limit", Query{UserID: "u1", Limit: 2}, []string{"soup", "rust"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(context.Background(), tt.q)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, titles(got))
		})
	}
}

func TestQuery_EmptyResultIsNonNil(t *testing.T) {
	svc := newQueryService(t)
	got, err := svc.Query(context.Background(), Query{UserID: "u1", Topics: []string{"Sports"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestQuery_SimilarityRanksAndScopes(t *testing.T) {
	svc := newQueryService(t)

	got, err := svc.Query(context.Background(), Query{UserID: "u1", Similarity: &Similarity{Text: "golang goroutines"}})
	require.NoError(t, err)
	require.Len(t, got, 3, "other users' entries never appear")
	assert.Equal(t, "tour", got[0].Title)
	assert.Equal(t, "golang tour goroutines channels interfaces", got[0].Content)

	got, err = svc.Query(context.Background(), Query{
		UserID:     "u1",
		Similarity: &Similarity{Text: "golang goroutines"},
		Topics:     []string{"Cooking"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"soup"}, titles(got))

	got, err = svc.Query(context.Background(), Query{UserID: "u1", Similarity: &Similarity{Text: "rust"}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"rust"}, titles(got))
}

func TestQuery_MissingUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Query(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestQuery_StoreFailurePropagates(t *testing.T) {
	svc := NewService(brokenStore{}, WithLogger(quietLogger()))

	_, err := svc.Query(context.Background(), Query{UserID: "u1"})
	assert.ErrorIs(t, err, ErrStore)

	_, err = svc.Query(context.Background(), Query{UserID: "u1", Similarity: &Similarity{Text: "x"}})
	assert.ErrorIs(t, err, ErrStore)
}

func TestGet(t *testing.T) {
	svc, _ := newTestService(t)
	entries := seed(t, svc, Visit{URL: "https://example.com/a", Title: "A", Timestamp: 1, UserID: "u1"})

	got, err := svc.Get(context.Background(), "u1", entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entries[0], *got)

	_, err = svc.Get(context.Background(), "u2", entries[0].ID)
	assert.ErrorIs(t, err, ErrNotFound, "entries are scoped to their owner")

	_, err = svc.Get(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
