package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/chronicle-index/internal/storage"
)

// cloneEntry writes a record with a chosen id directly to the collection.
func cloneEntry(t *testing.T, svc *Service, id, userID string) {
	t.Helper()
	coll, err := svc.collection(context.Background())
	require.NoError(t, err)
	require.NoError(t, coll.Add(context.Background(), storage.Record{
		ID:       id,
		Metadata: storage.Metadata{URL: "https://example.com/" + id, Title: id, Timestamp: 1, Topic: DefaultTopic, UserID: userID, Domain: "example.com", Path: "/" + id},
	}))
}

func TestDelete_ByIDsScopedToUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cloneEntry(t, svc, "a", "u1")
	cloneEntry(t, svc, "b", "u1")
	cloneEntry(t, svc, "c", "u1")
	cloneEntry(t, svc, "a", "u2")

	n, err := svc.Delete(ctx, "u1", []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "count of rows actually removed")

	left, err := svc.Query(ctx, Query{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, titles(left))

	other, err := svc.Query(ctx, Query{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(other), "same id under another user survives")
}

func TestDelete_AllForUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed(t, svc,
		Visit{URL: "https://example.com/1", Timestamp: 1, UserID: "u1"},
		Visit{URL: "https://example.com/2", Timestamp: 2, UserID: "u1"},
		Visit{URL: "https://example.com/3", Timestamp: 3, UserID: "u2"},
	)

	n, err := svc.Delete(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stats, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)

	stats, err = svc.Stats(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)

	n, err = svc.Delete(ctx, "u1", []string{})
	require.NoError(t, err)
	assert.Zero(t, n, "deleting an empty history is not an error")
}

func TestDelete_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Delete(context.Background(), " ", nil)
	assert.ErrorIs(t, err, ErrMissingUserID)

	broken := NewService(brokenStore{}, WithLogger(quietLogger()))
	_, err = broken.Delete(context.Background(), "u1", []string{"a"})
	assert.ErrorIs(t, err, ErrStore)
	_, err = broken.Delete(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, ErrStore)
}

func TestPrune(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cutoff := time.UnixMilli(1_000)

	seed(t, svc,
		Visit{URL: "https://example.com/old", Title: "old", Timestamp: 999, UserID: "u1"},
		Visit{URL: "https://example.com/edge", Title: "edge", Timestamp: 1_000, UserID: "u1"},
		Visit{URL: "https://example.com/new", Title: "new", Timestamp: 5_000, UserID: "u1"},
		Visit{URL: "https://example.com/old2", Title: "old2", Timestamp: 10, UserID: "u2"},
	)

	candidates, err := svc.PruneCandidates(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), candidates)

	n, err := svc.Prune(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := svc.Query(ctx, Query{UserID: "u1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"edge", "new"}, titles(left))

	_, err = svc.Prune(ctx, time.Time{})
	assert.Error(t, err)
}
