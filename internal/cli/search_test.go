package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSearchData(t *testing.T, a *app) {
	t.Helper()
	now := time.Now()
	seedVisit(t, a, "alice", "https://go.dev/blog/pipelines", "golang pipelines goroutines channels", now.Add(-time.Hour).UnixMilli())
	seedVisit(t, a, "alice", "https://cooking.example/bread", "banana bread recipe", now.Add(-2*time.Hour).UnixMilli())
	seedVisit(t, a, "alice", "https://news.example/old", "archived golang news", now.Add(-60*24*time.Hour).UnixMilli())
	seedVisit(t, a, "bob", "https://go.dev/doc", "golang documentation", now.UnixMilli())
}

func TestSearchCommand_Similarity(t *testing.T) {
	a := newTestApp(t)
	seedSearchData(t, a)

	cmd := &SearchCommand{Since: "30d", Limit: 10, globals: &GlobalFlags{User: "alice", JSON: true}}

	var err error
	output := captureOutput(t, func() {
		err = cmd.executeWithApp(context.Background(), a, []string{"golang", "goroutines"})
	})
	require.NoError(t, err)

	var out jsonSearchOutput
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	assert.Equal(t, "golang goroutines", out.Query)
	require.Equal(t, 2, out.Count, "old entry and other users excluded")
	assert.Equal(t, "https://go.dev/blog/pipelines", out.Results[0].URL)
}

func TestSearchCommand_FilteredListing(t *testing.T) {
	a := newTestApp(t)
	seedSearchData(t, a)

	cmd := &SearchCommand{Limit: 10, globals: &GlobalFlags{User: "alice", JSON: true}}

	var err error
	output := captureOutput(t, func() {
		err = cmd.executeWithApp(context.Background(), a, nil)
	})
	require.NoError(t, err)

	var out jsonSearchOutput
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	require.Equal(t, 3, out.Count)
	assert.Equal(t, "golang pipelines goroutines channels", out.Results[0].Title, "newest first")
	assert.Equal(t, "archived golang news", out.Results[2].Title)
}

func TestSearchCommand_UntilAndTopic(t *testing.T) {
	a := newTestApp(t)
	seedSearchData(t, a)

	cmd := &SearchCommand{Since: "90d", Until: "30d", Limit: 10, globals: &GlobalFlags{User: "alice", JSON: true}}
	var err error
	output := captureOutput(t, func() {
		err = cmd.executeWithApp(context.Background(), a, nil)
	})
	require.NoError(t, err)
	var out jsonSearchOutput
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "archived golang news", out.Results[0].Title)

	cmd = &SearchCommand{Topic: []string{"Sports"}, Limit: 10, globals: &GlobalFlags{User: "alice"}}
	output = captureOutput(t, func() {
		err = cmd.executeWithApp(context.Background(), a, nil)
	})
	require.NoError(t, err)
	assert.Contains(t, output, "No results found (all time)")
}

func TestSearchCommand_HumanOutput(t *testing.T) {
	a := newTestApp(t)
	seedSearchData(t, a)

	cmd := &SearchCommand{Since: "30d", Limit: 1, globals: &GlobalFlags{User: "alice"}}
	var err error
	output := captureOutput(t, func() {
		err = cmd.executeWithApp(context.Background(), a, []string{"banana", "bread"})
	})
	require.NoError(t, err)
	assert.Contains(t, output, `Found 1 result for "banana bread" (since 30d)`)
	assert.Contains(t, output, "banana bread recipe")
	assert.Contains(t, output, "cooking.example")
}

func TestSearchCommand_InvalidSince(t *testing.T) {
	a := newTestApp(t)
	cmd := &SearchCommand{Since: "abc", globals: &GlobalFlags{}}
	err := cmd.executeWithApp(context.Background(), a, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --since")
}
