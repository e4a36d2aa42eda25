package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionFlag(t *testing.T) {
	var err error
	output := captureOutput(t, func() {
		err = RunWithArgs("0.1.0-test", []string{"--version"})
	})

	assert.NoError(t, err)
	assert.Contains(t, output, "chronicle 0.1.0-test")
}

func TestVersionOutputFormat(t *testing.T) {
	output := captureOutput(t, func() {
		_ = RunWithArgs("1.2.3", []string{"--version"})
	})
	assert.Equal(t, "chronicle 1.2.3", strings.TrimSpace(output))
}

func TestSubcommandsRegistered(t *testing.T) {
	parser, _, _ := buildParser("test")
	for _, name := range []string{"add", "import", "search", "open", "stats", "delete", "prune", "purge", "serve"} {
		assert.NotNil(t, parser.Find(name), "subcommand %s", name)
	}
	assert.Nil(t, parser.Find("ingest"))
}

func TestOpenRequiresID(t *testing.T) {
	err := RunWithArgs("test", []string{"open"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--id is required")
}

func TestAddRequiresURL(t *testing.T) {
	err := RunWithArgs("test", []string{"add", "--title", "Test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url is required")
}

func TestPurgeRequiresAll(t *testing.T) {
	err := RunWithArgs("test", []string{"purge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge requires --all flag for safety")
}

func TestDeleteRequiresScope(t *testing.T) {
	err := RunWithArgs("test", []string{"delete"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--id or --all")

	err = RunWithArgs("test", []string{"delete", "--all", "--id", "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestSearchFlagDefaults(t *testing.T) {
	parser, _, cmds := buildParser("test")
	search := parser.Find("search")
	require.NotNil(t, search)

	assert.Equal(t, []string{"30d"}, search.FindOptionByLongName("since").Default)
	assert.Equal(t, []string{"10"}, search.FindOptionByLongName("limit").Default)
	assert.NotNil(t, cmds.Search)
}

func TestRunStats_UserFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CHRONICLE_USER", "alice")

	var err error
	output := captureOutput(t, func() {
		err = RunWithArgs("test", []string{"--json", "stats"})
	})
	require.NoError(t, err)
	assert.Contains(t, output, `"user": "alice"`)
	assert.Contains(t, output, `"total_entries": 0`)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		wantH   float64
		wantErr bool
	}{
		{"30d", 720, false},
		{"24h", 24, false},
		{"2w", 336, false},
		{"90m", 1.5, false},
		{"", 0, true},
		{"d", 0, true},
		{"-1d", 0, true},
		{"5y", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantH, d.Hours())
		})
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "12 B", formatBytes(12))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
}
