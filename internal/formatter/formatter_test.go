package formatter

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
	tu "github.com/desertthunder/fmbridge/internal/testing"
)

func sampleRun() *models.SyncRun {
	started := time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)
	completed := started.Add(1500 * time.Millisecond)

	run := models.RestoreSyncRun("run-1", started, completed)
	run.Sequence = 7
	run.Status = models.StatusPartial
	run.StartedAt = started
	run.CompletedAt = &completed
	run.Kinds = []models.KindRun{
		{Kind: "accounts", Status: models.StatusSuccess, Total: 3, Created: 1, Existing: 2},
		{Kind: "transactions", Status: models.StatusPartial, Total: 3, Created: 2, Failed: 1,
			ErrorMessage: "transactions 70: unresolvable reference: transaction 70 category 99 is not in Firefly"},
	}
	return run
}

func readCSV(t *testing.T, out []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err, "invalid CSV")
	return rows
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: Text},
		{in: "JSON", want: JSON},
		{in: " csv ", want: CSV},
		{in: "md", want: Markdown},
		{in: "markdown", want: Markdown},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidFlag)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "md", Markdown.Extension())
	assert.Equal(t, "txt", Text.Extension())
}

func TestFormatRun(t *testing.T) {
	run := sampleRun()

	t.Run("text", func(t *testing.T) {
		out, err := FormatRun(run, Text)
		require.NoError(t, err)

		for _, want := range []string{"Sync #7: partial (1.5s)", "KIND", "accounts", "transactions", "Errors:", "category 99"} {
			assert.Contains(t, string(out), want)
		}
	})

	t.Run("text without failures", func(t *testing.T) {
		clean := sampleRun()
		clean.Kinds = clean.Kinds[:1]
		clean.DryRun = true

		text := string(RunToText(clean))
		assert.NotContains(t, text, "Errors:")
		assert.True(t, strings.HasPrefix(text, "Dry run #7"), text)
	})

	t.Run("json", func(t *testing.T) {
		out, err := FormatRun(run, JSON)
		require.NoError(t, err)

		var decoded runJSON
		require.NoError(t, json.Unmarshal(out, &decoded))
		assert.Equal(t, "run-1", decoded.ID)
		assert.Equal(t, "partial", decoded.Status)
		assert.Equal(t, int64(1500), decoded.DurationMS)
		require.Len(t, decoded.Kinds, 2)
		assert.Equal(t, 1, decoded.Kinds[1].Failed)
	})

	t.Run("csv", func(t *testing.T) {
		out, err := FormatRun(run, CSV)
		require.NoError(t, err)

		rows := readCSV(t, out)
		require.Len(t, rows, 3)
		assert.Equal(t, "Kind", rows[0][0])
		assert.Equal(t, "transactions", rows[2][0])
		assert.Equal(t, "1", rows[2][5])
	})

	t.Run("markdown", func(t *testing.T) {
		out, err := FormatRun(run, Markdown)
		require.NoError(t, err)
		assert.Contains(t, string(out), "| transactions | partial | 3 | 2 | 0 | 1 |")
	})
}

func TestFormatHistory(t *testing.T) {
	older := sampleRun()
	older.Sequence = 6
	older.Status = models.StatusSuccess
	older.Kinds = older.Kinds[:1]
	runs := []*models.SyncRun{sampleRun(), older}

	t.Run("text", func(t *testing.T) {
		out, err := FormatHistory(runs, Text)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[1], "7 "), lines[1])
		assert.Contains(t, lines[1], "accounts,transactions")
	})

	t.Run("empty", func(t *testing.T) {
		out, _ := FormatHistory(nil, Text)
		assert.Contains(t, string(out), "No sync runs")
	})

	t.Run("csv totals", func(t *testing.T) {
		out, err := FormatHistory(runs, CSV)
		require.NoError(t, err)

		rows := readCSV(t, out)
		assert.Equal(t, []string{"3", "2", "1"}, rows[1][5:8])
	})

	t.Run("json", func(t *testing.T) {
		out, err := FormatHistory(runs, JSON)
		require.NoError(t, err)

		var decoded []runJSON
		require.NoError(t, json.Unmarshal(out, &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, 6, decoded[1].Sequence)
	})

	t.Run("markdown", func(t *testing.T) {
		out, _ := FormatHistory(runs, Markdown)
		assert.Contains(t, string(out), "| 6 |")
	})
}

func TestFormatRecords(t *testing.T) {
	tag, err := models.LoadTag("5", "vacation", `{"monarchmoney":{"id":"11"}}`)
	require.NoError(t, err)
	draft, err := models.NewCategory("3", "Groceries")
	require.NoError(t, err)
	records := []models.Record{tag, draft}

	t.Run("text", func(t *testing.T) {
		out, err := FormatRecords(records, Text)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[1], "-"), "expected draft without id: %s", lines[1])
		assert.Contains(t, lines[1], "draft")
	})

	t.Run("json includes attributes", func(t *testing.T) {
		out, err := FormatRecords(records, JSON)
		require.NoError(t, err)

		var decoded []recordJSON
		require.NoError(t, json.Unmarshal(out, &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, "11", decoded[0].SourceID)
		assert.Equal(t, "vacation", decoded[0].Attributes["tag"])
		assert.Equal(t, "draft", decoded[1].State)
		assert.Empty(t, decoded[1].ID)
	})

	t.Run("csv", func(t *testing.T) {
		out, err := FormatRecords(records, CSV)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(out), "Kind,ID,MonarchID,State,Label\n"), string(out))
	})
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.txt")
	require.NoError(t, WriteOutput(path, RunToText(sampleRun())))

	tu.AssertFileExists(t, path)
	assert.Contains(t, tu.MustReadFile(t, path), "Sync #7")
}
