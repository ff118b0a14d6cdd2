package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "responses.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const csvHeader = `Timestamp,Email address,Name,Course,Year of Study,WhatsApp Number,What categories would you like to volunteer for,ID Card`

func TestCSVSource(t *testing.T) {
	ctx := context.Background()

	t.Run("parses rows by header name", func(t *testing.T) {
		path := writeCSV(t, csvHeader+"\n"+
			`2026-01-01,a@x.com,Jane Doe,BTH,2,9876543210,"Hackathon, Quiz",https://drive.google.com/open?id=abc123`+"\n")

		subs, err := NewCSVSource(path).Read(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 1)

		got := subs[0]
		assert.Equal(t, "a@x.com", got.Email)
		assert.Equal(t, "Jane Doe", got.Name)
		assert.Equal(t, "BTH", got.CourseCode)
		assert.Equal(t, 2, got.YearOfStudy)
		assert.Equal(t, "9876543210", got.Phone)
		assert.Equal(t, "Hackathon, Quiz", got.Categories)
		assert.Equal(t, "https://drive.google.com/open?id=abc123", got.IDCardURL)
	})

	t.Run("non-numeric year becomes zero, row still read", func(t *testing.T) {
		path := writeCSV(t, csvHeader+"\n"+
			`2026-01-01,a@x.com,Jane Doe,BTH,second,9876543210,Quiz,url`+"\n")

		subs, err := NewCSVSource(path).Read(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Zero(t, subs[0].YearOfStudy)
	})

	t.Run("missing column fails the read", func(t *testing.T) {
		path := writeCSV(t, "Email address,Name\na@x.com,Jane\n")
		_, err := NewCSVSource(path).Read(ctx)
		assert.ErrorContains(t, err, "missing column")
	})

	t.Run("re-reading returns the full source again", func(t *testing.T) {
		path := writeCSV(t, csvHeader+"\n"+
			`2026-01-01,a@x.com,Jane Doe,BTH,2,9876543210,Quiz,url`+"\n")
		src := NewCSVSource(path)

		first, err := src.Read(ctx)
		require.NoError(t, err)
		second, err := src.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("missing file fails the read", func(t *testing.T) {
		_, err := NewCSVSource("/nonexistent/responses.csv").Read(ctx)
		assert.Error(t, err)
	})
}

func TestExtractDriveFileID(t *testing.T) {
	cases := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://drive.google.com/open?id=abc_12-3", "abc_12-3", true},
		{"https://drive.google.com/file/d/xyz789/view", "xyz789", true},
		{"https://example.com/no-file-here", "", false},
	}

	for _, tc := range cases {
		got, ok := ExtractDriveFileID(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		assert.Equal(t, tc.want, got, tc.url)
	}
}
