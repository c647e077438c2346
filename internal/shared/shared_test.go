package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes key value pairs", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "kind", "accounts")
		logger.Info("created record", "source_id", "42")

		out := buf.String()
		assert.Contains(t, out, "created record")
		assert.Contains(t, out, "kind=accounts")
		assert.Contains(t, out, "source_id=42")
	})

	t.Run("SetLogLevel filters debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.InfoLevel)
		logger.Debug("hidden")

		assert.Zero(t, buf.Len(), "debug line is filtered, got %q", buf.String())
	})

	t.Run("NewFileLogger creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "tui.log")
		logger, err := NewFileLogger(path)
		require.NoError(t, err)
		logger.Info("hello")

		content, err := os.ReadFile(path)
		require.NoError(t, err, "failed to read log file")
		assert.Contains(t, string(content), "hello")
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	assert.NotEqual(t, a, b, "expected unique ids")

	_, err := uuid.Parse(a)
	assert.NoError(t, err, "expected a valid uuid, got %q", a)
}

func TestMarshalJSON(t *testing.T) {
	compact, err := MarshalJSON(map[string]int{"a": 1}, false)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(compact))

	pretty, err := MarshalJSON(map[string]int{"a": 1}, true)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(pretty))
}

func TestBrowserCommand(t *testing.T) {
	original := getRuntime
	t.Cleanup(func() { getRuntime = original })

	tests := []struct {
		runtime string
		binary  string
	}{
		{runtime: "darwin", binary: "open"},
		{runtime: "linux", binary: "xdg-open"},
		{runtime: "windows", binary: "cmd"},
	}

	for _, tt := range tests {
		t.Run(tt.runtime, func(t *testing.T) {
			getRuntime = func() string { return tt.runtime }
			cmd, err := browserCommand("http://localhost:8080/profile")
			require.NoError(t, err)
			assert.Equal(t, tt.binary, filepath.Base(cmd.Args[0]))
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		_, err := browserCommand("http://localhost")
		assert.ErrorIs(t, err, ErrNotImplemented)
	})
}
