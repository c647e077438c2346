package tasks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	tu "github.com/desertthunder/fmbridge/internal/testing"
)

func TestMirrorEngine_Snapshot(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(t.TempDir(), "snapshot")
	progress := make(chan ProgressUpdate, 16)

	result, err := f.engine(Options{}).Snapshot(context.Background(), nil, SnapshotOpts{OutputDir: dir, RateLimit: 100}, progress)
	require.NoError(t, err)
	close(progress)

	assert.Equal(t, 0, result.Failed())
	require.Len(t, result.Files, 4)
	for i, kind := range models.AllKinds {
		assert.Equal(t, kind.String(), result.Files[i].Kind)
		tu.AssertFileExists(t, result.Files[i].Path)
	}
	assert.Equal(t, 3, result.Files[0].Records)
	assert.Equal(t, 3, result.Files[3].Records)
	assert.Len(t, progress, 4)

	var manifest SnapshotResult
	require.NoError(t, json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest))
	assert.Equal(t, dir, manifest.OutputDirectory)
	assert.Len(t, manifest.Files, 4)

	t.Run("documents replay through stub files", func(t *testing.T) {
		files := make(map[models.Kind]string)
		for i, kind := range models.AllKinds {
			files[kind] = result.Files[i].Path
		}

		replay := NewMirrorEngine(services.NewStubSource(nil, files), f.target, Options{})
		run, err := replay.Sync(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, run.Created())
	})
}

func TestMirrorEngine_SnapshotPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.source = services.NewStubSource(nil, map[models.Kind]string{
		models.KindTag: tu.WriteFile(t, "tags.json", tu.TagsDoc),
	})
	dir := t.TempDir()

	result, err := f.engine(Options{}).Snapshot(context.Background(), []models.Kind{models.KindTag, models.KindAccount}, SnapshotOpts{OutputDir: dir, RateLimit: 100}, nil)
	require.NoError(t, err)

	require.Len(t, result.Files, 2)
	assert.Equal(t, "accounts", result.Files[0].Kind)
	assert.NotEmpty(t, result.Files[0].Error)
	assert.Empty(t, result.Files[0].Path)
	assert.Equal(t, 2, result.Files[1].Records)
	assert.Equal(t, 1, result.Failed())

	_, statErr := os.Stat(filepath.Join(dir, "accounts.json"))
	assert.True(t, os.IsNotExist(statErr))
}
