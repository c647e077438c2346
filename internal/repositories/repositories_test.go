package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, shared.RunMigrations(db), "failed to run migrations")
	return db
}

func completedRun(t *testing.T, dryRun bool) *models.SyncRun {
	t.Helper()
	run := models.NewSyncRun(dryRun)
	run.Kinds = []models.KindRun{
		{Kind: "transactions", Status: models.StatusPartial, Total: 3, Created: 2, Failed: 1, ErrorMessage: "transactions 9: boom"},
		{Kind: "accounts", Status: models.StatusSuccess, Total: 2, Created: 1, Existing: 1},
	}
	run.Complete(models.StatusPartial, nil)
	return run
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "sync_runs")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := NextSequence(db, "missing")
	assert.Error(t, err, "expected error for table without a sequence")
}

func TestSyncRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewSyncRunRepository(setupTestDB(t))
		run := completedRun(t, false)

		require.NoError(t, repo.Create(run))
		assert.Equal(t, 1, run.Sequence)
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewSyncRunRepository(setupTestDB(t))
		run := completedRun(t, true)
		require.NoError(t, repo.Create(run))

		got, err := repo.Get(run.ID())
		require.NoError(t, err)

		assert.Equal(t, run.ID(), got.ID())
		assert.Equal(t, models.StatusPartial, got.Status)
		assert.True(t, got.DryRun, "expected dry run flag to persist")
		require.NotNil(t, got.CompletedAt)
		assert.True(t, got.CompletedAt.Equal(*run.CompletedAt), "completed_at %v, got %v", run.CompletedAt, got.CompletedAt)

		require.Len(t, got.Kinds, 2)
		assert.Equal(t, "accounts", got.Kinds[0].Kind, "kinds are returned in dependency order")
		assert.Equal(t, "transactions", got.Kinds[1].Kind)
		assert.Equal(t, 1, got.Kinds[1].Failed)
		assert.Equal(t, "transactions 9: boom", got.Kinds[1].ErrorMessage)
		assert.Empty(t, got.Kinds[0].ErrorMessage)
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewSyncRunRepository(setupTestDB(t))
		run := models.NewSyncRun(false)
		require.NoError(t, repo.Create(run))

		run.Kinds = []models.KindRun{{Kind: "tags", Status: models.StatusFailed, Failed: 2, Total: 2}}
		run.Complete(models.StatusFailed, errors.New("listing failed"))
		require.NoError(t, repo.Update(run))

		got, err := repo.Get(run.ID())
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
		assert.Equal(t, "listing failed", got.ErrorMessage)
		require.Len(t, got.Kinds, 1, "kinds are replaced")
		assert.Equal(t, "tags", got.Kinds[0].Kind)
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSyncRunRepository(setupTestDB(t))
		run := completedRun(t, false)
		require.NoError(t, repo.Create(run))

		require.NoError(t, repo.Delete(run.ID()))
		_, err := repo.Get(run.ID())
		assert.ErrorIs(t, err, shared.ErrRecordNotFound)
	})

	t.Run("List", func(t *testing.T) {
		repo := NewSyncRunRepository(setupTestDB(t))
		for _, dryRun := range []bool{false, true, false} {
			require.NoError(t, repo.Create(completedRun(t, dryRun)))
		}

		runs, err := repo.List(nil)
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, 3, runs[0].Sequence, "newest first")
		assert.Equal(t, 1, runs[2].Sequence)
		assert.Len(t, runs[0].Kinds, 2, "kinds are loaded")

		tests := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{name: "limit", criteria: map[string]any{"limit": 2}, want: 2},
			{name: "dry run", criteria: map[string]any{"dry_run": true}, want: 1},
			{name: "status", criteria: map[string]any{"status": "partial"}, want: 3},
			{name: "unmatched status", criteria: map[string]any{"status": "success"}, want: 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runs, err := repo.List(tt.criteria)
				require.NoError(t, err)
				assert.Len(t, runs, tt.want)
			})
		}
	})
}

func TestSyncRunRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewSyncRunRepository(setupTestDB(t))
			run := models.NewSyncRun(false)
			run.Status = "bogus"

			assert.Error(t, repo.Create(run), "unknown status must fail validation")
		})

		t.Run("UnknownKind", func(t *testing.T) {
			repo := NewSyncRunRepository(setupTestDB(t))
			run := models.NewSyncRun(false)
			run.Kinds = []models.KindRun{{Kind: "budgets", Status: models.StatusSuccess}}

			assert.ErrorIs(t, repo.Create(run), shared.ErrUnknownKind)
		})

		t.Run("Duplicate", func(t *testing.T) {
			repo := NewSyncRunRepository(setupTestDB(t))
			run := completedRun(t, false)
			require.NoError(t, repo.Create(run))

			assert.Error(t, repo.Create(run), "creating a run twice must fail")
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewSyncRunRepository(setupTestDB(t))
			_, err := repo.Get("nonexistent-id")
			assert.ErrorIs(t, err, shared.ErrRecordNotFound)
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewSyncRunRepository(setupTestDB(t))
			assert.ErrorIs(t, repo.Update(models.NewSyncRun(false)), shared.ErrRecordNotFound)
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("AlreadyDeleted", func(t *testing.T) {
			repo := NewSyncRunRepository(setupTestDB(t))
			run := completedRun(t, false)
			require.NoError(t, repo.Create(run))
			require.NoError(t, repo.Delete(run.ID()))

			assert.ErrorIs(t, repo.Delete(run.ID()), shared.ErrRecordNotFound)
		})
	})
}
