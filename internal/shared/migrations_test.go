package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		require.NoError(t, err, "failed to load migrations")
		require.NotEmpty(t, migrations, "expected at least one migration")

		for i := 1; i < len(migrations); i++ {
			assert.Greater(t, migrations[i].Version, migrations[i-1].Version, "migrations are sorted by version")
		}

		for _, m := range migrations {
			assert.NotEmpty(t, m.Up, "migration version %d missing up SQL", m.Version)
			assert.NotEmpty(t, m.Down, "migration version %d missing down SQL", m.Version)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, RunMigrations(db))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
		assert.NotZero(t, count, "expected at least one migration to be applied")

		_, err = db.Exec("SELECT 1 FROM sync_runs LIMIT 1")
		assert.NoError(t, err, "sync_runs table should exist after migrations")
		_, err = db.Exec("SELECT 1 FROM sync_run_kinds LIMIT 1")
		assert.NoError(t, err, "sync_run_kinds table should exist after migrations")

		require.NoError(t, RunMigrations(db), "running migrations twice should be a no-op")
		require.NoError(t, RollbackMigration(db))

		_, err = db.Exec("SELECT 1 FROM sync_runs LIMIT 1")
		assert.Error(t, err, "sync_runs table should be dropped after rollback")
	})

	t.Run("Rollback with nothing applied", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, createMigrationsTable(db))
		assert.Error(t, RollbackMigration(db), "expected error when no migrations are applied")
	})

	t.Run("removeComments", func(t *testing.T) {
		got := removeComments("-- header\nCREATE TABLE t (id INTEGER) -- trailing\n")
		assert.Equal(t, "CREATE TABLE t (id INTEGER)", got)
	})
}
