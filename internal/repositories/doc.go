// Package repositories implements SQLite persistence for sync run history.
//
// [SyncRunRepository] implements models.Repository[*models.SyncRun]. Runs are soft-deleted via a
// deleted_at timestamp and excluded from queries by default; each run's per-kind summaries live
// in a child table.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs
// and creation timestamps. The [NextSequence] function atomically increments per-table sequence
// counters in dedicated sequence tables.
package repositories
