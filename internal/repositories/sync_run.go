package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
)

// SyncRunRepository implements models.Repository[*models.SyncRun] for sync run history.
//
// A run is stored in sync_runs with one sync_run_kinds row per synced kind. Deletes are soft.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

const selectSyncRuns = `
	SELECT id, sequence, status, dry_run, error_message, started_at, completed_at, created_at, updated_at
	FROM sync_runs
	WHERE deleted_at IS NULL
`

// Create inserts a run with the next sequence number, together with its kind summaries
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sync_runs (id, sequence, status, dry_run, error_message, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(query,
		run.ID(),
		sequence,
		string(run.Status),
		run.DryRun,
		nullString(run.ErrorMessage),
		run.StartedAt,
		run.CompletedAt,
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	if err := insertKinds(tx, run); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync run: %w", err)
	}

	run.Sequence = sequence
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	run, err := scanRun(r.db.QueryRow(selectSyncRuns+" AND id = ?", id))
	if err != nil {
		return nil, err
	}
	if err := r.loadKinds(run); err != nil {
		return nil, err
	}
	return run, nil
}

// Update replaces the run's status, timestamps and kind summaries
func (r *SyncRunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE sync_runs
		SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := tx.Exec(query,
		string(run.Status),
		nullString(run.ErrorMessage),
		run.CompletedAt,
		time.Now().UTC(),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: sync run %s not found or already deleted", shared.ErrRecordNotFound, run.ID())
	}

	if _, err := tx.Exec("DELETE FROM sync_run_kinds WHERE run_id = ?", run.ID()); err != nil {
		return fmt.Errorf("failed to clear sync run kinds: %w", err)
	}
	if err := insertKinds(tx, run); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync run: %w", err)
	}
	return nil
}

// Delete soft-deletes a run by ID
func (r *SyncRunRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE sync_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: sync run %s not found or already deleted", shared.ErrRecordNotFound, id)
	}
	return nil
}

// List retrieves runs newest first. Supported criteria: "status" (string), "dry_run" (bool)
// and "limit" (int).
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := selectSyncRuns
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if dryRun, ok := criteria["dry_run"].(bool); ok {
		query += " AND dry_run = ?"
		args = append(args, dryRun)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, run := range runs {
		if err := r.loadKinds(run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *SyncRunRepository) loadKinds(run *models.SyncRun) error {
	rows, err := r.db.Query(`
		SELECT kind, status, total, created, existing, failed, error_message
		FROM sync_run_kinds
		WHERE run_id = ?
	`, run.ID())
	if err != nil {
		return fmt.Errorf("failed to query sync run kinds: %w", err)
	}
	defer rows.Close()

	run.Kinds = nil
	for rows.Next() {
		var (
			k            models.KindRun
			status       string
			errorMessage sql.NullString
		)
		if err := rows.Scan(&k.Kind, &status, &k.Total, &k.Created, &k.Existing, &k.Failed, &errorMessage); err != nil {
			return fmt.Errorf("failed to scan sync run kind: %w", err)
		}
		k.Status = models.RunStatus(status)
		k.ErrorMessage = errorMessage.String
		run.Kinds = append(run.Kinds, k)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}

	kinds := make([]models.KindRun, 0, len(run.Kinds))
	for _, kind := range models.AllKinds {
		for _, k := range run.Kinds {
			if k.Kind == kind.String() {
				kinds = append(kinds, k)
			}
		}
	}
	run.Kinds = kinds
	return nil
}

func insertKinds(tx *sql.Tx, run *models.SyncRun) error {
	for _, k := range run.Kinds {
		_, err := tx.Exec(`
			INSERT INTO sync_run_kinds (run_id, kind, status, total, created, existing, failed, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID(), k.Kind, string(k.Status), k.Total, k.Created, k.Existing, k.Failed, nullString(k.ErrorMessage))
		if err != nil {
			return fmt.Errorf("failed to insert %s summary: %w", k.Kind, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a [sql.Row] or the current row of [sql.Rows] into a [models.SyncRun]
func scanRun(row scanner) (*models.SyncRun, error) {
	var (
		id           string
		sequence     int
		status       string
		dryRun       bool
		errorMessage sql.NullString
		startedAt    time.Time
		completedAt  sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&id, &sequence, &status, &dryRun, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run", shared.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	run := models.RestoreSyncRun(id, createdAt, updatedAt)
	run.Sequence = sequence
	run.Status = models.RunStatus(status)
	run.DryRun = dryRun
	run.ErrorMessage = errorMessage.String
	run.StartedAt = startedAt
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
