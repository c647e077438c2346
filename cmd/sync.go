package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/fmbridge/internal/formatter"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
	"github.com/desertthunder/fmbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync mirrors the selected kinds from Monarch into Firefly and prints the run summary.
//
// The returned error wraps [shared.ErrSyncIncomplete] when any kind failed or was partial.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	names := cmd.StringSlice("kinds")
	if len(names) == 0 {
		names = r.config.Sync.Kinds
	}
	kinds, err := models.ParseKinds(names)
	if err != nil {
		return fmt.Errorf("%w: --kinds: %v", shared.ErrInvalidFlag, err)
	}

	files := stubFiles(cmd)
	if err := r.checkCredentials(kinds, files); err != nil {
		return err
	}

	var recorder tasks.RunRecorder
	if !cmd.Bool("no-history") {
		repo, err := r.history()
		if err != nil {
			return err
		}
		recorder = repo
	}

	dryRun := cmd.Bool("dry-run")
	engine := r.newEngine(r.sourceFor(files), int(cmd.Int("workers")), dryRun, recorder)

	r.logger.Info("starting sync", "kinds", kinds, "dry_run", dryRun)
	result, runErr := r.runSync(ctx, engine, kinds, format == formatter.Text)
	if runErr != nil && result == nil {
		return runErr
	}

	if err := r.render(cmd.String("output"), format, result); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if status := result.Status(); status != models.StatusSuccess {
		return fmt.Errorf("%w: %s: %v", shared.ErrSyncIncomplete, status, result.Err())
	}

	r.logger.Info("sync complete", "created", result.Created(), "duration", result.Duration())
	return nil
}

// runSync drives the engine, printing progress lines as they arrive when verbose.
func (r *Runner) runSync(ctx context.Context, engine tasks.SyncEngine, kinds []models.Kind, verbose bool) (*tasks.RunResult, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			if !verbose {
				continue
			}
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Translate:
				if update.Step == 0 {
					r.writePlain("🔍 %s\n", update.Message)
				}
			case tasks.Create:
				r.writePlain("   %s\n", update.Message)
			case tasks.Complete:
				r.writePlain("✓ %s\n\n", update.Message)
			}
		}
	}()

	result, err := engine.Sync(ctx, kinds, progressCh)
	close(progressCh)
	wg.Wait()
	return result, err
}

// render prints the run summary, followed by the drafts a dry run left pending.
func (r *Runner) render(path string, format formatter.Format, result *tasks.RunResult) error {
	data, err := formatter.FormatRun(result.Summary(), format)
	if err != nil {
		return err
	}

	if result.DryRun && format == formatter.Text {
		var pending []models.Record
		for i := range result.Kinds {
			pending = append(pending, result.Kinds[i].Pending...)
		}
		if len(pending) > 0 {
			records, err := formatter.FormatRecords(pending, format)
			if err != nil {
				return err
			}
			data = append(data, fmt.Sprintf("\nWould create %d records:\n", len(pending))...)
			data = append(data, records...)
		}
	}

	if path != "" {
		if err := formatter.WriteOutput(path, data); err != nil {
			return err
		}
		r.logger.Info("report written", "path", path)
		return nil
	}
	return r.writeBytes(data)
}

// checkCredentials requires a Firefly token, and a Monarch token unless every kind is read from a file.
func (r *Runner) checkCredentials(kinds []models.Kind, files map[models.Kind]string) error {
	if r.config.Firefly.Token == "" {
		return fmt.Errorf("%w: firefly.token (run 'fmbridge setup config' or set %s_FIREFLY_TOKEN)", shared.ErrMissingCredentials, shared.EnvPrefix)
	}
	if r.config.Monarch.Token != "" {
		return nil
	}
	for _, kind := range kinds {
		if _, ok := files[kind]; !ok {
			return fmt.Errorf("%w: monarch.token is required to fetch %s", shared.ErrMissingCredentials, kind)
		}
	}
	return nil
}

func stubFiles(cmd *cli.Command) map[models.Kind]string {
	files := make(map[models.Kind]string)
	for _, kind := range models.AllKinds {
		if path := cmd.String("monarch-" + kind.String()); path != "" {
			files[kind] = path
		}
	}
	return files
}

// History lists recorded sync runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, err := r.history()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if status := cmd.String("status"); status != "" {
		criteria["status"] = status
	}

	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}
	if len(runs) == 0 && format == formatter.Text {
		return r.writePlain("No sync runs recorded\n")
	}

	data, err := formatter.FormatHistory(runs, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// HistoryShow prints one recorded run.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	repo, err := r.history()
	if err != nil {
		return err
	}

	run, err := repo.Get(id)
	if err != nil {
		return err
	}

	data, err := formatter.FormatRun(run, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// HistoryDelete soft-deletes a recorded run.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	repo, err := r.history()
	if err != nil {
		return err
	}
	if err := repo.Delete(id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted sync run %s\n", id)
}
