package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/fmbridge/internal/formatter"
	"github.com/desertthunder/fmbridge/internal/mapping"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
	"github.com/desertthunder/fmbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// MonarchFetch prints the raw Monarch document of a kind.
func (r *Runner) MonarchFetch(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("kind")
	if name == "" {
		return fmt.Errorf("%w: kind (accounts, categories, tags, transactions)", shared.ErrMissingArgument)
	}

	kind, err := models.ParseKind(name)
	if err != nil {
		return err
	}

	t, err := mapping.For(kind)
	if err != nil {
		return err
	}

	if r.source == nil {
		return fmt.Errorf("%w: Monarch service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("fetching Monarch document", "kind", kind)

	doc, err := t.Fetch(ctx, r.source)
	if err != nil {
		return err
	}

	if records, err := t.Unpack(doc); err == nil {
		r.logger.Info("fetched document", "kind", kind, "records", len(records))
	} else {
		r.logger.Warn("document does not unpack", "kind", kind, "error", err)
	}

	if path := cmd.String("output"); path != "" {
		data, err := shared.MarshalJSON(doc, cmd.Bool("pretty"))
		if err != nil {
			data = doc
		}
		if err := formatter.WriteOutput(path, data); err != nil {
			return err
		}
		return r.writePlain("✓ Saved %s to %s\n", kind, path)
	}
	return r.writeRaw(doc, cmd.Bool("pretty"))
}

// MonarchSnapshot saves the source documents to a directory. Pass the files back with the
// --monarch-<kind> flags of sync to replay a run offline.
func (r *Runner) MonarchSnapshot(ctx context.Context, cmd *cli.Command) error {
	kinds, err := models.ParseKinds(cmd.StringSlice("kinds"))
	if err != nil {
		return fmt.Errorf("%w: --kinds: %v", shared.ErrInvalidFlag, err)
	}

	engine := tasks.NewMirrorEngine(r.source, r.target, tasks.Options{Logger: r.logger})

	progressCh := make(chan tasks.ProgressUpdate, len(kinds))
	result, err := engine.Snapshot(ctx, kinds, tasks.SnapshotOpts{
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
	}, progressCh)
	close(progressCh)

	for update := range progressCh {
		r.writePlain("📥 %s\n", update.Message)
	}
	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Snapshot Complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Saved: %d/%d kinds\n", len(result.Files)-result.Failed(), len(result.Files))
	for _, f := range result.Files {
		if f.Error != "" {
			r.writePlain("  ✗ %s: %s\n", f.Kind, f.Error)
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if err != nil {
		return err
	}
	if result.Failed() > 0 {
		return fmt.Errorf("%w: %d of %d kinds failed", shared.ErrSyncIncomplete, result.Failed(), len(result.Files))
	}
	return nil
}
