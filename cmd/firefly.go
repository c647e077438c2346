package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/fmbridge/internal/formatter"
	"github.com/desertthunder/fmbridge/internal/mapping"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// FireflyList lists the Firefly records of a kind, decoded the way a sync primes its index.
func (r *Runner) FireflyList(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("kind")
	if name == "" {
		return fmt.Errorf("%w: kind (accounts, categories, tags, transactions)", shared.ErrMissingArgument)
	}

	kind, err := models.ParseKind(name)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if r.target == nil {
		return fmt.Errorf("%w: Firefly service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("listing Firefly records", "kind", kind)

	records, err := mapping.NewTargetLister(r.target, r.logger).ListRecords(ctx, kind)
	if err != nil {
		return err
	}

	if cmd.Bool("mirrored") {
		mirrored := records[:0]
		for _, rec := range records {
			if rec.SourceID() != "" {
				mirrored = append(mirrored, rec)
			}
		}
		records = mirrored
	}

	r.logger.Debug("listed records", "kind", kind, "count", len(records))

	data, err := formatter.FormatRecords(records, format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteOutput(path, data); err != nil {
			return err
		}
		return r.writePlain("✓ Saved %d %s to %s\n", len(records), kind, path)
	}
	return r.writeBytes(data)
}
