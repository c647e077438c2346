package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/shared"
	"github.com/desertthunder/fmbridge/internal/tasks"
	"github.com/desertthunder/fmbridge/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultTUILog = "./tmp/fmbridge-tui.log"

// TUI launches the interactive terminal UI for a sync.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.source == nil || r.target == nil {
		return fmt.Errorf("%w: Monarch and Firefly services not initialized", shared.ErrServiceUnavailable)
	}
	if err := r.checkCredentials(models.AllKinds, nil); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Log.TUIFile
	if logPath == "" {
		logPath = defaultTUILog
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	var recorder tasks.RunRecorder
	if repo, err := r.history(); err != nil {
		r.logger.Warn("sync runs will not be recorded", "error", err)
	} else {
		recorder = repo
	}

	newEngine := func(dryRun bool) tasks.SyncEngine {
		return r.newEngine(r.source, 0, dryRun, recorder)
	}

	model := ui.NewModel(ctx, newEngine, cmd.Bool("dry-run"))
	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
