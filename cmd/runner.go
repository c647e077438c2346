package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/repositories"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
	"github.com/desertthunder/fmbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services not supplied in [RunnerOpts] are built from the configuration when the root command starts.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.SourceService
	target     services.TargetService
	firefly    *services.FireflyService
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.SourceService
	Target     services.TargetService
	API        *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		target:     opts.Target,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if f, ok := opts.Target.(*services.FireflyService); ok {
		r.firefly = f
	}
	return r
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "fmbridge",
		Usage:   "Mirror Monarch accounts, categories, tags and transactions into Firefly III",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars(shared.EnvPrefix + "_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, historyCommand, setupCommand, authCommand, fireflyCommand, monarchCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before resolves the configuration and connects the services.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		config, err := shared.ResolveConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	r.setLevel(cmd.Bool("debug"))
	r.connect(ctx)
	return ctx, nil
}

func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) setLevel(debug bool) {
	if debug {
		shared.SetLogLevel(r.logger, log.DebugLevel)
		return
	}
	if r.config.Log.Level == "" {
		return
	}

	level, err := log.ParseLevel(r.config.Log.Level)
	if err != nil {
		r.logger.Warn("ignoring unknown log level", "level", r.config.Log.Level)
		return
	}
	shared.SetLogLevel(r.logger, level)
}

// connect builds the Monarch, Firefly and raw API clients that were not injected.
func (r *Runner) connect(ctx context.Context) {
	if r.source == nil {
		monarch := services.NewMonarchService(r.config.Monarch.APIURL, r.httpClient)
		if r.config.Monarch.Token != "" {
			if err := monarch.Authenticate(ctx, map[string]string{"token": r.config.Monarch.Token}); err != nil {
				r.logger.Warn("failed to authenticate with Monarch", "error", err)
			}
		}
		r.source = monarch
	}

	if r.target == nil {
		r.firefly = services.NewFireflyService(r.config.Firefly, r.httpClient)
		r.target = r.firefly
	}

	if r.api == nil {
		r.api = services.NewAPIService(r.config.Firefly.Host, services.FireflyClient(r.config.Firefly.Token, r.httpClient))
	}
}

// SetLogger replaces the runner's logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// history opens the run history database, applying migrations on first use.
func (r *Runner) history() (*repositories.SyncRunRepository, error) {
	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		r.db = db
	}
	return repositories.NewSyncRunRepository(r.db), nil
}

// sourceFor wraps the Monarch client with document files for the kinds that have one.
func (r *Runner) sourceFor(files map[models.Kind]string) services.SourceService {
	stub := services.NewStubSource(r.source, files)
	for _, kind := range models.AllKinds {
		if stub.Stubbed(kind) {
			r.logger.Info("using source document file", "kind", kind, "path", files[kind])
		}
	}
	return stub
}

// newEngine builds a mirror engine over the runner's target, recording runs unless recorder is nil.
func (r *Runner) newEngine(source services.SourceService, workers int, dryRun bool, recorder tasks.RunRecorder) *tasks.MirrorEngine {
	if workers <= 0 {
		workers = r.config.Sync.Workers
	}
	return tasks.NewMirrorEngine(source, r.target, tasks.Options{
		Workers:  workers,
		DryRun:   dryRun,
		Logger:   shared.WithLogger(r.logger, "component", "sync"),
		Recorder: recorder,
	})
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeRaw(data json.RawMessage, pretty bool) error {
	if !pretty {
		return r.writeBytes(append(data, '\n'))
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: response is not JSON: %v", shared.ErrInvalidInput, err)
	}
	return r.writeJSON(v, true)
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
