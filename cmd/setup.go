package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/fmbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes credentials to the configuration file, creating it from the template when missing.
//
// The Monarch token can be lifted from a copied cURL command of any authenticated Monarch web request.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("from-curl")
	curlFile := cmd.String("curl-file")
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --from-curl and --curl-file", shared.ErrInvalidArgument)
	}

	config, err := r.loadOrCreateConfig()
	if err != nil {
		return err
	}

	if host := cmd.String("firefly-host"); host != "" {
		config.Firefly.Host = host
	}
	if token := cmd.String("firefly-token"); token != "" {
		config.Firefly.Token = token
	}
	if token := cmd.String("monarch-token"); token != "" {
		config.Monarch.Token = token
	}

	if curlCmd != "" || curlFile != "" {
		r.logger.Info("parsing cURL command for the Monarch token")

		var headers shared.CurlHeaders
		if curlFile != "" {
			headers, err = shared.ParseCurlFile(curlFile)
		} else {
			headers, err = shared.ParseCurlCommand([]byte(curlCmd))
		}
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}

		token, err := headers.MonarchToken()
		if err != nil {
			return err
		}
		config.Monarch.Token = token
		r.logger.Debug("extracted Monarch token", "length", len(token))
	}

	if err := shared.WriteConfigFile(r.configPath, config); err != nil {
		return err
	}
	r.config = config
	r.logger.Info("config file written", "path", r.configPath)

	r.writePlain("✓ Configuration saved to %s\n", r.configPath)
	if err := config.Validate(); err != nil {
		r.writePlainln("Still missing:")
		for _, line := range splitErrors(err) {
			r.writePlain("  - %s\n", line)
		}
		return nil
	}

	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'fmbridge auth status' to verify both credentials\n")
	r.writePlain("2. Run 'fmbridge sync --dry-run' to preview the first sync\n")
	return nil
}

func (r *Runner) loadOrCreateConfig() (*shared.Config, error) {
	if _, err := os.Stat(r.configPath); err == nil {
		return shared.LoadConfig(r.configPath)
	}

	r.logger.Info("config file not found, creating from template", "path", r.configPath)
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return nil, err
	}
	return shared.LoadConfig(r.configPath)
}

// splitErrors flattens an [errors.Join] result into its messages.
func splitErrors(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, e.Error())
		}
		return lines
	}
	return []string{err.Error()}
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("✓ Database ready at %s\n", path)
}
