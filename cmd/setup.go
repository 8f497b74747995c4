package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/stx/internal/server"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/urfave/cli/v3"
)

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
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := shared.CurrentMigrationVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("✓ Database ready at %s (%d applied, version %d)\n", path, applied, version)
}

// SetupConfig writes the default configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Config written to %s\n", path)
}

// SetupCurl imports a session captured from the browser.
//
// The Authorization header becomes the stored access token and the cookies (including the refresh
// cookie) are added to the persistent jar.
func (r *Runner) SetupCurl(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	var headers *shared.CurlHeaders
	var err error

	switch {
	case curlCmd != "" && curlFile != "":
		return fmt.Errorf("%w: use either --curl or --curl-file", shared.ErrInvalidFlag)
	case curlFile != "":
		headers, err = shared.ParseCurlFile(curlFile)
	case curlCmd != "":
		headers, err = shared.ParseCurlCommand([]byte(curlCmd))
	default:
		return fmt.Errorf("%w: --curl or --curl-file", shared.ErrMissingArgument)
	}
	if err != nil {
		return err
	}

	slot, jar, err := r.credentials()
	if err != nil {
		return err
	}

	token := headers.BearerToken()
	if token != "" {
		if err := slot.SetToken(token); err != nil {
			return fmt.Errorf("failed to store access token: %w", err)
		}
	}

	cookies := headers.Cookies()
	jar.Import(cookies)

	if token == "" && !jar.Has(server.RefreshCookieName) {
		return fmt.Errorf("%w: request carried neither a bearer token nor a %s cookie",
			shared.ErrInvalidInput, server.RefreshCookieName)
	}

	r.logger.Info("imported browser session", "token", token != "", "cookies", len(cookies))
	r.writePlain("✓ Session imported\n")
	r.writePlain("  Access token: %s\n", mark(token != ""))
	r.writePlain("  Refresh cookie: %s\n", mark(jar.Has(server.RefreshCookieName)))
	return nil
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
