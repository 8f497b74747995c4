package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/urfave/cli/v3"
)

// configPath returns the config file to load: $STX_CONFIG or ./config.toml.
func configPath() string {
	if path := os.Getenv("STX_CONFIG"); path != "" {
		return path
	}
	return "config.toml"
}

func main() {
	logger := shared.NewLogger(nil)

	path := configPath()
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			logger.Fatalf("failed to load %v: %v", path, err)
		}
		config = loaded
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: path,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "stx",
		Usage:    "StreamTube from the terminal",
		Commands: runner.register(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(runner.logger, log.DebugLevel)
			}
			return ctx, nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrReauthRequired) {
			reauthHint(runner)
		}
		logger.Error(err)
		runner.Close()
		os.Exit(1)
	}
}

// reauthHint tells the user how to sign in again and opens the sign-in page when configured to.
func reauthHint(r *Runner) {
	fmt.Fprintln(os.Stderr, "Your session has ended. Sign in again with `stx auth login` or `stx auth browser`.")

	api := r.config.API
	if !api.OpenBrowser || api.SignInURL == "" {
		return
	}
	if err := shared.OpenBrowser(api.SignInURL); err != nil {
		r.logger.Warn("could not open browser", "url", api.SignInURL, "error", err)
	}
}
