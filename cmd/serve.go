package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/server"
	"github.com/urfave/cli/v3"
)

var demoVideos = []models.VideoInput{
	{Title: "Getting started with StreamTube", Description: "A tour of the platform", Duration: 312},
	{Title: "Go concurrency patterns", Description: "Channels, mutexes and worker pools", Duration: 1804},
	{Title: "Refresh tokens explained", Description: "Access tokens, cookies and renewal", Duration: 655},
}

// Serve runs the in-memory development API until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.Addr()
	}

	api := server.NewDevAPI(server.DevAPIOptions{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Logger:     r.logger,
		Registry:   r.registry,
	})

	if cmd.Bool("seed") {
		if err := seedDevAPI(api); err != nil {
			return err
		}
		r.logger.Info("seeded demo account", "email", "demo@example.com", "password", "password123")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("development API listening", "url", fmt.Sprintf("http://%s%s", addr, server.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func seedDevAPI(api *server.DevAPI) error {
	user, err := api.SeedUser(models.SignupInput{
		Username: "demo",
		Email:    "demo@example.com",
		Password: "password123",
		FullName: "Demo User",
	})
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	for _, input := range demoVideos {
		if _, err := api.SeedVideo(user.ID, input); err != nil {
			return fmt.Errorf("failed to seed video: %w", err)
		}
	}
	return nil
}
