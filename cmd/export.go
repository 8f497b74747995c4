package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/desertthunder/stx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// logProgress drains progress updates into the logger until the channel is closed.
func (r *Runner) logProgress(progress <-chan tasks.ProgressUpdate, wg *sync.WaitGroup) {
	defer wg.Done()
	for update := range progress {
		r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
	}
}

// ExportVideos fetches videos by ID (or from a search) and writes them as one export.
func (r *Runner) ExportVideos(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	query := cmd.String("query")

	if len(ids) == 0 && query == "" {
		return fmt.Errorf("%w: video IDs or --query", shared.ErrMissingArgument)
	}

	engine, err := r.engine(cmd.Bool("cache"))
	if err != nil {
		return err
	}

	if query != "" {
		svc, err := r.service()
		if err != nil {
			return err
		}
		page, err := svc.ListVideos(ctx, models.ListQuery{Query: query, Limit: cmd.Int("limit")})
		if err != nil {
			return err
		}
		for _, v := range page.Items {
			ids = append(ids, v.ID)
		}
		if len(ids) == 0 {
			return fmt.Errorf("%w: no videos match %q", shared.ErrNotFound, query)
		}
	}

	defaults := r.config.Export
	opts := tasks.BulkExportOpts{
		Title:      cmd.String("title"),
		Format:     firstSet(cmd.String("format"), defaults.Format),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		Thumbnail:  func(v models.Video) string { return v.ThumbnailURL },
	}
	if opts.NumWorkers == 0 {
		opts.NumWorkers = defaults.Workers
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = defaults.RateLimit
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go r.logProgress(progress, &wg)

	result, err := engine.BulkExport(ctx, progress, ids, opts)
	close(progress)
	wg.Wait()

	if err != nil && result == nil {
		return err
	}

	r.writePlainHeader("Export")
	r.writePlain("Format:     %s\n", result.Format)
	r.writePlain("Videos:     %d fetched, %d failed\n", result.Successful, result.Failed)
	r.writePlain("Directory:  %s\n", result.OutputDirectory)
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest:   %s\n", result.ManifestPath)
	}
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %s\n", res.VideoID, res.ErrorMessage)
		}
	}
	return err
}

// ExportDump fetches the signed-in user's library state in one go.
func (r *Runner) ExportDump(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(false)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go r.logProgress(progress, &wg)

	result, err := engine.Dump(ctx, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return err
	}

	for _, e := range result.Errors {
		r.logger.Warn("endpoint failed", "endpoint", e.Endpoint, "error", e.Message)
	}

	if path := cmd.String("output"); path != "" {
		if err := tasks.WriteDump(result, path); err != nil {
			return err
		}
		return r.writePlain("✓ Dump written to %s\n", path)
	}
	return r.writeJSON(result, cmd.Bool("pretty"))
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
