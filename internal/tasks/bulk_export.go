package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/stx/internal/formatter"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers   = 5
	MaxWorkers       = 10
	DefaultRateLimit = 5.0
	ManifestFile     = "export_manifest.json"
)

// BulkExportOpts contains configuration for bulk video exports.
type BulkExportOpts struct {
	Title      string                    // Export title (default: "StreamTube export")
	Format     string                    // json, csv, markdown or text
	OutputDir  string                    // Base output directory (default: stx_export_{epoch})
	NumWorkers int                       // Concurrent workers (default: 5, max: 10)
	RateLimit  float64                   // Requests per second (default: 5)
	Thumbnail  func(models.Video) string // Optional thumbnail URL for Markdown exports
}

// VideoResult is the outcome of fetching one video.
type VideoResult struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title,omitempty"`
	Success      bool   `json:"success"`
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`

	video models.Video
}

// BulkExportResult summarizes a bulk export. It is also the manifest written next to the export.
type BulkExportResult struct {
	Format          string        `json:"format"`
	TotalVideos     int           `json:"totalVideos"`
	Successful      int           `json:"successful"`
	Failed          int           `json:"failed"`
	OutputDirectory string        `json:"outputDirectory"`
	Files           []string      `json:"files"`
	ManifestPath    string        `json:"-"`
	Results         []VideoResult `json:"results"`
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      time.Time     `json:"finishedAt"`
}

type videoJob struct {
	index int
	id    string
}

// BulkExport fetches every video in ids with a rate-limited worker pool and writes the fetched videos as a single
// export plus an [ManifestFile] in opts.OutputDir.
//
// Failed fetches are recorded per video and do not stop the export. The results keep the order of ids.
func (e *LibraryEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one video ID", shared.ErrMissingArgument)
	}

	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	opts.Format = format

	if opts.Title == "" {
		opts.Title = "StreamTube export"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("stx_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultWorkers
	}
	opts.NumWorkers = min(opts.NumWorkers, MaxWorkers, len(ids))
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalVideos:     len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]VideoResult, len(ids)),
		StartedAt:       time.Now().UTC(),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan videoJob, len(ids))
	results := make(chan videoJob, len(ids))

	for i, id := range ids {
		jobs <- videoJob{index: i, id: id}
	}
	close(jobs)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.fetchWorker(ctx, &wg, limiter, jobs, results, result.Results)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	e.sendProgress(prog, fetchVideosUpdate(0, len(ids)))

	completed := 0
	for job := range results {
		completed++
		res := result.Results[job.index]
		if res.Success {
			result.Successful++
			e.sendProgress(prog, videoFetchedUpdate(completed, len(ids), res.Title))
		} else {
			result.Failed++
			e.sendProgress(prog, videoFailedUpdate(completed, len(ids), res.VideoID, res.Error))
		}
	}

	export := &models.VideoExport{Title: opts.Title, ExportedAt: time.Now().UTC()}
	for _, res := range result.Results {
		if res.Success {
			export.Videos = append(export.Videos, res.video)
		}
	}

	e.sendProgress(prog, writeExportUpdate(opts.Format))
	files, err := e.writeExport(export, opts)
	if err != nil {
		return result, fmt.Errorf("failed to write export: %w", err)
	}
	result.Files = files
	result.FinishedAt = time.Now().UTC()

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// fetchWorker fetches videos from jobs. Each job gets exactly one entry in out.
func (e *LibraryEngine) fetchWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan videoJob,
	done chan<- videoJob,
	out []VideoResult,
) {
	defer wg.Done()

	for job := range jobs {
		out[job.index] = e.fetchOne(ctx, limiter, job.id)
		done <- job
	}
}

func (e *LibraryEngine) fetchOne(ctx context.Context, limiter *rate.Limiter, id string) VideoResult {
	res := VideoResult{VideoID: id}

	if err := limiter.Wait(ctx); err != nil {
		res.Error = err
		res.ErrorMessage = err.Error()
		return res
	}

	video, err := e.svc.GetVideo(ctx, id)
	if err != nil {
		res.Error = fmt.Errorf("failed to fetch video: %w", err)
		res.ErrorMessage = res.Error.Error()
		return res
	}

	e.cacheVideo(*video)

	res.Success = true
	res.Title = video.Title
	res.video = *video
	return res
}

func (e *LibraryEngine) writeExport(export *models.VideoExport, opts BulkExportOpts) ([]string, error) {
	if opts.Format == formatter.FormatMarkdown {
		var imageURL string
		if opts.Thumbnail != nil && len(export.Videos) > 0 {
			imageURL = opts.Thumbnail(export.Videos[0])
		}
		res, err := formatter.WriteMarkdownExport(export, opts.OutputDir, imageURL)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	}

	path := filepath.Join(opts.OutputDir, "videos"+formatter.Extension(opts.Format))
	if err := formatter.Write(export, opts.Format, path); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func normalizeFormat(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return formatter.FormatJSON, nil
	case "csv":
		return formatter.FormatCSV, nil
	case "md", "markdown":
		return formatter.FormatMarkdown, nil
	case "txt", "text":
		return formatter.FormatText, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidInput, format)
	}
}
