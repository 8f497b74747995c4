package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/services"
	"github.com/desertthunder/stx/internal/shared"
)

// VideoCacher persists fetched videos locally.
type VideoCacher interface {
	CacheVideo(video models.Video) error
}

// Engine defines the long-running library operations.
type Engine interface {
	// BulkExport fetches videos by ID concurrently and writes them through the formatter.
	BulkExport(ctx context.Context, progress chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error)

	// Dump fetches the signed-in user's profile and library in parallel.
	Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error)
}

// EndpointResult records a failed fetch during [LibraryEngine.Dump].
type EndpointResult struct {
	Endpoint string `json:"endpoint"`
	Error    error  `json:"-"`
	Message  string `json:"error"`
}

// DumpResult contains everything fetched by [LibraryEngine.Dump].
type DumpResult struct {
	Profile       *models.User          `json:"profile,omitempty"`
	History       []models.Video        `json:"history,omitempty"`
	WatchLater    []models.Video        `json:"watchLater,omitempty"`
	Subscriptions []models.Channel      `json:"subscriptions,omitempty"`
	Notifications []models.Notification `json:"notifications,omitempty"`
	Errors        []EndpointResult      `json:"errors,omitempty"`
}

type endpointOperation struct {
	name    string
	phase   Phase
	message string
	fetch   func(ctx context.Context) error
}

// LibraryEngine implements [Engine] on top of a [services.Service].
type LibraryEngine struct {
	svc    services.Service
	cache  VideoCacher
	logger *log.Logger
}

// NewLibraryEngine creates a LibraryEngine. cache may be nil.
func NewLibraryEngine(svc services.Service, cache VideoCacher, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryEngine{svc: svc, cache: cache, logger: logger.WithPrefix("tasks")}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// cacheVideo stores v when a cache is configured. Failures are logged and otherwise ignored.
func (e *LibraryEngine) cacheVideo(v models.Video) {
	if e.cache == nil {
		return
	}
	if err := e.cache.CacheVideo(v); err != nil {
		e.logger.Warn("failed to cache video", "id", v.ID, "error", err)
	}
}

// Dump fetches the profile, history, watch-later list, subscriptions and notifications concurrently.
//
// Each failed endpoint is recorded in [DumpResult.Errors]. An error is returned only when every endpoint failed.
func (e *LibraryEngine) Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	result := &DumpResult{}
	endpoints := []endpointOperation{
		{name: "profile", phase: FetchProfile, message: "Fetched profile", fetch: func(ctx context.Context) (err error) {
			result.Profile, err = e.svc.Me(ctx)
			return err
		}},
		{name: "history", phase: FetchHistory, message: "Fetched watch history", fetch: func(ctx context.Context) (err error) {
			result.History, err = e.svc.History(ctx)
			return err
		}},
		{name: "watch_later", phase: FetchWatchLater, message: "Fetched watch later", fetch: func(ctx context.Context) (err error) {
			result.WatchLater, err = e.svc.WatchLater(ctx)
			return err
		}},
		{name: "subscriptions", phase: FetchSubscriptions, message: "Fetched subscriptions", fetch: func(ctx context.Context) (err error) {
			result.Subscriptions, err = e.svc.ListSubscriptions(ctx)
			return err
		}},
		{name: "notifications", phase: FetchNotifications, message: "Fetched notifications", fetch: func(ctx context.Context) (err error) {
			result.Notifications, err = e.svc.ListNotifications(ctx)
			return err
		}},
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		errs      []error
	)

	total := len(endpoints)
	for _, op := range endpoints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := op.fetch(ctx)

			mu.Lock()
			defer mu.Unlock()

			completed++
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", op.name, err))
				result.Errors = append(result.Errors, EndpointResult{Endpoint: op.name, Error: err, Message: err.Error()})
				e.sendProgress(progress, endpointFailedUpdate(op, completed, total, err))
				return
			}
			e.sendProgress(progress, endpointUpdate(op, completed, total))
		}()
	}
	wg.Wait()

	if len(errs) == total {
		return result, errors.Join(errs...)
	}
	return result, nil
}

// WriteDump saves result as indented JSON.
func WriteDump(result *DumpResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dump: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dump: %w", err)
	}
	return nil
}
