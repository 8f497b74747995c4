package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stx/internal/client"
	"github.com/desertthunder/stx/internal/credentials"
	"github.com/desertthunder/stx/internal/repositories"
	"github.com/desertthunder/stx/internal/services"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/desertthunder/stx/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, credential store and API client are opened on first use so that commands such as
// `setup config` work without a reachable backend.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	registry   *prometheus.Registry

	mu     sync.Mutex
	db     *sql.DB
	store  credentials.Store
	slot   *credentials.Slot
	jar    *credentials.Jar
	svc    services.Service
	reauth chan error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Registry   *prometheus.Registry
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		registry:   opts.Registry,
		reauth:     make(chan error, 1),
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, apiCommand, videosCommand, channelCommand, libraryCommand,
		notificationsCommand, exportCommand, cacheCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens the configured SQLite database once.
func (r *Runner) database() (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

// credentials returns the persistent credential slot and cookie jar.
func (r *Runner) credentials() (*credentials.Slot, *credentials.Jar, error) {
	db, err := r.database()
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slot != nil {
		return r.slot, r.jar, nil
	}

	store := credentials.NewSQLiteStore(db)
	jar, err := credentials.NewJar(store, r.config.API.BaseURL, r.logger)
	if err != nil {
		return nil, nil, err
	}

	r.store = store
	r.slot = credentials.NewSlot(store)
	r.jar = jar
	return r.slot, r.jar, nil
}

// service builds the StreamTube service on the authenticated client.
func (r *Runner) service() (services.Service, error) {
	r.mu.Lock()
	svc := r.svc
	r.mu.Unlock()
	if svc != nil {
		return svc, nil
	}

	slot, jar, err := r.credentials()
	if err != nil {
		return nil, err
	}

	api := r.config.API
	c := client.New(client.Options{
		BaseURL:        api.BaseURL,
		HTTPClient:     &http.Client{Jar: jar, Timeout: api.Timeout},
		Tokens:         slot,
		Logger:         r.logger,
		RefreshPath:    api.RefreshPath,
		AuthPaths:      api.AuthPaths,
		RefreshTimeout: api.RefreshTimeout,
		ReauthDelay:    api.ReauthDelay,
		OnReauth:       r.onReauth,
		Metrics:        client.NewMetrics(r.registry),
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.svc == nil {
		r.svc = services.NewStreamTube(c, jar, r.logger)
	}
	return r.svc, nil
}

// onReauth forwards a terminal renewal failure to whoever is listening (the TUI) without blocking.
func (r *Runner) onReauth(err error) {
	r.logger.Warn("session rejected, sign in again", "error", err)
	select {
	case r.reauth <- err:
	default:
	}
}

func (r *Runner) videoCache() (*repositories.VideoRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewVideoRepository(db), nil
}

func (r *Runner) engine(withCache bool) (*tasks.LibraryEngine, error) {
	svc, err := r.service()
	if err != nil {
		return nil, err
	}

	var cache tasks.VideoCacher
	if withCache {
		repo, err := r.videoCache()
		if err != nil {
			return nil, err
		}
		cache = repositories.NewVideoCacheAdapter(repo)
	}
	return tasks.NewLibraryEngine(svc, cache, r.logger), nil
}

// Close releases the database handle.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
