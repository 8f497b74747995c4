package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"
)

const (
	APIPrefix         = "/api/v1"
	RefreshCookieName = "refreshToken"
)

// DevAPIOptions configures a [DevAPI].
type DevAPIOptions struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
	Logger     *log.Logger
	Registry   *prometheus.Registry // /metrics source; a private registry when nil
}

// DevAPI is an in-memory StreamTube backend for local development and tests.
//
// Access tokens are HS256 JWTs. The refresh credential is an opaque, rotating
// token in an HTTP-only cookie scoped to the auth routes.
type DevAPI struct {
	opts      DevAPIOptions
	router    *BasicRouter
	validate  *validator.Validate
	logger    *log.Logger
	requests  *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	refreshN  atomic.Int64

	mu            sync.RWMutex
	generation    int64
	users         map[string]*devUser
	usernames     map[string]string
	emails        map[string]string
	sessions      map[string]devSession
	videos        map[string]*models.Video
	videoOrder    []string
	comments      map[string]*models.Comment
	commentOrder  []string
	likes         map[string]map[string]bool
	subscribers   map[string]map[string]bool
	history       map[string][]string
	watchLater    map[string][]string
	notifications map[string][]*models.Notification
}

type devUser struct {
	models.User
	hash []byte
}

type devSession struct {
	userID  string
	expires time.Time
}

type accessClaims struct {
	Generation int64 `json:"gen"`
	jwt.RegisteredClaims
}

// NewDevAPI creates a DevAPI with every route registered.
func NewDevAPI(opts DevAPIOptions) *DevAPI {
	if opts.Secret == "" {
		opts.Secret = "change-me"
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 10 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(opts.Registry)

	d := &DevAPI{
		opts:     opts,
		router:   NewBasicRouter(),
		validate: validator.New(),
		logger:   opts.Logger.WithPrefix("devapi"),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stx_devapi_requests_total",
			Help: "Requests served by the development API",
		}, []string{"method", "status"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stx_devapi_refreshes_total",
			Help: "Refresh endpoint calls, by result",
		}, []string{"result"}),
		users:         make(map[string]*devUser),
		usernames:     make(map[string]string),
		emails:        make(map[string]string),
		sessions:      make(map[string]devSession),
		videos:        make(map[string]*models.Video),
		comments:      make(map[string]*models.Comment),
		likes:         make(map[string]map[string]bool),
		subscribers:   make(map[string]map[string]bool),
		history:       make(map[string][]string),
		watchLater:    make(map[string][]string),
		notifications: make(map[string][]*models.Notification),
	}

	d.routes()
	return d
}

func (d *DevAPI) routes() {
	r := d.router
	r.Use(Recover(d.logger), Logging(d.logger), Instrument(d.requests))

	r.HandleFunc(http.MethodPost, APIPrefix+"/auth/signup", d.signup)
	r.HandleFunc(http.MethodPost, APIPrefix+"/auth/login", d.login)
	r.HandleFunc(http.MethodPost, APIPrefix+"/auth/logout", d.logout)
	r.HandleFunc(http.MethodPost, APIPrefix+"/auth/refresh", d.refresh)
	r.HandleFunc(http.MethodGet, APIPrefix+"/auth/me", d.requireAuth(d.me))

	r.HandleFunc(http.MethodGet, APIPrefix+"/videos", d.optionalAuth(d.listVideos))
	r.HandleFunc(http.MethodPost, APIPrefix+"/videos", d.requireAuth(d.uploadVideo))
	r.HandleFunc(http.MethodGet, APIPrefix+"/videos/{id}", d.optionalAuth(d.getVideo))
	r.HandleFunc(http.MethodDelete, APIPrefix+"/videos/{id}", d.requireAuth(d.deleteVideo))
	r.HandleFunc(http.MethodPost, APIPrefix+"/videos/{id}/like", d.requireAuth(d.toggleLike))

	r.HandleFunc(http.MethodGet, APIPrefix+"/videos/{id}/comments", d.optionalAuth(d.listComments))
	r.HandleFunc(http.MethodPost, APIPrefix+"/videos/{id}/comments", d.requireAuth(d.addComment))
	r.HandleFunc(http.MethodDelete, APIPrefix+"/comments/{id}", d.requireAuth(d.deleteComment))

	r.HandleFunc(http.MethodGet, APIPrefix+"/channels/{username}", d.optionalAuth(d.getChannel))
	r.HandleFunc(http.MethodPost, APIPrefix+"/channels/{id}/subscribe", d.requireAuth(d.toggleSubscription))
	r.HandleFunc(http.MethodGet, APIPrefix+"/subscriptions", d.requireAuth(d.listSubscriptions))

	r.HandleFunc(http.MethodGet, APIPrefix+"/library/history", d.requireAuth(d.getHistory))
	r.HandleFunc(http.MethodDelete, APIPrefix+"/library/history", d.requireAuth(d.clearHistory))
	r.HandleFunc(http.MethodGet, APIPrefix+"/library/watch-later", d.requireAuth(d.getWatchLater))
	r.HandleFunc(http.MethodPost, APIPrefix+"/library/watch-later/{id}", d.requireAuth(d.toggleWatchLater))

	r.HandleFunc(http.MethodGet, APIPrefix+"/notifications", d.requireAuth(d.listNotifications))
	r.HandleFunc(http.MethodPatch, APIPrefix+"/notifications/{id}/read", d.requireAuth(d.markRead))
	r.HandleFunc(http.MethodPatch, APIPrefix+"/notifications/read-all", d.requireAuth(d.markAllRead))

	r.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(d.opts.Registry, promhttp.HandlerOpts{}))
}

// ServeHTTP implements [http.Handler].
func (d *DevAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.router.ServeHTTP(w, r)
}

// InvalidateAccessTokens makes every access token issued so far fail with 401.
// Refresh cookies stay valid.
func (d *DevAPI) InvalidateAccessTokens() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
}

// RevokeSessions drops every refresh session, so the next refresh is rejected.
func (d *DevAPI) RevokeSessions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = make(map[string]devSession)
}

// RefreshCalls reports how many times the refresh endpoint was hit.
func (d *DevAPI) RefreshCalls() int {
	return int(d.refreshN.Load())
}

// SeedUser creates an account directly.
func (d *DevAPI) SeedUser(input models.SignupInput) (models.User, error) {
	if err := d.validate.Struct(input); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	user, status, err := d.createUser(input)
	if err != nil {
		return models.User{}, fmt.Errorf("seed user (%d): %w", status, err)
	}
	return user, nil
}

// SeedVideo publishes a video owned by ownerID.
func (d *DevAPI) SeedVideo(ownerID string, input models.VideoInput) (models.Video, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[ownerID]; !ok {
		return models.Video{}, fmt.Errorf("%w: unknown owner %s", shared.ErrNotFound, ownerID)
	}
	return *d.insertVideoLocked(ownerID, input, "seed.mp4"), nil
}

// writeEnvelope writes {"success", "message", "data"}.
func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": status < 400,
		"message": message,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, message, nil)
}

// decode reads a JSON body into payload and validates it.
func (d *DevAPI) decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := d.validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusUnprocessableEntity, validationMessage(verrs))
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}

	return true
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "email":
			parts = append(parts, field+" must be a valid email")
		case "min", "max":
			parts = append(parts, fmt.Sprintf("%s must have %s length %s", field, fe.Tag(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, min(limit, 50)
}

func paginate[T any](items []T, page, limit int) models.Page[T] {
	total := len(items)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	return models.Page[T]{
		Items:      append([]T{}, items[start:end]...),
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
}
