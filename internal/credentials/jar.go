package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// savedCookie is the persisted form of a cookie set by the API origin.
type savedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func (c savedCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// cookieKey identifies a cookie the way a browser does: same name on another path is another cookie.
func cookieKey(name, path string) string {
	return name + ";" + path
}

// Jar is an [http.CookieJar] that persists cookies set by one origin into a [Store].
//
// Cookies for other hosts are kept in memory only.
type Jar struct {
	mu     sync.Mutex
	inner  *cookiejar.Jar
	store  Store
	origin *url.URL
	saved  map[string]savedCookie
	logger *log.Logger
	now    func() time.Time
}

var _ http.CookieJar = (*Jar)(nil)

// NewJar creates a Jar for origin (the API base URL) and restores any cookies previously saved in store.
func NewJar(store Store, origin string, logger *log.Logger) (*Jar, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid cookie origin %q", origin)
	}

	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	j := &Jar{
		inner:  inner,
		store:  store,
		origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"},
		saved:  make(map[string]savedCookie),
		logger: logger,
		now:    time.Now,
	}

	if err := j.load(); err != nil {
		return nil, err
	}

	return j, nil
}

// Cookies implements [http.CookieJar].
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// SetCookies implements [http.CookieJar], writing cookies for the origin host through to the store.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)

	if !strings.EqualFold(u.Hostname(), j.origin.Hostname()) {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for _, c := range cookies {
		sc := savedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.MaxAge > 0 {
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if c.MaxAge < 0 || c.Value == "" || sc.expired(now) {
			delete(j.saved, cookieKey(c.Name, c.Path))
			continue
		}
		j.saved[cookieKey(c.Name, c.Path)] = sc
	}

	if err := j.persist(); err != nil && j.logger != nil {
		j.logger.Warn("failed to persist cookies", "error", err)
	}
}

// Clear forgets every cookie for the origin, in memory and in the store.
func (j *Jar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	expired := make([]*http.Cookie, 0, len(j.saved))
	for _, sc := range j.saved {
		expired = append(expired, &http.Cookie{Name: sc.Name, Path: sc.Path, MaxAge: -1})
	}
	j.inner.SetCookies(j.origin, expired)
	j.saved = make(map[string]savedCookie)

	return j.store.Delete(CookiesKey)
}

// Has reports whether a live cookie named name is held for the origin.
func (j *Jar) Has(name string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	for _, sc := range j.saved {
		if sc.Name == name && !sc.expired(now) {
			return true
		}
	}
	return false
}

// Import adds cookies captured elsewhere (for example from a browser cURL command) for the origin.
func (j *Jar) Import(cookies []*http.Cookie) {
	j.SetCookies(j.origin, cookies)
}

func (j *Jar) load() error {
	raw, err := j.store.Get(CookiesKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	var saved []savedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return fmt.Errorf("failed to parse saved cookies: %w", err)
	}

	now := j.now()
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		if sc.expired(now) {
			continue
		}
		j.saved[cookieKey(sc.Name, sc.Path)] = sc
		cookies = append(cookies, &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		})
	}
	j.inner.SetCookies(j.origin, cookies)

	return nil
}

// persist must be called with j.mu held.
func (j *Jar) persist() error {
	if len(j.saved) == 0 {
		return j.store.Delete(CookiesKey)
	}

	saved := make([]savedCookie, 0, len(j.saved))
	for _, sc := range j.saved {
		saved = append(saved, sc)
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	return j.store.Set(CookiesKey, string(data))
}
