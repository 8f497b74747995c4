package credentials

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", raw, err)
	}
	return u
}

func TestJar(t *testing.T) {
	const origin = "http://127.0.0.1:8000/api/v1"

	t.Run("Persists Origin Cookies", func(t *testing.T) {
		store := NewMemoryStore()
		jar, err := NewJar(store, origin, nil)
		if err != nil {
			t.Fatalf("NewJar() error = %v", err)
		}

		jar.SetCookies(mustURL(t, origin+"/auth/login"), []*http.Cookie{
			{Name: "refreshToken", Value: "r1", Path: "/api/v1/auth", HttpOnly: true, MaxAge: 3600},
		})

		if !jar.Has("refreshToken") {
			t.Error("expected jar to hold refreshToken")
		}

		if _, err := store.Get(CookiesKey); err != nil {
			t.Fatalf("expected cookies to be persisted: %v", err)
		}

		restored, err := NewJar(store, origin, nil)
		if err != nil {
			t.Fatalf("NewJar() error = %v", err)
		}

		cookies := restored.Cookies(mustURL(t, origin+"/auth/refresh"))
		if len(cookies) != 1 || cookies[0].Value != "r1" {
			t.Errorf("expected restored refresh cookie, got %v", cookies)
		}
	})

	t.Run("Same Name On Two Paths", func(t *testing.T) {
		store := NewMemoryStore()
		jar, _ := NewJar(store, origin, nil)
		u := mustURL(t, origin+"/auth/login")

		jar.SetCookies(u, []*http.Cookie{
			{Name: "refreshToken", Value: "auth", Path: "/api/v1/auth"},
			{Name: "refreshToken", Value: "admin", Path: "/api/v1/admin"},
		})

		restored, err := NewJar(store, origin, nil)
		if err != nil {
			t.Fatalf("NewJar() error = %v", err)
		}
		if c := restored.Cookies(mustURL(t, origin+"/auth/refresh")); len(c) != 1 || c[0].Value != "auth" {
			t.Errorf("expected auth path cookie, got %v", c)
		}
		if c := restored.Cookies(mustURL(t, origin+"/admin/users")); len(c) != 1 || c[0].Value != "admin" {
			t.Errorf("expected admin path cookie, got %v", c)
		}

		restored.SetCookies(u, []*http.Cookie{{Name: "refreshToken", Path: "/api/v1/admin", MaxAge: -1}})
		if !restored.Has("refreshToken") {
			t.Error("removing one path should keep the other")
		}

		again, _ := NewJar(store, origin, nil)
		if c := again.Cookies(mustURL(t, origin+"/auth/refresh")); len(c) != 1 || c[0].Value != "auth" {
			t.Errorf("expected auth path cookie to survive, got %v", c)
		}
	})

	t.Run("Ignores Other Hosts", func(t *testing.T) {
		store := NewMemoryStore()
		jar, _ := NewJar(store, origin, nil)

		jar.SetCookies(mustURL(t, "http://cdn.example.com/"), []*http.Cookie{{Name: "cdn", Value: "1"}})

		if _, err := store.Get(CookiesKey); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected nothing persisted for foreign host, got %v", err)
		}
		if len(jar.Cookies(mustURL(t, "http://cdn.example.com/"))) != 1 {
			t.Error("foreign cookies should still be kept in memory")
		}
	})

	t.Run("Deletion Cookie Removes Entry", func(t *testing.T) {
		store := NewMemoryStore()
		jar, _ := NewJar(store, origin, nil)
		u := mustURL(t, origin+"/auth/logout")

		jar.SetCookies(u, []*http.Cookie{{Name: "refreshToken", Value: "r1", Path: "/"}})
		jar.SetCookies(u, []*http.Cookie{{Name: "refreshToken", Value: "", Path: "/", MaxAge: -1}})

		if jar.Has("refreshToken") {
			t.Error("expected refreshToken to be removed")
		}
		if _, err := store.Get(CookiesKey); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected cookie slot to be deleted, got %v", err)
		}
	})

	t.Run("Expired Cookies Are Not Restored", func(t *testing.T) {
		store := NewMemoryStore()
		store.Set(CookiesKey, `[{"name":"refreshToken","value":"old","path":"/","expires":"2001-01-01T00:00:00Z"}]`)

		jar, err := NewJar(store, origin, nil)
		if err != nil {
			t.Fatalf("NewJar() error = %v", err)
		}
		if jar.Has("refreshToken") {
			t.Error("expired cookie should not be restored")
		}
	})

	t.Run("Import And Clear", func(t *testing.T) {
		store := NewMemoryStore()
		jar, _ := NewJar(store, origin, nil)
		jar.now = func() time.Time { return time.Now() }

		jar.Import([]*http.Cookie{{Name: "refreshToken", Value: "from-browser"}})
		if !jar.Has("refreshToken") {
			t.Fatal("expected imported cookie")
		}

		if err := jar.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if jar.Has("refreshToken") {
			t.Error("expected cookie to be cleared")
		}
		if len(jar.Cookies(mustURL(t, origin))) != 0 {
			t.Error("expected inner jar to be cleared")
		}
	})

	t.Run("Invalid Origin", func(t *testing.T) {
		if _, err := NewJar(NewMemoryStore(), "not a url", nil); err == nil {
			t.Error("expected error for invalid origin")
		}
	})

	t.Run("Corrupt Saved Cookies", func(t *testing.T) {
		store := NewMemoryStore()
		store.Set(CookiesKey, "{not json")

		if _, err := NewJar(store, origin, nil); err == nil {
			t.Error("expected error for corrupt cookie slot")
		}
	})
}
