package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

type devHarness struct {
	t    *testing.T
	api  *DevAPI
	srv  *httptest.Server
	http *http.Client
}

func newDevHarness(t *testing.T) *devHarness {
	t.Helper()

	api := NewDevAPI(DevAPIOptions{
		Secret:     "test-secret",
		BcryptCost: bcrypt.MinCost,
		Logger:     shared.NewLogger(io.Discard),
	})
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return &devHarness{t: t, api: api, srv: srv, http: &http.Client{Jar: jar}}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *devHarness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req, _ := http.NewRequest(method, h.srv.URL+APIPrefix+path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func (h *devHarness) signup(username string) models.Session {
	h.t.Helper()

	status, env := h.do(http.MethodPost, "/auth/signup", "", models.SignupInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
		FullName: strings.ToUpper(username),
	})
	if status != http.StatusCreated {
		h.t.Fatalf("signup failed with %d: %s", status, env.Message)
	}

	var session models.Session
	json.Unmarshal(env.Data, &session)
	return session
}

func TestDevAPIAuth(t *testing.T) {
	t.Run("Signup Issues Token And Refresh Cookie", func(t *testing.T) {
		h := newDevHarness(t)
		session := h.signup("alice")

		if session.AccessToken == "" {
			t.Fatal("expected access token")
		}

		status, env := h.do(http.MethodGet, "/auth/me", session.AccessToken, nil)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		var user models.User
		json.Unmarshal(env.Data, &user)
		if user.Username != "alice" {
			t.Errorf("expected alice, got %s", user.Username)
		}

		cookies := h.http.Jar.Cookies(mustParse(t, h.srv.URL+APIPrefix+"/auth/refresh"))
		if len(cookies) != 1 || cookies[0].Name != RefreshCookieName {
			t.Errorf("expected refresh cookie, got %v", cookies)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		h := newDevHarness(t)

		status, env := h.do(http.MethodPost, "/auth/signup", "", models.SignupInput{Username: "al", Email: "nope"})
		if status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", status)
		}
		if !strings.Contains(env.Message, "email must be a valid email") {
			t.Errorf("unexpected message %q", env.Message)
		}
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		h := newDevHarness(t)
		h.signup("alice")

		status, _ := h.do(http.MethodPost, "/auth/signup", "", models.SignupInput{
			Username: "alice2", Email: "alice@example.com", Password: "password123", FullName: "A",
		})
		if status != http.StatusConflict {
			t.Errorf("expected 409, got %d", status)
		}
	})

	t.Run("Login", func(t *testing.T) {
		h := newDevHarness(t)
		h.signup("alice")

		status, _ := h.do(http.MethodPost, "/auth/login", "", models.LoginInput{Email: "alice@example.com", Password: "wrong-password"})
		if status != http.StatusUnauthorized {
			t.Errorf("expected 401 for wrong password, got %d", status)
		}

		status, env := h.do(http.MethodPost, "/auth/login", "", models.LoginInput{Email: "ALICE@example.com", Password: "password123"})
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", status, env.Message)
		}
	})

	t.Run("Refresh Rotates Cookie", func(t *testing.T) {
		h := newDevHarness(t)
		session := h.signup("alice")
		refreshURL := mustParse(t, h.srv.URL+APIPrefix+"/auth/refresh")
		before := h.http.Jar.Cookies(refreshURL)[0].Value

		status, env := h.do(http.MethodPost, "/auth/refresh", "", nil)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}

		var out struct {
			AccessToken string `json:"accessToken"`
		}
		json.Unmarshal(env.Data, &out)
		if out.AccessToken == "" || out.AccessToken == session.AccessToken {
			t.Error("expected a new access token")
		}
		if after := h.http.Jar.Cookies(refreshURL)[0].Value; after == before {
			t.Error("expected refresh cookie to rotate")
		}
		if h.api.RefreshCalls() != 1 {
			t.Errorf("expected 1 refresh call, got %d", h.api.RefreshCalls())
		}
	})

	t.Run("Invalidated Access Token", func(t *testing.T) {
		h := newDevHarness(t)
		session := h.signup("alice")
		h.api.InvalidateAccessTokens()

		if status, _ := h.do(http.MethodGet, "/auth/me", session.AccessToken, nil); status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", status)
		}

		_, env := h.do(http.MethodPost, "/auth/refresh", "", nil)
		var out struct {
			AccessToken string `json:"accessToken"`
		}
		json.Unmarshal(env.Data, &out)

		if status, _ := h.do(http.MethodGet, "/auth/me", out.AccessToken, nil); status != http.StatusOK {
			t.Errorf("expected refreshed token to work, got %d", status)
		}
	})

	t.Run("Revoked Sessions Reject Refresh", func(t *testing.T) {
		h := newDevHarness(t)
		h.signup("alice")
		h.api.RevokeSessions()

		if status, _ := h.do(http.MethodPost, "/auth/refresh", "", nil); status != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", status)
		}
	})

	t.Run("Logout Ends Session", func(t *testing.T) {
		h := newDevHarness(t)
		h.signup("alice")

		if status, _ := h.do(http.MethodPost, "/auth/logout", "", nil); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if status, _ := h.do(http.MethodPost, "/auth/refresh", "", nil); status != http.StatusUnauthorized {
			t.Errorf("expected refresh after logout to fail, got %d", status)
		}
	})

	t.Run("Garbage Bearer On Public Route", func(t *testing.T) {
		h := newDevHarness(t)

		if status, _ := h.do(http.MethodGet, "/videos", "", nil); status != http.StatusOK {
			t.Errorf("expected anonymous listing, got %d", status)
		}
		if status, _ := h.do(http.MethodGet, "/videos", "garbage", nil); status != http.StatusUnauthorized {
			t.Errorf("expected 401 for bad token, got %d", status)
		}
	})
}

func TestDevAPIVideos(t *testing.T) {
	t.Run("Upload", func(t *testing.T) {
		h := newDevHarness(t)
		session := h.signup("alice")

		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		w.WriteField("title", "First Upload")
		w.WriteField("duration", "61")
		part, _ := w.CreateFormFile("videoFile", "clip.mp4")
		part.Write([]byte("not really a video"))
		w.Close()

		req, _ := http.NewRequest(http.MethodPost, h.srv.URL+APIPrefix+"/videos", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)

		resp, err := h.http.Do(req)
		if err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var env envelope
		json.NewDecoder(resp.Body).Decode(&env)
		var video models.Video
		json.Unmarshal(env.Data, &video)

		if video.Title != "First Upload" || video.Duration != 61 {
			t.Errorf("unexpected video %+v", video)
		}
		if !strings.HasSuffix(video.VideoURL, "/clip.mp4") {
			t.Errorf("unexpected video URL %s", video.VideoURL)
		}
	})

	t.Run("List Search And Paginate", func(t *testing.T) {
		h := newDevHarness(t)
		user, _ := h.api.SeedUser(models.SignupInput{Username: "bob", Email: "bob@example.com", Password: "password123", FullName: "Bob"})
		for _, title := range []string{"Go Basics", "Go Generics", "Cooking"} {
			h.api.SeedVideo(user.ID, models.VideoInput{Title: title})
		}

		_, env := h.do(http.MethodGet, "/videos?query=go&limit=1", "", nil)
		var page models.Page[models.Video]
		json.Unmarshal(env.Data, &page)

		if page.Total != 2 || page.TotalPages != 2 || len(page.Items) != 1 {
			t.Fatalf("unexpected page %+v", page)
		}
		if page.Items[0].Title != "Go Generics" {
			t.Errorf("expected newest first, got %s", page.Items[0].Title)
		}
		if !page.HasNext() {
			t.Error("expected a next page")
		}
	})

	t.Run("Like Notifies Owner", func(t *testing.T) {
		h := newDevHarness(t)
		owner := h.signup("alice")
		video, _ := h.api.SeedVideo(owner.User.ID, models.VideoInput{Title: "Liked"})
		fan := h.signup("bob")

		status, env := h.do(http.MethodPost, "/videos/"+video.ID+"/like", fan.AccessToken, nil)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		var state models.LikeState
		json.Unmarshal(env.Data, &state)
		if !state.Liked || state.Likes != 1 {
			t.Errorf("unexpected like state %+v", state)
		}

		_, env = h.do(http.MethodGet, "/notifications", owner.AccessToken, nil)
		var feed []models.Notification
		json.Unmarshal(env.Data, &feed)
		if len(feed) != 1 || feed[0].Type != models.NotificationLike {
			t.Errorf("expected a like notification, got %+v", feed)
		}

		_, env = h.do(http.MethodPost, "/videos/"+video.ID+"/like", fan.AccessToken, nil)
		json.Unmarshal(env.Data, &state)
		if state.Liked || state.Likes != 0 {
			t.Errorf("expected like to toggle off, got %+v", state)
		}
	})

	t.Run("Only Owner Deletes", func(t *testing.T) {
		h := newDevHarness(t)
		owner := h.signup("alice")
		video, _ := h.api.SeedVideo(owner.User.ID, models.VideoInput{Title: "Mine"})
		other := h.signup("bob")

		if status, _ := h.do(http.MethodDelete, "/videos/"+video.ID, other.AccessToken, nil); status != http.StatusForbidden {
			t.Errorf("expected 403, got %d", status)
		}
		if status, _ := h.do(http.MethodDelete, "/videos/"+video.ID, owner.AccessToken, nil); status != http.StatusOK {
			t.Errorf("expected 200, got %d", status)
		}
		if status, _ := h.do(http.MethodGet, "/videos/"+video.ID, "", nil); status != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", status)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		h := newDevHarness(t)
		h.do(http.MethodGet, "/videos", "", nil)

		resp, err := h.http.Get(h.srv.URL + "/metrics")
		if err != nil {
			t.Fatalf("metrics request failed: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "stx_devapi_requests_total") {
			t.Error("expected request counter in metrics output")
		}
	})
}
