package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/desertthunder/stx/internal/credentials"
	"github.com/desertthunder/stx/internal/shared"
	tu "github.com/desertthunder/stx/internal/testing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server, opts Options) (*Client, *credentials.Slot) {
	t.Helper()

	slot := credentials.NewSlot(credentials.NewMemoryStore())
	opts.BaseURL = srv.URL + "/api/v1"
	opts.Tokens = slot
	if opts.HTTPClient == nil {
		opts.HTTPClient = srv.Client()
	}
	opts.Logger = shared.NewLogger(io.Discard)

	return New(opts), slot
}

func TestClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			c := New(Options{BaseURL: "http://example.com/api/v1/"})

			assert.Equal(t, "http://example.com/api/v1", c.BaseURL())
			assert.Equal(t, DefaultRefreshTimeout, c.refreshTimeout)
			assert.Equal(t, DefaultReauthDelay, c.reauthDelay)
			assert.NotNil(t, c.httpClient.Jar, "default client should carry a cookie jar")
			for _, p := range DefaultAuthPaths {
				assert.True(t, c.isAuthPath(p), "%s should be an auth path", p)
			}
		})

		t.Run("Refresh Path Is Always An Auth Path", func(t *testing.T) {
			c := New(Options{BaseURL: "http://example.com", RefreshPath: "/session/renew", AuthPaths: []string{"/session/new"}})

			assert.True(t, c.isAuthPath("/session/renew"))
			assert.True(t, c.isAuthPath("session/new/"))
			assert.True(t, c.isAuthPath("/session/new?next=/videos"))
			assert.False(t, c.isAuthPath("/auth/login"))
		})

		t.Run("Absolute Auth URL", func(t *testing.T) {
			c := New(Options{BaseURL: "http://example.com/api/v1"})
			assert.True(t, c.isAuthPath("http://example.com/api/v1/auth/login"))
		})
	})

	t.Run("Do", func(t *testing.T) {
		t.Run("Attaches Stored Credential", func(t *testing.T) {
			var got http.Header
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Clone()
				assert.Equal(t, "/api/v1/videos", r.URL.Path)
				assert.Equal(t, "2", r.URL.Query().Get("page"))
				tu.WriteEnvelope(w, http.StatusOK, "", []any{})
			}))
			defer srv.Close()

			c, slot := newTestClient(t, srv, Options{})
			require.NoError(t, slot.SetToken("T1"))

			resp, err := c.Get(context.Background(), "/videos", url.Values{"page": {"2"}})
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, resp.IsJSON)
			assert.Equal(t, "Bearer T1", got.Get("Authorization"))
			assert.NotEmpty(t, got.Get("X-Request-ID"))
		})

		t.Run("No Credential No Header", func(t *testing.T) {
			var auth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv, Options{})
			_, err := c.Get(context.Background(), "/videos", nil)
			require.NoError(t, err)
			assert.Empty(t, auth)
		})

		t.Run("Sends JSON Body", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.JSONEq(t, `{"content":"nice"}`, string(body))
				tu.WriteEnvelope(w, http.StatusCreated, "created", map[string]string{"id": "c1"})
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv, Options{})
			resp, err := c.PostJSON(context.Background(), "/comments/v1", map[string]string{"content": "nice"})
			require.NoError(t, err)

			var out struct {
				ID string `json:"id"`
			}
			require.NoError(t, resp.Decode(&out))
			assert.Equal(t, "c1", out.ID)
			assert.Equal(t, "created", resp.Message())
		})

		t.Run("Business Errors Pass Through", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tu.WriteEnvelope(w, http.StatusNotFound, "video not found", nil)
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv, Options{})
			resp, err := c.Get(context.Background(), "/videos/missing", nil)
			require.NoError(t, err)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			err = resp.Err()
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, "video not found", statusErr.Message)
			assert.ErrorIs(t, err, shared.ErrNotFound)
			assert.ErrorIs(t, err, shared.ErrAPIRequest)
			assert.NotErrorIs(t, err, shared.ErrNotAuthenticated)
		})

		t.Run("Forbidden Does Not Trigger Renewal", func(t *testing.T) {
			hits := tu.NewHitCounter()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Record(r)
				w.WriteHeader(http.StatusForbidden)
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv, Options{})
			resp, err := c.Delete(context.Background(), "/videos/v1")
			require.NoError(t, err)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, 0, hits.Count("/api/v1/auth/refresh"))
		})

		t.Run("Transport Error", func(t *testing.T) {
			c := New(Options{
				BaseURL:    "http://stx.invalid",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
				Logger:     shared.NewLogger(io.Discard),
			})

			_, err := c.Get(context.Background(), "/videos", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "connection refused")
		})

		t.Run("Body Read Error", func(t *testing.T) {
			c := New(Options{
				BaseURL: "http://stx.invalid",
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil)},
				Logger: shared.NewLogger(io.Discard),
			})

			_, err := c.Get(context.Background(), "/videos", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to read response")
		})

		t.Run("Nil Request", func(t *testing.T) {
			c := New(Options{BaseURL: "http://stx.invalid", Logger: shared.NewLogger(io.Discard)})
			_, err := c.Do(context.Background(), nil)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})

		t.Run("Records Outcomes", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			metrics := NewMetrics(prometheus.NewRegistry())
			c, _ := newTestClient(t, srv, Options{Metrics: metrics})

			for range 3 {
				_, err := c.Get(context.Background(), "/videos", nil)
				require.NoError(t, err)
			}
			assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Requests.WithLabelValues("ok")))
		})
	})

	t.Run("URL", func(t *testing.T) {
		c := New(Options{BaseURL: "http://example.com/api/v1"})

		tests := []struct {
			name  string
			path  string
			query url.Values
			want  string
		}{
			{"Leading Slash", "/videos", nil, "http://example.com/api/v1/videos"},
			{"No Leading Slash", "videos", nil, "http://example.com/api/v1/videos"},
			{"Query", "/videos", url.Values{"q": {"go"}}, "http://example.com/api/v1/videos?q=go"},
			{"Existing Query", "/videos?page=1", url.Values{"q": {"go"}}, "http://example.com/api/v1/videos?page=1&q=go"},
			{"Absolute", "https://cdn.example.com/a.jpg", nil, "https://cdn.example.com/a.jpg"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.want, c.url(tt.path, tt.query))
			})
		}
	})
}

func TestResponse(t *testing.T) {
	t.Run("Decode Without Envelope", func(t *testing.T) {
		resp := &Response{StatusCode: http.StatusOK, Body: []byte(`{"id":"v1"}`)}

		var out struct {
			ID string `json:"id"`
		}
		require.NoError(t, resp.Decode(&out))
		assert.Equal(t, "v1", out.ID)
	})

	t.Run("Decode Non-2xx", func(t *testing.T) {
		resp := &Response{StatusCode: http.StatusUnprocessableEntity, Body: []byte(`{"success":false,"message":"title is required"}`)}

		err := resp.Decode(&struct{}{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.EqualError(t, err, "API error 422: title is required")
	})

	t.Run("Decode Invalid JSON", func(t *testing.T) {
		resp := &Response{StatusCode: http.StatusOK, Body: []byte(`<html>`)}
		assert.ErrorIs(t, resp.Decode(&struct{}{}), shared.ErrAPIRequest)
	})

	t.Run("Status Error Without Message", func(t *testing.T) {
		err := (&Response{StatusCode: http.StatusBadGateway}).Err()
		assert.EqualError(t, err, "API error 502: Bad Gateway")
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"Envelope", `{"success":true,"data":{"accessToken":"T2"}}`, "T2"},
		{"Top Level", `{"accessToken":"T3"}`, "T3"},
		{"Snake Case", `{"access_token":"T4","token_type":"bearer"}`, "T4"},
		{"Envelope Wins", `{"data":{"accessToken":"A"},"accessToken":"B"}`, "A"},
		{"Non Object Data", `{"data":"x","accessToken":"B"}`, "B"},
		{"Missing", `{"success":true,"data":{}}`, ""},
		{"Not JSON", `ok`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractToken([]byte(tt.body)))
		})
	}
}
