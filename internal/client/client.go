package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/stx/internal/credentials"
	"github.com/desertthunder/stx/internal/shared"
	"golang.org/x/oauth2"
)

const (
	DefaultRefreshPath    = "/auth/refresh"
	DefaultTimeout        = 30 * time.Second
	DefaultRefreshTimeout = 15 * time.Second
	DefaultReauthDelay    = 500 * time.Millisecond
)

// DefaultAuthPaths are the endpoints never subject to renewal.
var DefaultAuthPaths = []string{"/auth/login", "/auth/signup", DefaultRefreshPath, "/auth/logout"}

// TokenStore holds the bearer credential. An empty string means no credential.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// Options configures a [Client]. Only BaseURL is required.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client // its Jar carries the refresh cookie
	Tokens         TokenStore
	Logger         *log.Logger
	RefreshPath    string
	AuthPaths      []string
	RefreshTimeout time.Duration
	ReauthDelay    time.Duration
	OnReauth       func(err error) // called ReauthDelay after a terminal renewal failure
	Metrics        *Metrics
}

// Client is the authenticated StreamTube API client. It is safe for concurrent use.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	tokens         TokenStore
	logger         *log.Logger
	refreshPath    string
	authPaths      map[string]struct{}
	refreshTimeout time.Duration
	reauthDelay    time.Duration
	onReauth       func(error)
	metrics        *Metrics
	renewal        renewal
}

// Request describes one API call. Path is relative to the API root.
//
// Body is kept as bytes so the request can be re-issued after a renewal.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	ID     string // sent as X-Request-ID; generated when empty
}

// Response represents a raw API response with status and body.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// New creates a Client, filling unset options with defaults.
func New(opts Options) *Client {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || opts.BaseURL == "" {
		base = &url.URL{Scheme: "http", Host: "localhost:8000", Path: "/api/v1"}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, _ := cookiejar.New(nil)
		httpClient = &http.Client{Timeout: DefaultTimeout, Jar: jar}
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = credentials.NewSlot(credentials.NewMemoryStore())
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	refreshPath := opts.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}

	authPaths := opts.AuthPaths
	if len(authPaths) == 0 {
		authPaths = DefaultAuthPaths
	}

	c := &Client{
		baseURL:        base,
		httpClient:     httpClient,
		tokens:         tokens,
		logger:         shared.WithLogger(logger, "component", "client"),
		refreshPath:    refreshPath,
		authPaths:      make(map[string]struct{}, len(authPaths)+1),
		refreshTimeout: opts.RefreshTimeout,
		reauthDelay:    opts.ReauthDelay,
		onReauth:       opts.OnReauth,
		metrics:        opts.Metrics,
	}

	if c.refreshTimeout <= 0 {
		c.refreshTimeout = DefaultRefreshTimeout
	}
	if c.reauthDelay <= 0 {
		c.reauthDelay = DefaultReauthDelay
	}

	for _, p := range authPaths {
		c.authPaths[c.route(p)] = struct{}{}
	}
	c.authPaths[c.route(refreshPath)] = struct{}{}

	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Tokens returns the credential store the client reads from.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// Do sends req with the stored credential attached.
//
// Any HTTP status is returned as a [Response] with a nil error. Errors are
// transport failures, context cancellation and failed renewals ([RenewalError]).
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", shared.ErrInvalidInput)
	}

	cl := &call{req: req, id: req.ID}
	if cl.id == "" {
		cl.id = shared.GenerateID()
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}

	resp, err := c.send(ctx, cl, token)
	if err != nil {
		c.metrics.request("error")
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || cl.retried {
		c.metrics.request("ok")
		return resp, nil
	}

	cl.retried = true
	if c.isAuthPath(req.Path) {
		c.metrics.request("auth_rejected")
		return resp, nil
	}

	return c.recover(ctx, cl, token)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a raw JSON body.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// PostJSON marshals v and posts it.
func (c *Client) PostJSON(ctx context.Context, path string, v any) (*Response, error) {
	body, err := marshalBody(v)
	if err != nil {
		return nil, err
	}
	return c.Post(ctx, path, body)
}

// Patch performs a PATCH request, marshalling v when it is not nil.
func (c *Client) Patch(ctx context.Context, path string, v any) (*Response, error) {
	body, err := marshalBody(v)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func marshalBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode body: %v", shared.ErrInvalidInput, err)
	}
	return body, nil
}

// call is one Do invocation. The retried flag belongs to the invocation,
// so two callers sharing a *Request never consume each other's retry.
type call struct {
	req     *Request
	id      string
	retried bool
}

func (c *Client) send(ctx context.Context, cl *call, token string) (*Response, error) {
	method := cl.req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(cl.req.Body) > 0 {
		body = bytes.NewReader(cl.req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(cl.req.Path, cl.req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range cl.req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", cl.id)

	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}

	c.logger.Debug("sending request", "method", method, "path", cl.req.Path, "id", cl.id, "retry", cl.retried)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return readResponse(resp)
}

func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// url resolves path against the API root. Absolute URLs pass through.
func (c *Client) url(path string, query url.Values) string {
	var full string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		full = path
	} else {
		full = strings.TrimRight(c.baseURL.String(), "/") + "/" + strings.TrimLeft(path, "/")
	}

	if len(query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + query.Encode()
	}
	return full
}

// route normalizes path to the form used for auth path matching:
// leading slash, no query, no trailing slash, API root prefix removed.
func (c *Client) route(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
		if u.IsAbs() {
			path = strings.TrimPrefix(path, strings.TrimRight(c.baseURL.Path, "/"))
		}
	}
	path = "/" + strings.Trim(path, "/")
	return path
}

func (c *Client) isAuthPath(path string) bool {
	_, ok := c.authPaths[c.route(path)]
	return ok
}

// Err converts a non-2xx response into a [*StatusError].
func (r *Response) Err() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}
	return newStatusError(r)
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.Err() == nil
}

// Decode checks the status and unmarshals the envelope's data field into v.
//
// Bodies without a "data" field are decoded whole.
func (r *Response) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if v == nil || len(r.Body) == 0 {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err == nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			return fmt.Errorf("%w: failed to decode response data: %v", shared.ErrAPIRequest, err)
		}
		return nil
	}

	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Message returns the envelope's message field, if any.
func (r *Response) Message() string {
	return envelopeMessage(r.Body)
}
