package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// SignInResult contains the credential delivered to the local callback.
type SignInResult struct {
	Token *oauth2.Token
	err   error
}

func (s *SignInResult) Error() error {
	return s.err
}

// SignInHandler receives the browser sign-in redirect.
//
// The web app redirects to /callback?state=...&token=...[&refresh_token=...][&expires_in=...].
// Only the first callback is processed.
type SignInHandler struct {
	state       string
	resultChan  chan SignInResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewSignInHandler creates a handler expecting the given state token.
// The state token should be cryptographically random for CSRF protection.
func NewSignInHandler(state string) *SignInHandler {
	return &SignInHandler{
		state:      state,
		resultChan: make(chan SignInResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SignInHandler) Routes() []string {
	return []string{"/callback"}
}

// SignInURL builds the web app sign-in URL that redirects back to callback.
func SignInURL(signIn, callback, state string) (string, error) {
	u, err := url.Parse(signIn)
	if err != nil {
		return "", fmt.Errorf("invalid sign-in URL: %w", err)
	}
	q := u.Query()
	q.Set("redirect_uri", callback)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ServeHTTP validates the state parameter and sends the delivered token through the result channel.
func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()

	if q.Get("state") != h.state {
		h.Send(SignInResult{err: fmt.Errorf("invalid state parameter")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	access := q.Get("token")
	if access == "" {
		access = q.Get("access_token")
	}
	if access == "" {
		err := fmt.Errorf("sign-in failed: %s", q.Get("error"))
		h.Send(SignInResult{err: err})
		http.Error(w, "Sign-in failed", http.StatusBadRequest)
		return
	}

	token := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: q.Get("refresh_token"),
	}
	if secs, err := strconv.Atoi(q.Get("expires_in")); err == nil && secs > 0 {
		token.Expiry = time.Now().Add(time.Duration(secs) * time.Second)
	}

	h.Send(SignInResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Signed in to StreamTube</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0f0f0f; }
        .container { text-align: center; background: #212121; padding: 2rem; border-radius: 8px; }
        h1 { color: #ff4e45; margin: 0 0 1rem 0; }
        p { color: #aaa; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Signed in</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the result through the channel (only once).
func (h *SignInHandler) Send(result SignInResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel. It receives exactly one result and is then closed.
func (h *SignInHandler) Result() <-chan SignInResult {
	return h.resultChan
}
