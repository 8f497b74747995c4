package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/stx/internal/shared"
)

// renewal is the single-flight state shared by every request of a [Client].
//
// inFlight and waiters change only under mu. Waiters exist only while
// inFlight is set, and are drained once when the renewal settles.
type renewal struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan renewalResult
}

type renewalResult struct {
	token string
	err   error
}

// pending reports how many callers are waiting on the in-flight renewal.
func (r *renewal) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

// Renew renews the access token now. A renewal already in flight is joined
// rather than repeated. On a terminal failure the credential is cleared and
// the reauth hook is scheduled, exactly as for a renewal triggered by a 401.
func (c *Client) Renew(ctx context.Context) (string, error) {
	c.renewal.mu.Lock()
	if c.renewal.inFlight {
		res, err := c.await(ctx)
		if err != nil {
			return "", err
		}
		return res.token, res.err
	}
	return c.lead(ctx)
}

// recover handles a 401 for a request sent with sentWith.
func (c *Client) recover(ctx context.Context, cl *call, sentWith string) (*Response, error) {
	c.renewal.mu.Lock()

	if c.renewal.inFlight {
		c.logger.Debug("waiting on renewal", "id", cl.id)
		res, err := c.await(ctx)
		if err != nil {
			c.metrics.request("canceled")
			return nil, err
		}
		if res.err != nil {
			c.metrics.request("renewal_failed")
			return nil, res.err
		}
		return c.retry(ctx, cl, res.token)
	}

	// Storage already moved past the credential this request carried.
	if current, err := c.tokens.Token(); err == nil && current != "" && current != sentWith {
		c.renewal.mu.Unlock()
		c.logger.Debug("credential replaced since send, retrying", "id", cl.id)
		return c.retry(ctx, cl, current)
	}

	token, err := c.lead(ctx)
	if err != nil {
		c.metrics.request("renewal_failed")
		return nil, err
	}
	return c.retry(ctx, cl, token)
}

// await queues the caller behind the in-flight renewal. It must be called
// with mu held and releases it. The error is ctx's when the caller gives up.
func (c *Client) await(ctx context.Context) (renewalResult, error) {
	wait := make(chan renewalResult, 1)
	c.renewal.waiters = append(c.renewal.waiters, wait)
	c.renewal.mu.Unlock()

	c.metrics.waiter()

	select {
	case res := <-wait:
		return res, nil
	case <-ctx.Done():
		return renewalResult{}, ctx.Err()
	}
}

// lead runs the renewal and settles every waiter with its outcome. It must be
// called with mu held and no renewal in flight, and releases mu.
func (c *Client) lead(ctx context.Context) (string, error) {
	c.renewal.inFlight = true
	c.renewal.mu.Unlock()

	token, err := c.renew(ctx)

	c.renewal.mu.Lock()
	waiters := c.renewal.waiters
	c.renewal.waiters = nil
	c.renewal.inFlight = false
	c.renewal.mu.Unlock()

	for _, w := range waiters {
		w <- renewalResult{token: token, err: err}
	}

	if errors.Is(err, shared.ErrReauthRequired) {
		c.scheduleReauth(err)
	}
	return token, err
}

func (c *Client) retry(ctx context.Context, cl *call, token string) (*Response, error) {
	resp, err := c.send(ctx, cl, token)
	if err != nil {
		c.metrics.request("error")
		return nil, err
	}
	c.metrics.request("retried")
	return resp, nil
}

// renew calls the refresh endpoint and stores the new credential.
//
// The call is detached from ctx's cancellation so that one caller giving up
// does not fail the renewal for every waiter. It is bounded by refreshTimeout.
func (c *Client) renew(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	c.logger.Info("renewing access token")
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.refreshPath, nil), nil)
	if err != nil {
		return "", c.renewalFailed(&RenewalError{Err: err})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", shared.GenerateID())

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.renewalFailed(&RenewalError{Err: err})
	}

	resp, err := readResponse(httpResp)
	if err != nil {
		return "", c.renewalFailed(&RenewalError{StatusCode: httpResp.StatusCode, Err: err})
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if err := c.tokens.ClearToken(); err != nil {
			c.logger.Error("failed to clear credential", "error", err)
		}
		c.metrics.renewal("rejected")
		c.logger.Warn("refresh rejected, sign-in required", "status", resp.StatusCode)
		return "", &RenewalError{Terminal: true, StatusCode: resp.StatusCode, Err: newStatusError(resp)}
	case !resp.OK():
		return "", c.renewalFailed(&RenewalError{StatusCode: resp.StatusCode, Err: newStatusError(resp)})
	}

	token := extractToken(resp.Body)
	if token == "" {
		return "", c.renewalFailed(&RenewalError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: refresh response has no access token", shared.ErrAPIRequest),
		})
	}

	if err := c.tokens.SetToken(token); err != nil {
		return "", c.renewalFailed(&RenewalError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to store credential: %w", err)})
	}

	c.metrics.renewal("ok")
	c.logger.Info("access token renewed", "took", time.Since(started), "token", shared.Preview(token, 8))
	return token, nil
}

func (c *Client) renewalFailed(err *RenewalError) error {
	c.metrics.renewal("failed")
	c.logger.Warn("token refresh failed, keeping credential", "error", err.Err, "status", err.StatusCode)
	return err
}

func (c *Client) scheduleReauth(err error) {
	if c.onReauth == nil {
		return
	}
	time.AfterFunc(c.reauthDelay, func() { c.onReauth(err) })
}

// extractToken reads the new credential from a refresh response:
// data.accessToken, then accessToken, then access_token.
func extractToken(body []byte) string {
	var payload struct {
		Data             json.RawMessage `json:"data"`
		AccessToken      string          `json:"accessToken"`
		AccessTokenSnake string          `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if len(payload.Data) > 0 && json.Unmarshal(payload.Data, &data) == nil && data.AccessToken != "" {
		return data.AccessToken
	}

	if payload.AccessToken != "" {
		return payload.AccessToken
	}
	return payload.AccessTokenSnake
}
