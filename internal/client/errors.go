package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/stx/internal/shared"
)

// StatusError is a non-2xx API response surfaced as an error.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func newStatusError(resp *Response) *StatusError {
	return &StatusError{
		StatusCode: resp.StatusCode,
		Message:    envelopeMessage(resp.Body),
		Body:       resp.Body,
	}
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether the status maps onto one of the shared sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case shared.ErrNotAuthenticated:
		return e.StatusCode == http.StatusUnauthorized
	case shared.ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case shared.ErrServiceUnavailable:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// RenewalError is the outcome of a failed credential renewal.
//
// Terminal failures (the refresh endpoint rejected the side-channel credential)
// match [shared.ErrReauthRequired]. Everything else matches [shared.ErrRefreshFailed]
// and leaves the stored credential untouched.
type RenewalError struct {
	Terminal   bool
	StatusCode int // 0 when no response arrived
	Err        error
}

func (e *RenewalError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("%v (refresh rejected with %d)", shared.ErrReauthRequired, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", shared.ErrRefreshFailed, e.Err)
	}
	return shared.ErrRefreshFailed.Error()
}

func (e *RenewalError) Unwrap() error { return e.Err }

func (e *RenewalError) Is(target error) bool {
	if e.Terminal {
		return target == shared.ErrReauthRequired
	}
	return target == shared.ErrRefreshFailed
}

// envelopeMessage pulls "message" (or "error") out of a JSON error body.
func envelopeMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
