// Raw request passthrough used by `stx api`
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/stx/internal/client"
	"github.com/desertthunder/stx/internal/shared"
)

// Raw performs a request with the given method and returns the raw response.
//
// The response is returned for any status so callers can print error bodies.
// Renewal still applies, so a raw call with an expired token is retried once.
func (s *StreamTube) Raw(ctx context.Context, method, path string, body []byte) (*client.Response, error) {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, fmt.Errorf("%w: unsupported method %q", shared.ErrInvalidArgument, method)
	}

	if path == "" {
		return nil, fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	return s.client.Do(ctx, &client.Request{Method: method, Path: path, Body: body})
}
