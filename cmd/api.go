package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/stx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request relative to the API root.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	return r.raw(ctx, http.MethodGet, cmd.StringArg("path"), nil)
}

// APIPost makes a direct POST request with an optional JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	var body []byte
	if data := cmd.String("data"); data != "" {
		var jsonTest any
		if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
			return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
		}
		body = []byte(data)
	}
	return r.raw(ctx, http.MethodPost, cmd.StringArg("path"), body)
}

// APIDelete makes a direct DELETE request.
func (r *Runner) APIDelete(ctx context.Context, cmd *cli.Command) error {
	return r.raw(ctx, http.MethodDelete, cmd.StringArg("path"), nil)
}

// raw prints the response body whatever the status, then reports non-2xx statuses as errors.
func (r *Runner) raw(ctx context.Context, method, path string, body []byte) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	r.logger.Info("raw request", "method", method, "path", path)

	resp, err := svc.Raw(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.IsJSON {
		if err := r.writeJSON(resp.JSONData, true); err != nil {
			return err
		}
	} else if len(resp.Body) > 0 {
		r.output.Write(resp.Body)
		r.output.Write([]byte("\n"))
	}

	return resp.Err()
}
