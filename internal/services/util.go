package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/stx/internal/shared"
)

func jsonBody(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode body: %v", shared.ErrInvalidInput, err)
	}
	return data, nil
}

func errorsIsUnauthorized(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated)
}
