package credentials

import (
	"fmt"
	"time"

	"github.com/desertthunder/stx/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a bearer credential without verifying it.
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the credential's exp claim is at or before now. Tokens without exp never expire.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !i.ExpiresAt.After(now)
}

// Inspect decodes the registered claims of a JWT credential without checking its signature.
//
// Credentials are opaque to the client, so a non-JWT token yields [shared.ErrInvalidInput]
// and callers should fall back to treating it as opaque.
func Inspect(token string) (*TokenInfo, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: credential is not a JWT: %v", shared.ErrInvalidInput, err)
	}

	info := &TokenInfo{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
