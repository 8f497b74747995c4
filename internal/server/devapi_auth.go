package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

var errBadToken = errors.New("invalid or expired access token")

func (d *DevAPI) issueAccess(userID string) (string, error) {
	d.mu.RLock()
	gen := d.generation
	d.mu.RUnlock()

	now := time.Now()
	claims := accessClaims{
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        shared.GenerateID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d.opts.AccessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(d.opts.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (d *DevAPI) parseAccess(raw string) (string, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(d.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", errBadToken
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if claims.Generation < d.generation {
		return "", errBadToken
	}
	if _, ok := d.users[claims.Subject]; !ok {
		return "", errBadToken
	}
	return claims.Subject, nil
}

// authenticate returns the caller's user ID. A missing header is not an error.
func (d *DevAPI) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errBadToken
	}
	return d.parseAccess(token)
}

func (d *DevAPI) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := d.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, userID)
	}
}

// optionalAuth serves anonymous callers but rejects a bad token with 401.
func (d *DevAPI) optionalAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := d.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r, userID)
	}
}

func (d *DevAPI) createUser(input models.SignupInput) (models.User, int, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), d.opts.BcryptCost)
	if err != nil {
		return models.User{}, http.StatusInternalServerError, fmt.Errorf("failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	email := strings.ToLower(input.Email)
	username := strings.ToLower(input.Username)
	if _, taken := d.emails[email]; taken {
		return models.User{}, http.StatusConflict, errors.New("email already registered")
	}
	if _, taken := d.usernames[username]; taken {
		return models.User{}, http.StatusConflict, errors.New("username already taken")
	}

	user := &devUser{
		User: models.User{
			ID:        shared.GenerateID(),
			Username:  username,
			Email:     email,
			FullName:  input.FullName,
			CreatedAt: time.Now().UTC(),
		},
		hash: hash,
	}
	d.users[user.ID] = user
	d.emails[email] = user.ID
	d.usernames[username] = user.ID

	return user.User, http.StatusCreated, nil
}

// startSession issues an access token and sets a fresh refresh cookie.
func (d *DevAPI) startSession(w http.ResponseWriter, userID string) (string, error) {
	access, err := d.issueAccess(userID)
	if err != nil {
		return "", err
	}

	refresh := shared.GenerateID()
	d.mu.Lock()
	d.sessions[refresh] = devSession{userID: userID, expires: time.Now().Add(d.opts.RefreshTTL)}
	d.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refresh,
		Path:     APIPrefix + "/auth",
		MaxAge:   int(d.opts.RefreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return access, nil
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Path:     APIPrefix + "/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (d *DevAPI) signup(w http.ResponseWriter, r *http.Request) {
	var input models.SignupInput
	if !d.decode(w, r, &input) {
		return
	}

	user, status, err := d.createUser(input)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	access, err := d.startSession(w, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeEnvelope(w, http.StatusCreated, "account created", models.Session{User: user, AccessToken: access})
}

func (d *DevAPI) login(w http.ResponseWriter, r *http.Request) {
	var input models.LoginInput
	if !d.decode(w, r, &input) {
		return
	}

	d.mu.RLock()
	user, ok := d.users[d.emails[strings.ToLower(input.Email)]]
	d.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(user.hash, []byte(input.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	access, err := d.startSession(w, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeEnvelope(w, http.StatusOK, "signed in", models.Session{User: user.User, AccessToken: access})
}

func (d *DevAPI) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		d.mu.Lock()
		delete(d.sessions, cookie.Value)
		d.mu.Unlock()
	}
	clearRefreshCookie(w)
	writeEnvelope(w, http.StatusOK, "signed out", nil)
}

// refresh rotates the refresh cookie and returns a new access token.
func (d *DevAPI) refresh(w http.ResponseWriter, r *http.Request) {
	d.refreshN.Add(1)

	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		d.refreshes.WithLabelValues("missing").Inc()
		writeError(w, http.StatusUnauthorized, "refresh token missing")
		return
	}

	d.mu.Lock()
	session, ok := d.sessions[cookie.Value]
	delete(d.sessions, cookie.Value)
	d.mu.Unlock()

	if !ok || time.Now().After(session.expires) {
		d.refreshes.WithLabelValues("rejected").Inc()
		clearRefreshCookie(w)
		writeError(w, http.StatusUnauthorized, "refresh token invalid or expired")
		return
	}

	access, err := d.startSession(w, session.userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	d.refreshes.WithLabelValues("ok").Inc()
	writeEnvelope(w, http.StatusOK, "token refreshed", map[string]string{"accessToken": access})
}

func (d *DevAPI) me(w http.ResponseWriter, r *http.Request, userID string) {
	d.mu.RLock()
	user := d.users[userID].User
	d.mu.RUnlock()

	writeEnvelope(w, http.StatusOK, "", user)
}
