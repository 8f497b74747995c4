package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/stx/internal/credentials"
	"github.com/desertthunder/stx/internal/models"
	"github.com/desertthunder/stx/internal/server"
	"github.com/desertthunder/stx/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultSignInTimeout = 5 * time.Minute

// AuthStatusReport is the JSON form of `auth status`.
type AuthStatusReport struct {
	HasToken      bool         `json:"hasToken"`
	HasRefresh    bool         `json:"hasRefreshCookie"`
	Subject       string       `json:"subject,omitempty"`
	ExpiresAt     *time.Time   `json:"expiresAt,omitempty"`
	Expired       bool         `json:"expired"`
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	Error         string       `json:"error,omitempty"`
}

func requirePassword(cmd *cli.Command) (string, error) {
	password := cmd.String("password")
	if password == "" {
		return "", fmt.Errorf("%w: --password or STX_PASSWORD", shared.ErrMissingArgument)
	}
	return password, nil
}

// AuthLogin signs in with email and password.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	password, err := requirePassword(cmd)
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	r.logger.Info("signing in", "email", cmd.String("email"))

	session, err := svc.Login(ctx, models.LoginInput{Email: cmd.String("email"), Password: password})
	if err != nil {
		return err
	}

	return r.writePlain("✓ Signed in as %s (%s)\n", session.User.Username, session.User.Email)
}

// AuthSignup creates an account and signs in.
func (r *Runner) AuthSignup(ctx context.Context, cmd *cli.Command) error {
	password, err := requirePassword(cmd)
	if err != nil {
		return err
	}

	svc, err := r.service()
	if err != nil {
		return err
	}

	name := cmd.String("name")
	if name == "" {
		name = cmd.String("username")
	}

	session, err := svc.Signup(ctx, models.SignupInput{
		Username: cmd.String("username"),
		Email:    cmd.String("email"),
		Password: password,
		FullName: name,
	})
	if err != nil {
		return err
	}

	return r.writePlain("✓ Account created for %s\n", session.User.Username)
}

// AuthLogout ends the session. Local credentials are removed even if the API is unreachable.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	if err := svc.Logout(ctx); err != nil {
		r.logger.Warn("server logout failed, local credentials cleared", "error", err)
	}

	return r.writePlain("✓ Signed out\n")
}

// AuthRefresh renews the access token with the stored refresh cookie.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.service()
	if err != nil {
		return err
	}

	token, err := svc.Refresh(ctx)
	if err != nil {
		return err
	}

	r.writePlain("✓ Access token renewed\n")
	if info, err := credentials.Inspect(token); err == nil && !info.ExpiresAt.IsZero() {
		r.writePlain("  Expires: %s\n", info.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// AuthStatus reports the stored credential and whether the API accepts it.
//
// Checking with the API goes through the authenticated client, so an expired token is renewed here as it
// would be for any other command.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	slot, jar, err := r.credentials()
	if err != nil {
		return err
	}

	token, err := slot.Token()
	if err != nil {
		return err
	}

	report := AuthStatusReport{
		HasToken:   token != "",
		HasRefresh: jar.Has(server.RefreshCookieName),
	}

	if info, err := credentials.Inspect(token); err == nil {
		report.Subject = info.Subject
		report.Expired = info.Expired(time.Now())
		if !info.ExpiresAt.IsZero() {
			expires := info.ExpiresAt
			report.ExpiresAt = &expires
		}
	}

	if report.HasToken || report.HasRefresh {
		svc, err := r.service()
		if err != nil {
			return err
		}
		user, err := svc.Me(ctx)
		switch {
		case err == nil:
			report.Authenticated = true
			report.User = user
		case errors.Is(err, shared.ErrReauthRequired), errors.Is(err, shared.ErrNotAuthenticated):
			report.Error = err.Error()
		default:
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writePlainHeader("StreamTube session")
	r.writePlain("Access token:   %s\n", mark(report.HasToken))
	r.writePlain("Refresh cookie: %s\n", mark(report.HasRefresh))
	if report.ExpiresAt != nil {
		state := "valid"
		if report.Expired {
			state = "expired"
		}
		r.writePlain("Token expiry:   %s (%s)\n", report.ExpiresAt.Format(time.RFC3339), state)
	}
	if report.Authenticated {
		return r.writePlain("Signed in as:   %s <%s>\n", report.User.Username, report.User.Email)
	}
	if report.Error != "" {
		r.writePlain("Error:          %s\n", report.Error)
	}
	return r.writePlain("Not signed in. Run `stx auth login` or `stx auth browser`.\n")
}

// AuthBrowser signs in through the web app and receives the access token on a local callback server.
func (r *Runner) AuthBrowser(ctx context.Context, cmd *cli.Command) error {
	slot, jar, err := r.credentials()
	if err != nil {
		return err
	}

	state := shared.GenerateID()
	handler := server.NewSignInHandler(state)

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("127.0.0.1:%d", r.config.Server.CallbackPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for sign-in callback on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("callback server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	callback := fmt.Sprintf("http://%s/callback", addr)
	signInURL, err := server.SignInURL(r.config.API.SignInURL, callback, state)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	r.writePlain("Opening %s\n", signInURL)
	if err := shared.OpenBrowser(signInURL); err != nil {
		r.logger.Warn("could not open browser, open the URL manually", "error", err)
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = defaultSignInTimeout
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		if err := slot.SetToken(result.Token.AccessToken); err != nil {
			return fmt.Errorf("failed to store access token: %w", err)
		}
		if result.Token.RefreshToken != "" {
			jar.Import([]*http.Cookie{{
				Name:     server.RefreshCookieName,
				Value:    result.Token.RefreshToken,
				HttpOnly: true,
			}})
		}
		r.logger.Info("browser sign-in complete", "refresh", result.Token.RefreshToken != "")
		return r.writePlain("✓ Signed in\n")
	case <-time.After(timeout):
		return fmt.Errorf("%w: no sign-in callback within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
