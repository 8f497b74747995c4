// Package server provides HTTP routing, middleware, the browser sign-in callback and a development StreamTube API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging], [Recover] and [Instrument] are the stock middleware.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Sign-In Callback Handler
//
// [SignInHandler] receives the redirect from the StreamTube web app after a browser sign-in.
// It validates the state parameter (CSRF protection) and delivers the access token as an
// [oauth2.Token] through a channel. It only processes one callback to prevent replay attacks.
//
// `stx auth browser` starts a temporary HTTP server on localhost (callback_port), opens the sign-in URL,
// and shuts down after receiving the token.
//
// # Development API
//
// [DevAPI] is an in-memory implementation of the StreamTube REST API under /api/v1. It issues HS256 JWT
// access tokens and rotates an opaque refresh token held in an HTTP-only cookie. Passwords are hashed with
// bcrypt and request bodies are checked with go-playground/validator. Request counters are served on /metrics.
//
// [DevAPI.InvalidateAccessTokens] and [DevAPI.RevokeSessions] force the two renewal outcomes the client
// has to handle: a recoverable 401, and a rejected refresh.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
