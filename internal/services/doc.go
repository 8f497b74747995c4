// Package services implements typed StreamTube API calls on top of the authenticated request client.
//
// [StreamTube] implements [Service]. Every call goes through [client.Client.Do], so an expired access
// token is renewed transparently and the call is re-issued once.
//
// # Sessions
//
// Login and Signup store the returned access token in the client's token store. The refresh cookie
// arrives as an HTTP-only cookie and lives in the client's cookie jar. Logout clears both, even when
// the server call fails.
//
// # Error Handling
//
// Non-2xx responses surface as [client.StatusError], which matches the shared sentinels:
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrInvalidInput] : 400 and 422
//   - [shared.ErrNotAuthenticated] : 401 after renewal
//   - [shared.ErrServiceUnavailable] : 5xx
//
// Failed renewals surface as [client.RenewalError]; the terminal kind matches [shared.ErrReauthRequired].
package services
