// Package client implements the authenticated StreamTube request client.
//
// Every request carries the stored bearer credential. When a request comes
// back 401, the client renews the credential through the refresh endpoint and
// re-issues the request once. Concurrent 401s share a single renewal: the
// first caller performs it and every other caller waits for its outcome.
//
// A renewal rejected by the server is terminal. The stored credential is
// deleted, callers receive an error satisfying
// errors.Is(err, shared.ErrReauthRequired), and the OnReauth hook fires after
// a short delay. Network failures and timeouts keep the credential.
package client
