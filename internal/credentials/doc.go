// Package credentials implements client-side storage for the StreamTube session.
//
// A [Store] is a small key-value interface. Two slots are used:
//   - [AccessTokenKey] holds the current bearer credential as an opaque string
//   - [CookiesKey] holds the side-channel cookies (the HTTP-only refresh cookie) as JSON
//
// Absence of a slot is equivalent to "no credential". [Slot] adapts a Store to the
// token storage interface consumed by the request client, and [Jar] is an
// [http.CookieJar] that writes cookies for the API origin through to the Store so
// a renewal works across separate CLI invocations.
//
// [SQLiteStore] is the persistent implementation (table kv); [MemoryStore] backs tests and short-lived sessions.
package credentials
