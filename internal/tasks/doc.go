// Package tasks runs long library operations against StreamTube with progress reporting.
//
// [LibraryEngine.BulkExport] fetches many videos through a rate-limited worker pool. Because the workers share
// one authenticated client, an expired credential makes several of them see 401 at once; the client renews it
// once and the workers carry on. Fetched videos are optionally cached through a [VideoCacher]
// (repositories.VideoCacheAdapter) and written through the formatter package with an export manifest.
//
// [LibraryEngine.Dump] fetches the profile, history, watch-later list, subscriptions and notifications in
// parallel and records per-endpoint failures.
//
// Progress is reported through [ProgressUpdate] values on a caller-supplied channel. Sends never block; updates
// are dropped when the channel is full.
package tasks
