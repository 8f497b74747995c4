// Package repositories implements SQLite persistence for cached StreamTube data.
//
// Key Implementations:
//   - [VideoRepository] : cached video metadata keyed by StreamTube ID
//   - [VideoCacheAdapter] : the tasks.VideoCacher used by bulk exports
//
// Repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
