// Package storage provides persistence backends for the loan service.
//
// Two implementations of loans.Store are available:
//
//   - SQLiteStorage: durable storage backed by SQLite. Either the cgo driver
//     (github.com/mattn/go-sqlite3, driver "sqlite3") or the pure Go driver
//     (modernc.org/sqlite, driver "sqlite") can be selected. The schema is
//     managed by embedded golang-migrate migrations applied on open.
//   - MemoryStorage: an in-memory store with the same semantics, used by
//     tests and dry runs.
//
// Timestamps are stored as fixed-width UTC text so that ordering by
// finished_at is lexicographic and identical for both drivers.
package storage
