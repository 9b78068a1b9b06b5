// Package loans defines the domain model of the media loan service.
//
// A loan starts when a requested movie or series becomes fully available in
// the media catalog. From then on the retention clock counts calendar days
// toward a reminder threshold and then a deletion threshold. A requester may
// extend a loan once.
//
// The package holds the shared types (Request, Schedule, JobRun and the job
// summaries), the error taxonomy used across the service, and the storage and
// collaborator interfaces implemented by the storage, catalog and notify
// packages.
//
// # Subpackages
//
//   - retention: the retention clock and the extension ledger
//   - storage: SQLite and in-memory implementations of Store
//   - settings: two-tier resolution of retention settings
//   - runner: execution of check and process jobs
//   - scheduler: the cron trigger loop with single-flight dispatch
package loans
