// Package runner executes one retention job run.
//
// A run resolves the settings once, lists the catalog's requests, resolves
// their media with bounded parallelism and walks them in listing order:
//
//   - check counts loans in their reminder window or past their deadline and
//     sends reminders for loans newly in the window. It never deletes.
//   - process deletes expired loans, sends deletion notices, and sends
//     reminders with an extension link.
//
// A reminder is sent at most once per request and deadline date. Failures
// confined to one request are recorded in the run summary and the batch
// continues; a failure to list requests fails the run. Every run, failed or
// not, is appended to the job run log when it completes.
package runner
