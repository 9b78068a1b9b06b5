// Package catalog talks to the media services behind Scruffy.
//
// Overseerr is the request catalog: it lists who asked for what. Radarr
// (movies) and Sonarr (series) hold the files and report whether a request
// is fully available and since when. Service combines the three clients
// into the loans.Catalog and loans.Deleter collaborators used by the job
// runner, and Cached adds an expiring LRU in front of media lookups.
//
// Transport failures and 5xx answers are reported as *loans.UnavailableError
// so that a run records them per item and retries on its next trigger. A 404
// is reported as *loans.NotFoundError.
package catalog
