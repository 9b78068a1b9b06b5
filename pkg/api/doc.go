// Package api implements the administrative HTTP API under /api/v1.
//
// Routes:
//
//	GET    /schedules               list schedules
//	POST   /schedules               create a schedule
//	GET    /schedules/{id}          read a schedule
//	PATCH  /schedules/{id}          update a schedule
//	DELETE /schedules/{id}          delete a schedule
//	POST   /schedules/{id}/run      run a schedule's job now
//	GET    /scheduler               scheduler entry states
//	GET    /jobs?limit=N            job run history, newest first
//	POST   /jobs/{jobType}/run      run a job type now
//	GET    /settings                effective settings with their source
//	PUT    /settings                update settings
//	GET    /requests                stored loans with their retention state
//	POST   /requests/{id}/extend    grant a loan its extension
//
// Run triggers answer 202 with {"status": "started"|"skipped", ...}.
// Errors are {"error": "..."} with 400 for invalid input, 404 for unknown
// resources, 409 for conflicts and 503 when a collaborator is unavailable.
package api
