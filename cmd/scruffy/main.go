// Scruffy is a media retention janitor for Overseerr, Radarr and Sonarr.
//
// Every requested movie or series is treated as a loan: once the media is
// available, the requester gets it for a retention period, is reminded by
// email before the deadline, may extend it once, and the files are deleted
// when the loan expires.
//
// Usage:
//
//	# Start the admin API and the cron scheduler
//	scruffy serve --config /etc/scruffy/config.yaml
//
//	# Report the loans needing attention without side effects
//	scruffy check
//
//	# Send reminders and delete expired media
//	scruffy process
//
//	# Check the retention policy and service connectivity
//	scruffy validate
//
//	# Manage cron schedules
//	scruffy schedules add process "0 9 * * *"
package main

func main() {
	Execute()
}
