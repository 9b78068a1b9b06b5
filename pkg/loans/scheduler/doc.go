// Package scheduler fires job runs from the persisted cron schedules.
//
// The Scheduler keeps one entry per schedule and drives them from an
// explicit tick loop. Each entry is Disabled, Armed, Firing or Removed:
//
//	Disabled --enable--> Armed --due--> Firing --run done--> Armed
//	    ^                  |               |
//	    +----disable-------+---------------+
//	any state --delete--> Removed
//
// A tick collects entries whose next fire time has passed, advances them and
// starts their runs on separate goroutines, so a slow run never delays the
// loop. Runs are single-flight per job type: a trigger that finds its job
// type running is skipped, not queued. RunNow and RunSchedule bypass the
// cron expression and the enabled flag but not single-flight.
//
// Administrative changes call Upsert or Remove; Reload rebuilds the entry
// set from storage and also runs periodically so schedules edited by another
// process are picked up.
package scheduler
