package domain

import (
	"fmt"
	"time"
)

// reminderLeadDays is how many days before a milestone the upcoming-reminder
// signal fires.
const reminderLeadDays = 2

// Milestone is a fixed elapsed-day checkpoint in a client's program that
// requires a follow-up action.
type Milestone struct {
	// Days is the elapsed-day value of the checkpoint.
	Days int
	// FollowUpType is the idempotency key component for this milestone,
	// e.g. "14_day".
	FollowUpType string
	// Final marks the last milestone of the service type's set.
	Final bool
}

// Calendar maps a service type and an elapsed-day value to zero-or-one due
// milestone and zero-or-one upcoming-reminder signal. It has no side effects.
type Calendar struct {
	table *StageTable
	// catchUpDays extends the due check past the exact milestone day, so a
	// milestone still fires when the batch skipped a day. Zero keeps strict
	// exact-day matching.
	catchUpDays int
}

// NewCalendar creates a milestone calendar over the given stage table.
func NewCalendar(table *StageTable, catchUpDays int) *Calendar {
	if catchUpDays < 0 {
		catchUpDays = 0
	}
	return &Calendar{table: table, catchUpDays: catchUpDays}
}

// DueMilestone returns the milestone due at the given elapsed-day value, or
// nil. With a zero catch-up window only an exact day match is due; with a
// positive window a milestone stays due for that many extra days, and only
// the latest eligible milestone is returned so at most one fires per run.
func (c *Calendar) DueMilestone(st ServiceType, elapsedDays int) *Milestone {
	set := c.table.MilestonesFor(st)
	for i := len(set) - 1; i >= 0; i-- {
		day := set[i]
		if elapsedDays >= day && elapsedDays <= day+c.catchUpDays {
			return c.milestone(st, day)
		}
	}
	return nil
}

// WithinWindow reports whether the elapsed-day value falls on the given day
// or inside its catch-up window. Used for milestone-independent day checks
// such as stage auto-triggers.
func (c *Calendar) WithinWindow(day, elapsedDays int) bool {
	return elapsedDays >= day && elapsedDays <= day+c.catchUpDays
}

// UpcomingReminder returns the milestone exactly reminderLeadDays ahead of
// the given elapsed-day value, or nil. Reminders always use exact matching;
// a late reminder has no value.
func (c *Calendar) UpcomingReminder(st ServiceType, elapsedDays int) *Milestone {
	for _, day := range c.table.MilestonesFor(st) {
		if elapsedDays+reminderLeadDays == day {
			return c.milestone(st, day)
		}
	}
	return nil
}

func (c *Calendar) milestone(st ServiceType, day int) *Milestone {
	set := c.table.MilestonesFor(st)
	return &Milestone{
		Days:         day,
		FollowUpType: FollowUpTypeForDay(day),
		Final:        len(set) > 0 && day == set[len(set)-1],
	}
}

// FollowUpTypeForDay builds the follow-up type string for a milestone day.
func FollowUpTypeForDay(day int) string {
	return fmt.Sprintf("%d_day", day)
}

// ElapsedDays computes whole days between the program start and now using
// date subtraction, not wall-clock arithmetic. Both sides are collapsed to
// their calendar date first so a program started at 23:00 is one day old the
// next morning.
func ElapsedDays(start, now time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(n.Sub(s).Hours() / 24)
}
