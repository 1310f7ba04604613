// Package duedate derives task due dates and delay anchors from the working
// calendar. The calculator only fills in missing values: an explicit absolute
// date supplied by the decision table is always returned unchanged.
package duedate

import (
	"time"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/calendar"
)

// dueHour is the local hour of day every computed due date is fixed to.
const dueHour = 16

type Calculator struct {
	cal *calendar.Service
}

func NewCalculator(cal *calendar.Service) *Calculator {
	return &Calculator{cal: cal}
}

// DelayUntil computes the anchor a task becomes actionable at. With no
// override and a zero offset the anchor is returned unchanged. Otherwise the
// naive target (anchor + offsetDays calendar days, or the override) is moved
// forward one day at a time until it lands on a working day. The result is
// never earlier than the naive target.
func (c *Calculator) DelayUntil(anchor time.Time, offsetDays int, override *time.Time) time.Time {
	var target time.Time
	switch {
	case override != nil:
		target = *override
	case offsetDays == 0:
		return anchor
	default:
		target = anchor.AddDate(0, 0, offsetDays)
	}
	for c.cal.IsNonWorkingDay(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// DueDate computes the task due date. A preset due date wins unchanged.
// Otherwise the date advances one calendar day at a time from from,
// decrementing workingDays only on working days, until the allowance is
// spent; the result is fixed to 16:00 local time with seconds and
// nanoseconds truncated. workingDays == 0 yields from itself, normalized.
func (c *Calculator) DueDate(from time.Time, workingDays int, preset *time.Time) time.Time {
	if preset != nil {
		return *preset
	}
	d := from
	for remaining := workingDays; remaining > 0; {
		d = d.AddDate(0, 0, 1)
		if !c.cal.IsNonWorkingDay(d) {
			remaining--
		}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), dueHour, 0, 0, 0, d.Location())
}
