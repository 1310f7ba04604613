// Package calendar answers whether a date is a non-working day (weekend or
// registered holiday) for a jurisdiction. The holiday set is immutable after
// construction, so the service is safe for concurrent use without locking.
package calendar

import (
	"fmt"
	"time"
)

type civilDate struct {
	year  int
	month time.Month
	day   int
}

// Service holds the preloaded holiday set for one jurisdiction.
type Service struct {
	jurisdiction string
	holidays     map[civilDate]struct{}
}

// New builds a Service from holiday dates in "2006-01-02" form.
func New(jurisdiction string, holidayDates []string) (*Service, error) {
	holidays := make(map[civilDate]struct{}, len(holidayDates))
	for _, d := range holidayDates {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("parse holiday date %q: %w", d, err)
		}
		holidays[dateOf(t)] = struct{}{}
	}
	return &Service{jurisdiction: jurisdiction, holidays: holidays}, nil
}

func (s *Service) Jurisdiction() string { return s.jurisdiction }

// IsWeekend reports whether t falls on a Saturday or Sunday.
func (s *Service) IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday reports whether t's calendar date is in the holiday set.
func (s *Service) IsHoliday(t time.Time) bool {
	_, ok := s.holidays[dateOf(t)]
	return ok
}

// IsNonWorkingDay reports whether t is a weekend or a holiday.
func (s *Service) IsNonWorkingDay(t time.Time) bool {
	return s.IsWeekend(t) || s.IsHoliday(t)
}

func dateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}
