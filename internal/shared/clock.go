package shared

import "time"

// Clock supplies "now" to date validations so tests can pin time.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time {
	return time.Now()
}

// Today truncates the clock's time to midnight UTC for date-only rules.
func (c Clock) Today() time.Time {
	now := c()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
