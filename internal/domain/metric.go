package domain

import "time"

// DailyMetric is one day of accumulated health measures for a user from a
// single provider. (UserID, Date, Provider) is the idempotency key: repeated
// fetches of the same day collapse to one row.
type DailyMetric struct {
	ID       string
	UserID   string
	Date     time.Time // truncated to the start of the calendar day, UTC
	Provider Provider

	Steps         int
	Calories      float64
	Distance      float64
	ActiveMinutes int
	HeartRate     *float64
	BloodOxygen   *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DayOf truncates a timestamp to the start of its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
