package model

import "time"

// RecurringSchedule is a weekly availability rule.  Concrete windows are
// derived on demand and never stored.
type RecurringSchedule struct {
	ID              uint64    `json:"id"`               // availability_schedules.id
	ExhibitorID     uint64    `json:"exhibitor_id"`     // availability_schedules.exhibitor_id
	DayOfWeek       Weekday   `json:"day_of_week"`      // availability_schedules.day_of_week (0 = Monday)
	StartTime       Clock     `json:"start_time"`       // availability_schedules.start_time
	EndTime         Clock     `json:"end_time"`         // availability_schedules.end_time
	SessionDuration int       `json:"session_duration"` // availability_schedules.session_duration (minutes)
	IsActive        bool      `json:"is_active"`        // availability_schedules.is_active
	CreatedAt       time.Time `json:"created_at"`       // availability_schedules.created_at
	UpdatedAt       time.Time `json:"updated_at"`       // availability_schedules.updated_at
}

// Valid reports whether at least one full session fits in the range.
func (s RecurringSchedule) Valid() bool {
	return s.DayOfWeek.Valid() &&
		s.SessionDuration > 0 &&
		s.StartTime >= 0 && s.EndTime <= MinutesPerDay &&
		s.EndTime > s.StartTime &&
		s.StartTime.Add(s.SessionDuration) <= s.EndTime
}
