package model

import "time"

// Slot is one ad-hoc bookable window owned by an exhibitor.
type Slot struct {
	ID              uint64    `json:"id"`               // slots.id
	ExhibitorID     uint64    `json:"exhibitor_id"`     // slots.exhibitor_id
	StartTime       time.Time `json:"start_time"`       // slots.start_time
	EndTime         time.Time `json:"end_time"`         // slots.end_time
	DurationMinutes int       `json:"duration_minutes"` // slots.duration_minutes
	IsAvailable     bool      `json:"is_available"`     // slots.is_available
	CreatedAt       time.Time `json:"created_at"`       // slots.created_at
	UpdatedAt       time.Time `json:"updated_at"`       // slots.updated_at
}

// Consistent reports whether the slot satisfies end > start and
// duration == end - start.
func (s Slot) Consistent() bool {
	if !s.EndTime.After(s.StartTime) {
		return false
	}
	return int(s.EndTime.Sub(s.StartTime)/time.Minute) == s.DurationMinutes
}
