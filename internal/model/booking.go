package model

import (
	"strings"
	"time"
)

// BookingStatus is the canonical appointment lifecycle.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// ParseStatus normalizes a stored or requested status.  The legacy value
// "scheduled" reads as pending.
func ParseStatus(s string) (BookingStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "scheduled":
		return StatusPending, true
	case "confirmed":
		return StatusConfirmed, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	case "completed":
		return StatusCompleted, true
	}
	return "", false
}

// Active reports whether the booking is still open to status changes.
func (s BookingStatus) Active() bool { return s == StatusPending || s == StatusConfirmed }

// Occupies reports whether the booking holds its window.  Every status but
// cancelled does, matching the active_slot_key unique index.
func (s BookingStatus) Occupies() bool { return s != StatusCancelled }

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to BookingStatus) bool {
	switch to {
	case StatusConfirmed:
		return from == StatusPending
	case StatusCompleted, StatusCancelled:
		return from.Active()
	}
	return false
}

// Booking is an appointment of one user with one exhibitor.  Exactly one of
// SlotID and ScheduleID is set, depending on the flow that created it.
type Booking struct {
	ID              uint64        `json:"id"`                    // bookings.id
	UserID          uint64        `json:"user_id"`               // bookings.user_id
	ExhibitorID     uint64        `json:"exhibitor_id"`          // bookings.exhibitor_id
	SlotID          *uint64       `json:"slot_id,omitempty"`     // bookings.slot_id (nullable)
	ScheduleID      *uint64       `json:"schedule_id,omitempty"` // bookings.schedule_id (nullable)
	Date            time.Time     `json:"-"`                     // bookings.booking_date
	StartTime       Clock         `json:"start_time"`            // bookings.start_time
	EndTime         Clock         `json:"end_time"`              // bookings.end_time
	DurationMinutes int           `json:"duration_minutes"`      // bookings.duration_minutes
	Status          BookingStatus `json:"status"`                // bookings.status
	Notes           string        `json:"notes"`                 // bookings.notes
	CreatedAt       time.Time     `json:"created_at"`            // bookings.created_at
	UpdatedAt       time.Time     `json:"updated_at"`            // bookings.updated_at
}

// DateString returns the booking date as YYYY-MM-DD.
func (b Booking) DateString() string { return b.Date.Format(DateLayout) }

// SameTarget reports whether b was made against the same slot or schedule.
func (b Booking) SameTarget(slotID, scheduleID *uint64) bool {
	return eqID(b.SlotID, slotID) && eqID(b.ScheduleID, scheduleID)
}

func eqID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
