package model

import "time"

// Analytics action types.
const (
	ActionBooking      = "booking"
	ActionCancellation = "cancellation"
)

// AnalyticsEvent is one append-only row of exhibitor_analytics.
type AnalyticsEvent struct {
	ID          string    `json:"id"`           // exhibitor_analytics.event_id
	ExhibitorID uint64    `json:"exhibitor_id"` // exhibitor_analytics.exhibitor_id
	UserID      uint64    `json:"user_id"`      // exhibitor_analytics.user_id
	ActionType  string    `json:"action_type"`  // exhibitor_analytics.action_type
	PageVisited string    `json:"page_visited"` // exhibitor_analytics.page_visited
	OccurredAt  time.Time `json:"occurred_at"`  // exhibitor_analytics.created_at
}
