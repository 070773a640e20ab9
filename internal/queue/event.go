// Package queue carries analytics events over RabbitMQ: a publisher used
// by the API as its analytics sink and a consumer that drains the queue
// into the exhibitor_analytics table.
package queue

import (
	"errors"
	"time"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// AnalyticsMessage is the JSON body of one message on the analytics queue.
// It carries enough to insert the row without querying the database.
type AnalyticsMessage struct {
	EventID     string `json:"event_id"`
	ExhibitorID uint64 `json:"exhibitor_id"`
	UserID      uint64 `json:"user_id,omitempty"`
	ActionType  string `json:"action_type"`
	PageVisited string `json:"page_visited,omitempty"`
	OccurredAt  string `json:"occurred_at"` // RFC 3339, UTC
}

func messageOf(ev model.AnalyticsEvent) AnalyticsMessage {
	return AnalyticsMessage{
		EventID:     ev.ID,
		ExhibitorID: ev.ExhibitorID,
		UserID:      ev.UserID,
		ActionType:  ev.ActionType,
		PageVisited: ev.PageVisited,
		OccurredAt:  ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// Event converts the message back into a domain event.
func (m AnalyticsMessage) Event() (model.AnalyticsEvent, error) {
	if m.EventID == "" || m.ExhibitorID == 0 || m.ActionType == "" {
		return model.AnalyticsEvent{}, errors.New("analytics message: event_id, exhibitor_id and action_type are required")
	}
	at, err := time.Parse(time.RFC3339Nano, m.OccurredAt)
	if err != nil {
		return model.AnalyticsEvent{}, err
	}
	return model.AnalyticsEvent{
		ID:          m.EventID,
		ExhibitorID: m.ExhibitorID,
		UserID:      m.UserID,
		ActionType:  m.ActionType,
		PageVisited: m.PageVisited,
		OccurredAt:  at.UTC(),
	}, nil
}
