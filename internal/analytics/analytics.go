// Package analytics records exhibitor interaction events.  Recording is
// best effort: callers log failures and carry on.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// Recorder appends one event to the analytics log.
type Recorder interface {
	Record(ctx context.Context, ev model.AnalyticsEvent) error
}

// Store is the persistence needed by SQLRecorder.
type Store interface {
	Insert(ctx context.Context, ev model.AnalyticsEvent) error
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(exhibitorID, userID uint64, action, page string) model.AnalyticsEvent {
	return model.AnalyticsEvent{
		ID:          uuid.NewString(),
		ExhibitorID: exhibitorID,
		UserID:      userID,
		ActionType:  action,
		PageVisited: page,
		OccurredAt:  time.Now().UTC(),
	}
}

// SQLRecorder writes events straight to the exhibitor_analytics table.
type SQLRecorder struct {
	store Store
}

func NewSQLRecorder(store Store) *SQLRecorder { return &SQLRecorder{store: store} }

func (r *SQLRecorder) Record(ctx context.Context, ev model.AnalyticsEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return r.store.Insert(ctx, ev)
}

// Name identifies the sink in metrics.
func (r *SQLRecorder) Name() string { return "sql" }
