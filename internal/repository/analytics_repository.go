package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// AnalyticsRepo appends to exhibitor_analytics.  Rows are never updated.
type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// Insert appends ev.  A redelivered event with a known event_id is ignored.
func (r *AnalyticsRepo) Insert(ctx context.Context, ev model.AnalyticsEvent) error {
	const q = `INSERT IGNORE INTO exhibitor_analytics (event_id, exhibitor_id, user_id, action_type, page_visited, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	var user any
	if ev.UserID != 0 {
		user = ev.UserID
	}
	var page any
	if ev.PageVisited != "" {
		page = ev.PageVisited
	}
	_, err := r.db.ExecContext(ctx, q, ev.ID, ev.ExhibitorID, user, ev.ActionType, page, ev.OccurredAt.UTC())
	return classify(err)
}
