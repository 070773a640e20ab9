package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// ScheduleRepo persists weekly availability rules.
type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const scheduleColumns = `id, exhibitor_id, day_of_week, start_time, end_time, session_duration, is_active, created_at, updated_at`

func scanSchedule(row scanner) (model.RecurringSchedule, error) {
	var s model.RecurringSchedule
	err := row.Scan(&s.ID, &s.ExhibitorID, &s.DayOfWeek, &s.StartTime, &s.EndTime,
		&s.SessionDuration, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, classify(err)
}

// Create inserts an active schedule.
func (r *ScheduleRepo) Create(ctx context.Context, s *model.RecurringSchedule) error {
	const q = `INSERT INTO availability_schedules (exhibitor_id, day_of_week, start_time, end_time, session_duration, is_active)
		VALUES (?, ?, ?, ?, ?, 1)`
	res, err := r.db.ExecContext(ctx, q, s.ExhibitorID, int(s.DayOfWeek), s.StartTime, s.EndTime, s.SessionDuration)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = got
	return nil
}

// GetByID loads a schedule, active or not.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (model.RecurringSchedule, error) {
	return scanSchedule(r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM availability_schedules WHERE id = ?`, id))
}

// GetForUpdateTx locks the schedule row.  Every booking against the
// schedule serializes on this lock.
func (r *ScheduleRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.RecurringSchedule, error) {
	return scanSchedule(tx.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM availability_schedules WHERE id = ? FOR UPDATE`, id))
}

// ListActiveByExhibitor returns active schedules ordered by weekday and start.
func (r *ScheduleRepo) ListActiveByExhibitor(ctx context.Context, exhibitorID uint64) ([]model.RecurringSchedule, error) {
	const q = `SELECT ` + scheduleColumns + ` FROM availability_schedules
		WHERE exhibitor_id = ? AND is_active = 1 ORDER BY day_of_week, start_time`
	rows, err := r.db.QueryContext(ctx, q, exhibitorID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	var out []model.RecurringSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Deactivate switches a schedule off.  Existing bookings are kept.
func (r *ScheduleRepo) Deactivate(ctx context.Context, id, exhibitorID uint64) error {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.ExhibitorID != exhibitorID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx, `UPDATE availability_schedules SET is_active = 0 WHERE id = ? AND exhibitor_id = ?`, id, exhibitorID)
	return classify(err)
}
