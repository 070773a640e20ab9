package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// SlotRepo persists ad-hoc slots.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to db.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, exhibitor_id, start_time, end_time, duration_minutes, is_available, created_at, updated_at`

func scanSlot(row scanner) (model.Slot, error) {
	var s model.Slot
	err := row.Scan(&s.ID, &s.ExhibitorID, &s.StartTime, &s.EndTime, &s.DurationMinutes,
		&s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	return s, classify(err)
}

// Create inserts a slot and reloads it so timestamps and defaults are set.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	const q = `INSERT INTO slots (exhibitor_id, start_time, end_time, duration_minutes, is_available) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.ExhibitorID, s.StartTime.UTC(), s.EndTime.UTC(), s.DurationMinutes, s.IsAvailable)
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

// GetByID loads a slot without locking.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (model.Slot, error) {
	return scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id))
}

// GetForUpdateTx loads a slot and holds an exclusive row lock on it until
// tx ends.  A concurrent caller blocks here until the holder commits or
// rolls back, then reads the updated row.
func (r *SlotRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Slot, error) {
	return scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ? FOR UPDATE`, id))
}

// SetAvailableTx flips the availability flag of a slot.
func (r *SlotRepo) SetAvailableTx(ctx context.Context, tx *sql.Tx, id uint64, available bool) error {
	res, err := tx.ExecContext(ctx, `UPDATE slots SET is_available = ? WHERE id = ?`, available, id)
	if err != nil {
		return classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 when the value is unchanged, so confirm the row exists
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM slots WHERE id = ?`, id).Scan(&one); err != nil {
			return classify(err)
		}
	}
	return nil
}

// ListAvailable returns the exhibitor's open slots starting in [from, to),
// ordered by start time.
func (r *SlotRepo) ListAvailable(ctx context.Context, exhibitorID uint64, from, to time.Time) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots
		WHERE exhibitor_id = ? AND is_available = 1 AND start_time >= ? AND start_time < ?
		ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q, exhibitorID, from.UTC(), to.UTC())
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// HasOverlap reports whether the exhibitor already has a slot intersecting
// [start, end).
func (r *SlotRepo) HasOverlap(ctx context.Context, exhibitorID uint64, start, end time.Time) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM slots WHERE exhibitor_id = ? AND start_time < ? AND end_time > ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, exhibitorID, end.UTC(), start.UTC()).Scan(&exists); err != nil {
		return false, classify(err)
	}
	return exists, nil
}

// WithdrawTx removes a slot from the calendar.  A slot with an active
// booking cannot be withdrawn.  A slot referenced only by finished or
// cancelled bookings is retired (marked unavailable) instead of deleted.
// It reports whether the row was deleted.
func (r *SlotRepo) WithdrawTx(ctx context.Context, tx *sql.Tx, id, exhibitorID uint64) (bool, error) {
	s, err := r.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if s.ExhibitorID != exhibitorID {
		return false, ErrForbidden
	}
	var active, total int
	const q = `SELECT COALESCE(SUM(status IN ('pending','confirmed')), 0), COUNT(*) FROM bookings WHERE slot_id = ?`
	if err := tx.QueryRowContext(ctx, q, id).Scan(&active, &total); err != nil {
		return false, classify(err)
	}
	if active > 0 {
		return false, ErrConflict
	}
	if total > 0 {
		return false, r.SetAvailableTx(ctx, tx, id, false)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id); err != nil {
		return false, classify(err)
	}
	return true, nil
}
