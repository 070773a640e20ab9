package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// BookingRepo is the booking ledger.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, exhibitor_id, slot_id, schedule_id, booking_date, start_time, end_time,
	duration_minutes, status, COALESCE(notes, ''), created_at, updated_at`

func scanBooking(row scanner) (model.Booking, error) {
	var (
		b          model.Booking
		slotID     sql.NullInt64
		scheduleID sql.NullInt64
		status     string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.ExhibitorID, &slotID, &scheduleID, &b.Date, &b.StartTime, &b.EndTime,
		&b.DurationMinutes, &status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, classify(err)
	}
	b.SlotID = nullID(slotID)
	b.ScheduleID = nullID(scheduleID)
	if st, ok := model.ParseStatus(status); ok {
		b.Status = st
	} else {
		b.Status = model.BookingStatus(status)
	}
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateTx inserts a booking inside tx and reloads it.  A collision on the
// active (exhibitor, date, start_time) key yields ErrDuplicate.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, exhibitor_id, slot_id, schedule_id, booking_date, start_time, end_time,
		duration_minutes, status, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.ExhibitorID, idArg(b.SlotID), idArg(b.ScheduleID),
		b.DateString(), b.StartTime, b.EndTime, b.DurationMinutes, string(b.Status), b.Notes)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*b = got
	return nil
}

// FindActiveTx returns the non-cancelled booking occupying the window that
// starts at start on date, or ErrNotFound.
func (r *BookingRepo) FindActiveTx(ctx context.Context, tx *sql.Tx, exhibitorID uint64, date time.Time, start model.Clock) (model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
		WHERE exhibitor_id = ? AND booking_date = ? AND start_time = ? AND status <> 'cancelled'
		LIMIT 1`
	return scanBooking(tx.QueryRowContext(ctx, q, exhibitorID, date.Format(model.DateLayout), start))
}

// GetForUpdateTx locks a booking row.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
}

// UpdateStatusTx sets the status of a booking.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(status), id)
	return classify(err)
}

// GetByID loads a booking without locking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

// ListByUser returns a user's bookings, most recent first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE user_id = ? ORDER BY booking_date DESC, start_time DESC`, userID)
	if err != nil {
		return nil, classify(err)
	}
	return scanBookings(rows)
}

// ListByExhibitor returns an exhibitor's bookings, optionally limited to
// one status, in calendar order.
func (r *BookingRepo) ListByExhibitor(ctx context.Context, exhibitorID uint64, status model.BookingStatus) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE exhibitor_id = ?`
	args := []any{exhibitorID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY booking_date, start_time`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	return scanBookings(rows)
}

// ListActiveBetween returns the exhibitor's non-cancelled bookings with a
// booking date in [from, to], inclusive.
func (r *BookingRepo) ListActiveBetween(ctx context.Context, exhibitorID uint64, from, to time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
		WHERE exhibitor_id = ? AND booking_date BETWEEN ? AND ? AND status <> 'cancelled'
		ORDER BY booking_date, start_time`
	rows, err := r.db.QueryContext(ctx, q, exhibitorID, from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, classify(err)
	}
	return scanBookings(rows)
}
