package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// TxQueries is the set of operations available inside a booking
// transaction.  Lock* methods take an exclusive row lock held until the
// transaction ends.
type TxQueries interface {
	LockSlot(ctx context.Context, id uint64) (model.Slot, error)
	SetSlotAvailable(ctx context.Context, id uint64, available bool) error
	LockSchedule(ctx context.Context, id uint64) (model.RecurringSchedule, error)
	FindActiveBooking(ctx context.Context, exhibitorID uint64, date time.Time, start model.Clock) (model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	LockBooking(ctx context.Context, id uint64) (model.Booking, error)
	SetBookingStatus(ctx context.Context, id uint64, status model.BookingStatus) error
}

// Store owns the pool and hands out transactions over the booking tables.
type Store struct {
	db        *sql.DB
	slots     *SlotRepo
	schedules *ScheduleRepo
	bookings  *BookingRepo
}

// NewStore wires the repositories that share a transaction.
func NewStore(db *sql.DB, slots *SlotRepo, schedules *ScheduleRepo, bookings *BookingRepo) *Store {
	if db == nil || slots == nil || schedules == nil || bookings == nil {
		panic("nil dependency passed to NewStore")
	}
	return &Store{db: db, slots: slots, schedules: schedules, bookings: bookings}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// InTx runs fn inside a transaction.  The transaction commits when fn
// returns nil and rolls back otherwise, including on panic.
func (s *Store) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	return nil
}

// WithinTx is InTx with the booking queries bound to the transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(q TxQueries) error) error {
	return s.InTx(ctx, func(tx *sql.Tx) error {
		return fn(&txQueries{tx: tx, s: s})
	})
}

// WithdrawSlot runs SlotRepo.WithdrawTx in its own transaction.
func (s *Store) WithdrawSlot(ctx context.Context, id, exhibitorID uint64) (bool, error) {
	var deleted bool
	err := s.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = s.slots.WithdrawTx(ctx, tx, id, exhibitorID)
		return err
	})
	return deleted, err
}

type txQueries struct {
	tx *sql.Tx
	s  *Store
}

func (q *txQueries) LockSlot(ctx context.Context, id uint64) (model.Slot, error) {
	return q.s.slots.GetForUpdateTx(ctx, q.tx, id)
}

func (q *txQueries) SetSlotAvailable(ctx context.Context, id uint64, available bool) error {
	return q.s.slots.SetAvailableTx(ctx, q.tx, id, available)
}

func (q *txQueries) LockSchedule(ctx context.Context, id uint64) (model.RecurringSchedule, error) {
	return q.s.schedules.GetForUpdateTx(ctx, q.tx, id)
}

func (q *txQueries) FindActiveBooking(ctx context.Context, exhibitorID uint64, date time.Time, start model.Clock) (model.Booking, error) {
	return q.s.bookings.FindActiveTx(ctx, q.tx, exhibitorID, date, start)
}

func (q *txQueries) InsertBooking(ctx context.Context, b *model.Booking) error {
	return q.s.bookings.CreateTx(ctx, q.tx, b)
}

func (q *txQueries) LockBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return q.s.bookings.GetForUpdateTx(ctx, q.tx, id)
}

func (q *txQueries) SetBookingStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	return q.s.bookings.UpdateStatusTx(ctx, q.tx, id, status)
}
