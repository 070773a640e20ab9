package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/expo-appointments/internal/model"
)

var (
	slotCols    = []string{"id", "exhibitor_id", "start_time", "end_time", "duration_minutes", "is_available", "created_at", "updated_at"}
	bookingCols = []string{"id", "user_id", "exhibitor_id", "slot_id", "schedule_id", "booking_date", "start_time", "end_time",
		"duration_minutes", "status", "notes", "created_at", "updated_at"}
	testStart = time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, NewSlotRepo(db), NewScheduleRepo(db), NewBookingRepo(db)), mock
}

func slotRow(id uint64, available bool) *sqlmock.Rows {
	return sqlmock.NewRows(slotCols).AddRow(id, 7, testStart, testStart.Add(30*time.Minute), 30, available, testStart, testStart)
}

func bookingRow(id uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows(bookingCols).AddRow(id, 1, 7, 42, nil, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		"10:00:00", "10:30:00", 30, status, "", testStart, testStart)
}

func TestWithinTxLocksSlotAndCommits(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE id = ? FOR UPDATE")).
		WithArgs(42).
		WillReturnRows(slotRow(42, true))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_available = ? WHERE id = ?")).
		WithArgs(false, 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(q TxQueries) error {
		s, err := q.LockSlot(context.Background(), 42)
		if err != nil {
			return err
		}
		assert.True(t, s.IsAvailable)
		assert.Equal(t, 30, s.DurationMinutes)
		return q.SetSlotAvailable(context.Background(), 42, false)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE id = ? FOR UPDATE")).
		WithArgs(42).
		WillReturnRows(slotRow(42, true))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(q TxQueries) error {
		if _, err := q.LockSlot(context.Background(), 42); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockSlotMissingIsNotFound(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows(slotCols))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(q TxQueries) error {
		_, err := q.LockSlot(context.Background(), 999)
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockWaitTimeoutIsClassified(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(q TxQueries) error {
		_, err := q.LockSlot(context.Background(), 42)
		return err
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBookingDuplicateWindow(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(1, 7, 42, nil, "2025-03-03", "10:00:00", "10:30:00", 30, "pending", "").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_bookings_active_slot'"})
	mock.ExpectRollback()

	slotID := uint64(42)
	err := store.WithinTx(context.Background(), func(q TxQueries) error {
		return q.InsertBooking(context.Background(), &model.Booking{
			UserID: 1, ExhibitorID: 7, SlotID: &slotID, Date: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			StartTime: 600, EndTime: 630, DurationMinutes: 30, Status: model.StatusPending,
		})
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBookingReloadsRow(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).WillReturnResult(sqlmock.NewResult(1001, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).WithArgs(1001).WillReturnRows(bookingRow(1001, "pending"))
	mock.ExpectCommit()

	slotID := uint64(42)
	b := model.Booking{UserID: 1, ExhibitorID: 7, SlotID: &slotID, Date: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		StartTime: 600, EndTime: 630, DurationMinutes: 30, Status: model.StatusPending}
	err := store.WithinTx(context.Background(), func(q TxQueries) error {
		return q.InsertBooking(context.Background(), &b)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), b.ID)
	require.NotNil(t, b.SlotID)
	assert.Equal(t, uint64(42), *b.SlotID)
	assert.Nil(t, b.ScheduleID)
	assert.Equal(t, "10:00", b.StartTime.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveCountsCompletedBookings(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("start_time = ? AND status <> 'cancelled'")).
		WithArgs(7, "2025-03-03", "10:00:00").
		WillReturnRows(bookingRow(9, "completed"))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(q TxQueries) error {
		b, err := q.FindActiveBooking(context.Background(), 7, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), 600)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, b.Status)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLegacyScheduledStatusReadsAsPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).WithArgs(5).WillReturnRows(bookingRow(5, "scheduled"))
	b, err := NewBookingRepo(db).GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, b.Status)
}

func TestSetAvailableConfirmsRowWhenUnchanged(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_available")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots WHERE id = ?")).WithArgs(77).WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(q TxQueries) error {
		return q.SetSlotAvailable(context.Background(), 77, true)
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawSlot(t *testing.T) {
	countQuery := regexp.QuoteMeta("COUNT(*) FROM bookings WHERE slot_id = ?")

	t.Run("unbooked slot is deleted", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnRows(slotRow(42, true))
		mock.ExpectQuery(countQuery).WithArgs(42).WillReturnRows(sqlmock.NewRows([]string{"active", "total"}).AddRow(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slots WHERE id = ?")).WithArgs(42).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deleted, err := store.WithdrawSlot(context.Background(), 42, 7)
		require.NoError(t, err)
		assert.True(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("slot with history is retired", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnRows(slotRow(42, true))
		mock.ExpectQuery(countQuery).WillReturnRows(sqlmock.NewRows([]string{"active", "total"}).AddRow(0, 2))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_available = ?")).WithArgs(false, 42).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deleted, err := store.WithdrawSlot(context.Background(), 42, 7)
		require.NoError(t, err)
		assert.False(t, deleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("booked slot is a conflict", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnRows(slotRow(42, false))
		mock.ExpectQuery(countQuery).WillReturnRows(sqlmock.NewRows([]string{"active", "total"}).AddRow(1, 1))
		mock.ExpectRollback()

		_, err := store.WithdrawSlot(context.Background(), 42, 7)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign slot is forbidden", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnRows(slotRow(42, true))
		mock.ExpectRollback()

		_, err := store.WithdrawSlot(context.Background(), 42, 8)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountStatus(t *testing.T) {
	userQuery := regexp.QuoteMeta("FROM users u LEFT JOIN exhibitors x")
	pendingQuery := regexp.QuoteMeta("FROM registration_requests WHERE email = ? AND status = 'pending'")

	cases := []struct {
		name  string
		setup func(sqlmock.Sqlmock)
		want  model.AccountState
	}{
		{"active exhibitor", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(userQuery).WithArgs("a@b.co").WillReturnRows(sqlmock.NewRows([]string{"role", "active"}).AddRow("EXHIBITOR", true))
		}, model.AccountActive},
		{"inactive exhibitor", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(userQuery).WillReturnRows(sqlmock.NewRows([]string{"role", "active"}).AddRow("EXHIBITOR", false))
		}, model.AccountPending},
		{"visitor account", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(userQuery).WillReturnRows(sqlmock.NewRows([]string{"role", "active"}).AddRow("USER", false))
		}, model.AccountNotExhibitor},
		{"pending request", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(userQuery).WillReturnRows(sqlmock.NewRows([]string{"role", "active"}))
			m.ExpectQuery(pendingQuery).WithArgs("a@b.co").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		}, model.AccountPending},
		{"unknown", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(userQuery).WillReturnRows(sqlmock.NewRows([]string{"role", "active"}))
			m.ExpectQuery(pendingQuery).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		}, model.AccountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tc.setup(mock)

			got, err := NewDirectoryRepo(db).AccountStatus(context.Background(), "  A@B.co ")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEmailTakenCoversEveryRequestStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// a rejected request still owns the address under uq_registration_email
	mock.ExpectQuery(regexp.QuoteMeta("EXISTS(SELECT 1 FROM registration_requests WHERE email = ?)")).
		WithArgs("old@expo.test", "old@expo.test").
		WillReturnRows(sqlmock.NewRows([]string{"taken"}).AddRow(true))

	taken, err := NewDirectoryRepo(db).EmailTaken(context.Background(), " Old@Expo.test")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExhibitorByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	q := regexp.QuoteMeta("WHERE u.email = ? AND u.role = 'EXHIBITOR'")
	repo := NewDirectoryRepo(db)

	mock.ExpectQuery(q).WithArgs("acme@expo.test").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company_name", "is_active"}).AddRow(7, 70, "Acme Foods", true))
	e, err := repo.ExhibitorByEmail(context.Background(), "ACME@expo.test ")
	require.NoError(t, err)
	assert.Equal(t, model.Exhibitor{ID: 7, UserID: 70, CompanyName: "Acme Foods", IsActive: true}, e)

	mock.ExpectQuery(q).WithArgs("visitor@expo.test").WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "company_name", "is_active"}))
	_, err = repo.ExhibitorByEmail(context.Background(), "visitor@expo.test")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDraft(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO email_drafts")).
		WithArgs(7, "acme@expo.test", "Acme Foods", "Stand layout", "Dear Acme Foods", "en", "draft").
		WillReturnResult(sqlmock.NewResult(31, 1))

	d := model.EmailDraft{ExhibitorID: 7, Recipient: "Acme@Expo.test", CompanyName: "Acme Foods", Subject: "Stand layout", Body: "Dear Acme Foods", Lang: "en"}
	require.NoError(t, NewDirectoryRepo(db).SaveDraft(context.Background(), &d))
	assert.Equal(t, uint64(31), d.ID)
	assert.Equal(t, model.DraftStatusDraft, d.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsInsertIgnoresReplays(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ev := model.AnalyticsEvent{ID: "6f1c0c5e-3a61-4b8e-9d7e-2a4c9f1b7e01", ExhibitorID: 7, UserID: 1, ActionType: model.ActionBooking, PageVisited: "appointment", OccurredAt: testStart}
	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO exhibitor_analytics")).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, NewAnalyticsRepo(db).Insert(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}
