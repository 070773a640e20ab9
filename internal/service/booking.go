// Package service holds the booking core: the transactional booking
// operation, the recurring availability expander and the exhibitor
// calendar management around them.
package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/analytics"
	"github.com/iliyamo/expo-appointments/internal/metrics"
	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/repository"
)

const (
	flowSlot     = "slot"
	flowSchedule = "schedule"

	maxNotesLen   = 1000
	recordTimeout = 3 * time.Second
)

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(q repository.TxQueries) error) error
}

// BookingLedger is the read side of the bookings table.
type BookingLedger interface {
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListByExhibitor(ctx context.Context, exhibitorID uint64, status model.BookingStatus) ([]model.Booking, error)
}

// ExhibitorFinder resolves the exhibitor profile of a user.
type ExhibitorFinder interface {
	GetByUserID(ctx context.Context, userID uint64) (model.Exhibitor, error)
}

// BookRequest targets either an ad-hoc slot (SlotID) or one session of a
// recurring schedule (ScheduleID plus Date and Time).
type BookRequest struct {
	UserID     uint64
	SlotID     *uint64
	ScheduleID *uint64
	Date       string // YYYY-MM-DD, schedule flow only
	Time       string // HH:MM, schedule flow only
	Notes      string
}

// BookResult is the booking created, or found when Replayed is true.
type BookResult struct {
	Booking  model.Booking
	Replayed bool
}

// Actor is the authenticated caller of a ledger operation.
type Actor struct {
	UserID uint64
	Role   string
}

// BookingService turns booking requests into ledger rows under an
// exclusive row lock.
type BookingService struct {
	tx         TxRunner
	ledger     BookingLedger
	exhibitors ExhibitorFinder
	recorder   analytics.Recorder
	log        *zap.Logger
	now        func() time.Time
}

// NewBookingService panics on a nil dependency.  A nil recorder disables
// analytics.
func NewBookingService(tx TxRunner, ledger BookingLedger, exhibitors ExhibitorFinder, recorder analytics.Recorder, log *zap.Logger) *BookingService {
	if tx == nil || ledger == nil || exhibitors == nil || log == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{
		tx:         tx,
		ledger:     ledger,
		exhibitors: exhibitors,
		recorder:   recorder,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Book creates a pending booking.  It fails with ErrInvalidRequest,
// ErrNotFound, ErrSlotUnavailable or ErrPersistence.  Repeating a request
// that already succeeded returns the existing booking with Replayed set.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (BookResult, error) {
	flow := flowSlot
	if req.ScheduleID != nil {
		flow = flowSchedule
	}
	started := time.Now()
	res, err := s.book(ctx, req)
	metrics.ObserveBooking(flow, outcome(err, res.Replayed), time.Since(started))

	if err != nil {
		fields := []zap.Field{zap.String("flow", flow), zap.Uint64("user_id", req.UserID), zap.Error(err)}
		if errors.Is(err, ErrPersistence) {
			s.log.Error("booking failed", fields...)
		} else {
			s.log.Info("booking rejected", fields...)
		}
		return BookResult{}, err
	}
	if res.Replayed {
		s.log.Info("booking replayed", zap.Uint64("booking_id", res.Booking.ID), zap.Uint64("user_id", req.UserID))
		return res, nil
	}
	s.log.Info("booking created",
		zap.Uint64("booking_id", res.Booking.ID),
		zap.Uint64("exhibitor_id", res.Booking.ExhibitorID),
		zap.String("date", res.Booking.DateString()),
		zap.String("start", res.Booking.StartTime.String()),
		zap.String("flow", flow))
	s.record(ctx, res.Booking, model.ActionBooking)
	return res, nil
}

func (s *BookingService) book(ctx context.Context, req BookRequest) (BookResult, error) {
	notes, err := validateBook(req)
	if err != nil {
		return BookResult{}, err
	}
	if req.SlotID != nil {
		return s.bookSlot(ctx, req.UserID, *req.SlotID, notes)
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return BookResult{}, invalid("date must be YYYY-MM-DD")
	}
	start, err := model.ParseClock(req.Time)
	if err != nil {
		return BookResult{}, invalid("time must be HH:MM")
	}
	return s.bookSession(ctx, req.UserID, *req.ScheduleID, date, start, notes)
}

func validateBook(req BookRequest) (string, error) {
	if req.UserID == 0 {
		return "", invalid("user is required")
	}
	switch {
	case req.SlotID == nil && req.ScheduleID == nil:
		return "", invalid("slot_id or schedule_id is required")
	case req.SlotID != nil && req.ScheduleID != nil:
		return "", invalid("slot_id and schedule_id are mutually exclusive")
	case req.SlotID != nil && *req.SlotID == 0:
		return "", invalid("slot_id must be positive")
	case req.ScheduleID != nil && *req.ScheduleID == 0:
		return "", invalid("schedule_id must be positive")
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return "", invalid("notes exceed %d characters", maxNotesLen)
	}
	return notes, nil
}

// bookSlot is the ad-hoc flow: lock the slot, check, insert, flip.
func (s *BookingService) bookSlot(ctx context.Context, userID, slotID uint64, notes string) (BookResult, error) {
	var res BookResult
	err := s.tx.WithinTx(ctx, func(q repository.TxQueries) error {
		slot, err := q.LockSlot(ctx, slotID)
		if err != nil {
			return storageErr("lock slot", err)
		}
		date, start := model.DateOf(slot.StartTime), model.ClockOf(slot.StartTime)
		target := &slotID

		existing, found, err := findActive(ctx, q, slot.ExhibitorID, date, start)
		if err != nil {
			return err
		}
		if found {
			if existing.UserID == userID && existing.SameTarget(target, nil) {
				res = BookResult{Booking: existing, Replayed: true}
				return nil
			}
			return ErrSlotUnavailable
		}
		if !slot.IsAvailable || !slot.StartTime.After(s.now()) {
			return ErrSlotUnavailable
		}

		b := model.Booking{
			UserID:          userID,
			ExhibitorID:     slot.ExhibitorID,
			SlotID:          target,
			Date:            date,
			StartTime:       start,
			EndTime:         model.ClockOf(slot.EndTime),
			DurationMinutes: slot.DurationMinutes,
			Status:          model.StatusPending,
			Notes:           notes,
		}
		if err := insert(ctx, q, &b); err != nil {
			return err
		}
		if err := q.SetSlotAvailable(ctx, slotID, false); err != nil {
			return storageErr("mark slot unavailable", err)
		}
		res = BookResult{Booking: b}
		return nil
	})
	if err != nil {
		return BookResult{}, storageErr("book slot", err)
	}
	return res, nil
}

// bookSession is the recurring flow.  Sessions are virtual, so the
// schedule row lock plus the uniqueness check are the whole guard.
func (s *BookingService) bookSession(ctx context.Context, userID, scheduleID uint64, date time.Time, start model.Clock, notes string) (BookResult, error) {
	var res BookResult
	err := s.tx.WithinTx(ctx, func(q repository.TxQueries) error {
		sched, err := q.LockSchedule(ctx, scheduleID)
		if err != nil {
			return storageErr("lock schedule", err)
		}
		if !sched.IsActive {
			return ErrNotFound
		}
		w, ok := SessionAt(sched, date, start)
		if !ok {
			return invalid("no session of schedule %d starts at %s on %s", scheduleID, start, date.Format(model.DateLayout))
		}
		if !w.Start.On(w.Date).After(s.now()) {
			return ErrSlotUnavailable
		}
		target := &scheduleID

		existing, found, err := findActive(ctx, q, sched.ExhibitorID, w.Date, w.Start)
		if err != nil {
			return err
		}
		if found {
			if existing.UserID == userID && existing.SameTarget(nil, target) {
				res = BookResult{Booking: existing, Replayed: true}
				return nil
			}
			return ErrSlotUnavailable
		}

		b := model.Booking{
			UserID:          userID,
			ExhibitorID:     sched.ExhibitorID,
			ScheduleID:      target,
			Date:            w.Date,
			StartTime:       w.Start,
			EndTime:         w.End,
			DurationMinutes: sched.SessionDuration,
			Status:          model.StatusPending,
			Notes:           notes,
		}
		if err := insert(ctx, q, &b); err != nil {
			return err
		}
		res = BookResult{Booking: b}
		return nil
	})
	if err != nil {
		return BookResult{}, storageErr("book session", err)
	}
	return res, nil
}

func findActive(ctx context.Context, q repository.TxQueries, exhibitorID uint64, date time.Time, start model.Clock) (model.Booking, bool, error) {
	b, err := q.FindActiveBooking(ctx, exhibitorID, date, start)
	switch {
	case err == nil:
		return b, true, nil
	case errors.Is(err, repository.ErrNotFound):
		return model.Booking{}, false, nil
	}
	return model.Booking{}, false, storageErr("find active booking", err)
}

func insert(ctx context.Context, q repository.TxQueries, b *model.Booking) error {
	err := q.InsertBooking(ctx, b)
	if errors.Is(err, repository.ErrDuplicate) {
		// another flow took the same window between our check and insert
		return ErrSlotUnavailable
	}
	return storageErr("insert booking", err)
}

// Cancel cancels a pending or confirmed booking on behalf of its user or
// its exhibitor and reopens the ad-hoc slot in the same transaction.
// Cancelling twice returns the cancelled booking.
func (s *BookingService) Cancel(ctx context.Context, actor Actor, bookingID uint64) (model.Booking, error) {
	if bookingID == 0 {
		return model.Booking{}, invalid("booking id must be positive")
	}
	current, err := s.ledger.GetByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, storageErr("load booking", err)
	}
	exhibitorID := s.actorExhibitor(ctx, actor)

	var (
		out     model.Booking
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(q repository.TxQueries) error {
		// slot before booking, the same order as the booking flow
		if current.SlotID != nil {
			if _, err := q.LockSlot(ctx, *current.SlotID); err != nil {
				return storageErr("lock slot", err)
			}
		}
		b, err := q.LockBooking(ctx, bookingID)
		if err != nil {
			return storageErr("lock booking", err)
		}
		if b.UserID != actor.UserID && (exhibitorID == 0 || b.ExhibitorID != exhibitorID) {
			return ErrForbidden
		}
		if b.Status == model.StatusCancelled {
			out = b
			return nil
		}
		if !model.CanTransition(b.Status, model.StatusCancelled) {
			return ErrConflict
		}
		if err := q.SetBookingStatus(ctx, b.ID, model.StatusCancelled); err != nil {
			return storageErr("cancel booking", err)
		}
		if b.SlotID != nil {
			if err := q.SetSlotAvailable(ctx, *b.SlotID, true); err != nil {
				return storageErr("reopen slot", err)
			}
		}
		b.Status = model.StatusCancelled
		out, changed = b, true
		return nil
	})
	if err != nil {
		return model.Booking{}, storageErr("cancel booking", err)
	}
	if changed {
		metrics.ObserveTransition(string(model.StatusCancelled))
		s.log.Info("booking cancelled", zap.Uint64("booking_id", out.ID), zap.Uint64("actor", actor.UserID))
		s.record(ctx, out, model.ActionCancellation)
	}
	return out, nil
}

// UpdateStatus lets the owning exhibitor confirm or complete a booking.
// Setting the current status again is a no-op.
func (s *BookingService) UpdateStatus(ctx context.Context, exhibitorUserID, bookingID uint64, status model.BookingStatus) (model.Booking, error) {
	if status == model.StatusCancelled {
		return s.Cancel(ctx, Actor{UserID: exhibitorUserID, Role: model.RoleExhibitor}, bookingID)
	}
	if status != model.StatusConfirmed && status != model.StatusCompleted {
		return model.Booking{}, invalid("status must be confirmed, completed or cancelled")
	}
	ex, err := s.exhibitors.GetByUserID(ctx, exhibitorUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Booking{}, ErrForbidden
		}
		return model.Booking{}, storageErr("load exhibitor", err)
	}

	var (
		out     model.Booking
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(q repository.TxQueries) error {
		b, err := q.LockBooking(ctx, bookingID)
		if err != nil {
			return storageErr("lock booking", err)
		}
		if b.ExhibitorID != ex.ID {
			return ErrForbidden
		}
		if b.Status == status {
			out = b
			return nil
		}
		if !model.CanTransition(b.Status, status) {
			return ErrConflict
		}
		if err := q.SetBookingStatus(ctx, b.ID, status); err != nil {
			return storageErr("update status", err)
		}
		b.Status = status
		out, changed = b, true
		return nil
	})
	if err != nil {
		return model.Booking{}, storageErr("update status", err)
	}
	if changed {
		metrics.ObserveTransition(string(status))
		s.log.Info("booking status changed", zap.Uint64("booking_id", out.ID), zap.String("status", string(status)))
	}
	return out, nil
}

// ListForUser returns the caller's bookings.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	out, err := s.ledger.ListByUser(ctx, userID)
	return out, storageErr("list user bookings", err)
}

// ListForExhibitor returns the bookings made with the caller's exhibitor
// profile, optionally filtered by status.
func (s *BookingService) ListForExhibitor(ctx context.Context, exhibitorUserID uint64, status model.BookingStatus) ([]model.Booking, error) {
	ex, err := s.exhibitors.GetByUserID(ctx, exhibitorUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, storageErr("load exhibitor", err)
	}
	out, err := s.ledger.ListByExhibitor(ctx, ex.ID, status)
	return out, storageErr("list exhibitor bookings", err)
}

func (s *BookingService) actorExhibitor(ctx context.Context, actor Actor) uint64 {
	if actor.Role != model.RoleExhibitor {
		return 0
	}
	ex, err := s.exhibitors.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return 0
	}
	return ex.ID
}

// record appends an analytics event after commit.  It runs on a context
// detached from the request so a client disconnect does not drop it, and
// its failure never reaches the caller.
func (s *BookingService) record(ctx context.Context, b model.Booking, action string) {
	if s.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	ev := analytics.NewEvent(b.ExhibitorID, b.UserID, action, "appointment")
	if err := s.recorder.Record(rctx, ev); err != nil {
		metrics.AnalyticsFailed(sinkName(s.recorder))
		s.log.Warn("analytics record failed", zap.String("action", action), zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}

func sinkName(r analytics.Recorder) string {
	if n, ok := r.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "unknown"
}

func outcome(err error, replayed bool) string {
	switch {
	case err == nil && replayed:
		return "replayed"
	case err == nil:
		return "success"
	case errors.Is(err, ErrSlotUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	}
	return "error"
}
