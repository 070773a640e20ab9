package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/repository"
)

// Slot durations an exhibitor may offer, in minutes.
const (
	MinSlotMinutes = 5
	MaxSlotMinutes = 8 * 60
)

// SlotWriter persists ad-hoc slots.
type SlotWriter interface {
	Create(ctx context.Context, s *model.Slot) error
	HasOverlap(ctx context.Context, exhibitorID uint64, start, end time.Time) (bool, error)
}

// SlotWithdrawer removes or retires a slot under lock.
type SlotWithdrawer interface {
	WithdrawSlot(ctx context.Context, id, exhibitorID uint64) (bool, error)
}

// ScheduleWriter persists recurring schedules.
type ScheduleWriter interface {
	Create(ctx context.Context, s *model.RecurringSchedule) error
	Deactivate(ctx context.Context, id, exhibitorID uint64) error
}

// CalendarService is the exhibitor-facing management of slots and
// schedules.  Exhibitors may only change their own records.
type CalendarService struct {
	exhibitors ExhibitorFinder
	slots      SlotWriter
	withdrawer SlotWithdrawer
	schedules  ScheduleWriter
	log        *zap.Logger
	now        func() time.Time
}

func NewCalendarService(exhibitors ExhibitorFinder, slots SlotWriter, withdrawer SlotWithdrawer, schedules ScheduleWriter, log *zap.Logger) *CalendarService {
	if exhibitors == nil || slots == nil || withdrawer == nil || schedules == nil || log == nil {
		panic("nil dependency passed to NewCalendarService")
	}
	return &CalendarService{
		exhibitors: exhibitors,
		slots:      slots,
		withdrawer: withdrawer,
		schedules:  schedules,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *CalendarService) owner(ctx context.Context, userID uint64) (model.Exhibitor, error) {
	ex, err := s.exhibitors.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Exhibitor{}, ErrForbidden
		}
		return model.Exhibitor{}, storageErr("load exhibitor", err)
	}
	if !ex.IsActive {
		return model.Exhibitor{}, ErrForbidden
	}
	return ex, nil
}

// CreateSlot offers a new ad-hoc window.  It must start in the future, fit
// in one calendar day and not overlap another slot of the exhibitor.
func (s *CalendarService) CreateSlot(ctx context.Context, userID uint64, start time.Time, minutes int) (model.Slot, error) {
	if minutes < MinSlotMinutes || minutes > MaxSlotMinutes {
		return model.Slot{}, invalid("duration must be between %d and %d minutes", MinSlotMinutes, MaxSlotMinutes)
	}
	start = start.UTC().Truncate(time.Minute)
	end := start.Add(time.Duration(minutes) * time.Minute)
	if !start.After(s.now()) {
		return model.Slot{}, invalid("start must be in the future")
	}
	if !model.DateOf(end.Add(-time.Minute)).Equal(model.DateOf(start)) {
		return model.Slot{}, invalid("slot must not cross midnight")
	}
	ex, err := s.owner(ctx, userID)
	if err != nil {
		return model.Slot{}, err
	}
	overlap, err := s.slots.HasOverlap(ctx, ex.ID, start, end)
	if err != nil {
		return model.Slot{}, storageErr("check overlap", err)
	}
	if overlap {
		return model.Slot{}, ErrConflict
	}
	slot := model.Slot{ExhibitorID: ex.ID, StartTime: start, EndTime: end, DurationMinutes: minutes, IsAvailable: true}
	if err := s.slots.Create(ctx, &slot); err != nil {
		return model.Slot{}, storageErr("create slot", err)
	}
	s.log.Info("slot created", zap.Uint64("slot_id", slot.ID), zap.Uint64("exhibitor_id", ex.ID))
	return slot, nil
}

// WithdrawSlot deletes an unbooked slot, or retires it when past bookings
// still reference it.  It reports whether the row was deleted.
func (s *CalendarService) WithdrawSlot(ctx context.Context, userID, slotID uint64) (bool, error) {
	if slotID == 0 {
		return false, invalid("slot id must be positive")
	}
	ex, err := s.owner(ctx, userID)
	if err != nil {
		return false, err
	}
	deleted, err := s.withdrawer.WithdrawSlot(ctx, slotID, ex.ID)
	if err != nil {
		return false, storageErr("withdraw slot", err)
	}
	return deleted, nil
}

// CreateSchedule adds a weekly rule.
func (s *CalendarService) CreateSchedule(ctx context.Context, userID uint64, sc model.RecurringSchedule) (model.RecurringSchedule, error) {
	if !sc.Valid() {
		return model.RecurringSchedule{}, invalid("schedule needs day_of_week 0-6, start < end and at least one full session")
	}
	ex, err := s.owner(ctx, userID)
	if err != nil {
		return model.RecurringSchedule{}, err
	}
	sc.ExhibitorID = ex.ID
	sc.IsActive = true
	if err := s.schedules.Create(ctx, &sc); err != nil {
		return model.RecurringSchedule{}, storageErr("create schedule", err)
	}
	s.log.Info("schedule created", zap.Uint64("schedule_id", sc.ID), zap.Uint64("exhibitor_id", ex.ID))
	return sc, nil
}

// DeactivateSchedule stops offering a schedule.  Its bookings stay.
func (s *CalendarService) DeactivateSchedule(ctx context.Context, userID, scheduleID uint64) error {
	if scheduleID == 0 {
		return invalid("schedule id must be positive")
	}
	ex, err := s.owner(ctx, userID)
	if err != nil {
		return err
	}
	return storageErr("deactivate schedule", s.schedules.Deactivate(ctx, scheduleID, ex.ID))
}
