package service

import (
	"context"
	"errors"
	"iter"
	"slices"
	"time"

	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/repository"
)

// MaxListingDays bounds a single availability query.
const MaxListingDays = 92

// SlotLister reads open ad-hoc slots.
type SlotLister interface {
	ListAvailable(ctx context.Context, exhibitorID uint64, from, to time.Time) ([]model.Slot, error)
}

// ScheduleReader reads recurring schedules.
type ScheduleReader interface {
	GetByID(ctx context.Context, id uint64) (model.RecurringSchedule, error)
	ListActiveByExhibitor(ctx context.Context, exhibitorID uint64) ([]model.RecurringSchedule, error)
}

// ActiveBookings reads the non-cancelled bookings of an exhibitor.
type ActiveBookings interface {
	ListActiveBetween(ctx context.Context, exhibitorID uint64, from, to time.Time) ([]model.Booking, error)
}

// Opening is one bookable window offered to visitors.  Exactly one of
// SlotID and ScheduleID is set.
type Opening struct {
	Window
	SlotID     *uint64
	ScheduleID *uint64
}

// AvailabilityService lists what an exhibitor can still be booked for.
// Reads take no locks; Book re-checks under lock.
type AvailabilityService struct {
	slots     SlotLister
	schedules ScheduleReader
	bookings  ActiveBookings
	now       func() time.Time
}

func NewAvailabilityService(slots SlotLister, schedules ScheduleReader, bookings ActiveBookings) *AvailabilityService {
	if slots == nil || schedules == nil || bookings == nil {
		panic("nil dependency passed to NewAvailabilityService")
	}
	return &AvailabilityService{slots: slots, schedules: schedules, bookings: bookings, now: func() time.Time { return time.Now().UTC() }}
}

// Range resolves an optional [from, to] date pair.  Missing bounds default
// to today and today + DefaultHorizonDays.
func (s *AvailabilityService) Range(from, to string) (time.Time, time.Time, error) {
	today := model.DateOf(s.now())
	start, end := today, today.AddDate(0, 0, DefaultHorizonDays)
	var err error
	if from != "" {
		if start, err = model.ParseDate(from); err != nil {
			return time.Time{}, time.Time{}, invalid("from must be YYYY-MM-DD")
		}
		if to == "" {
			end = start.AddDate(0, 0, DefaultHorizonDays)
		}
	}
	if to != "" {
		if end, err = model.ParseDate(to); err != nil {
			return time.Time{}, time.Time{}, invalid("to must be YYYY-MM-DD")
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, invalid("to is before from")
	}
	if end.Sub(start) > MaxListingDays*24*time.Hour {
		return time.Time{}, time.Time{}, invalid("range exceeds %d days", MaxListingDays)
	}
	return start, end, nil
}

// ForExhibitor lists open ad-hoc slots and free recurring sessions with a
// date in [from, to], sorted by date and start.  Windows that exactly match
// an active booking, and windows already started, are left out.
func (s *AvailabilityService) ForExhibitor(ctx context.Context, exhibitorID uint64, from, to time.Time) ([]Opening, error) {
	if exhibitorID == 0 {
		return nil, invalid("exhibitor id must be positive")
	}
	from, to = model.DateOf(from), model.DateOf(to)
	booked, err := s.bookings.ListActiveBetween(ctx, exhibitorID, from, to)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	slots, err := s.slots.ListAvailable(ctx, exhibitorID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, storageErr("list slots", err)
	}
	scheds, err := s.schedules.ListActiveByExhibitor(ctx, exhibitorID)
	if err != nil {
		return nil, storageErr("list schedules", err)
	}

	now := s.now()
	var out []Opening
	for w, id := range slotWindows(slots) {
		if w.Start.On(w.Date).After(now) {
			out = append(out, Opening{Window: w, SlotID: &id})
		}
	}
	out = slices.DeleteFunc(out, bookedFilter(booked))
	for _, sc := range scheds {
		id := sc.ID
		for w := range FilterBooked(Expand(sc, from, to), booked) {
			if w.Start.On(w.Date).After(now) {
				out = append(out, Opening{Window: w, ScheduleID: &id})
			}
		}
	}
	sortOpenings(out)
	return out, nil
}

// ForSchedule lists the free sessions of one schedule on date.
func (s *AvailabilityService) ForSchedule(ctx context.Context, scheduleID uint64, date time.Time) ([]Opening, error) {
	if scheduleID == 0 {
		return nil, invalid("schedule id must be positive")
	}
	sc, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("load schedule", err)
	}
	if !sc.IsActive {
		return nil, ErrNotFound
	}
	date = model.DateOf(date)
	booked, err := s.bookings.ListActiveBetween(ctx, sc.ExhibitorID, date, date)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	now := s.now()
	out := []Opening{}
	for w := range FilterBooked(Expand(sc, date, date), booked) {
		if w.Start.On(w.Date).After(now) {
			out = append(out, Opening{Window: w, ScheduleID: &scheduleID})
		}
	}
	return out, nil
}

func slotWindows(slots []model.Slot) iter.Seq2[Window, uint64] {
	return func(yield func(Window, uint64) bool) {
		for _, sl := range slots {
			w := Window{Date: model.DateOf(sl.StartTime), Start: model.ClockOf(sl.StartTime), End: model.ClockOf(sl.EndTime)}
			if !yield(w, sl.ID) {
				return
			}
		}
	}
}

func bookedFilter(bookings []model.Booking) func(Opening) bool {
	taken := make(map[windowKey]struct{}, len(bookings))
	for _, b := range bookings {
		if b.Status.Occupies() {
			taken[windowKey{b.DateString(), b.StartTime, b.EndTime}] = struct{}{}
		}
	}
	return func(o Opening) bool {
		_, ok := taken[windowKey{o.Date.Format(model.DateLayout), o.Start, o.End}]
		return ok
	}
}

func sortOpenings(out []Opening) {
	slices.SortStableFunc(out, func(a, b Opening) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return int(a.Start - b.Start)
	})
}
