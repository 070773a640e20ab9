package service

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL store.  One mutex held
// for the whole transaction plays the role of the row lock, and a snapshot
// taken at begin is restored on rollback.
type memStore struct {
	mu         sync.Mutex
	slots      map[uint64]model.Slot
	schedules  map[uint64]model.RecurringSchedule
	bookings   map[uint64]model.Booking
	exhibitors map[uint64]model.Exhibitor // keyed by user id
	nextID     uint64

	failSetSlot error
	failInsert  error
	holdLock    time.Duration
}

func newMemStore() *memStore {
	return &memStore{
		slots:      map[uint64]model.Slot{},
		schedules:  map[uint64]model.RecurringSchedule{},
		bookings:   map[uint64]model.Booking{},
		exhibitors: map[uint64]model.Exhibitor{},
		nextID:     1000,
	}
}

type memSnapshot struct {
	slots    map[uint64]model.Slot
	bookings map[uint64]model.Booking
	nextID   uint64
}

func (m *memStore) WithinTx(ctx context.Context, fn func(q repository.TxQueries) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := memSnapshot{slots: maps.Clone(m.slots), bookings: maps.Clone(m.bookings), nextID: m.nextID}
	err := fn(&memTx{m: m})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.slots, m.bookings, m.nextID = snap.slots, snap.bookings, snap.nextID
	}
	return err
}

type memTx struct{ m *memStore }

func (t *memTx) LockSlot(_ context.Context, id uint64) (model.Slot, error) {
	if t.m.holdLock > 0 {
		time.Sleep(t.m.holdLock)
	}
	s, ok := t.m.slots[id]
	if !ok {
		return model.Slot{}, repository.ErrNotFound
	}
	return s, nil
}

func (t *memTx) SetSlotAvailable(_ context.Context, id uint64, available bool) error {
	if t.m.failSetSlot != nil {
		return t.m.failSetSlot
	}
	s, ok := t.m.slots[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsAvailable = available
	t.m.slots[id] = s
	return nil
}

func (t *memTx) LockSchedule(_ context.Context, id uint64) (model.RecurringSchedule, error) {
	if t.m.holdLock > 0 {
		time.Sleep(t.m.holdLock)
	}
	s, ok := t.m.schedules[id]
	if !ok {
		return model.RecurringSchedule{}, repository.ErrNotFound
	}
	return s, nil
}

func (t *memTx) FindActiveBooking(_ context.Context, exhibitorID uint64, date time.Time, start model.Clock) (model.Booking, error) {
	for _, b := range t.m.bookings {
		if b.ExhibitorID == exhibitorID && b.Date.Equal(date) && b.StartTime == start && b.Status.Occupies() {
			return b, nil
		}
	}
	return model.Booking{}, repository.ErrNotFound
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	if t.m.failInsert != nil {
		return t.m.failInsert
	}
	if _, err := t.FindActiveBooking(ctx, b.ExhibitorID, b.Date, b.StartTime); err == nil {
		return repository.ErrDuplicate
	}
	t.m.nextID++
	b.ID = t.m.nextID
	t.m.bookings[b.ID] = *b
	return nil
}

func (t *memTx) LockBooking(_ context.Context, id uint64) (model.Booking, error) {
	b, ok := t.m.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (t *memTx) SetBookingStatus(_ context.Context, id uint64, status model.BookingStatus) error {
	b, ok := t.m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = status
	t.m.bookings[id] = b
	return nil
}

// read side

func (m *memStore) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListByExhibitor(_ context.Context, exhibitorID uint64, status model.BookingStatus) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.ExhibitorID == exhibitorID && (status == "" || b.Status == status) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveBetween(_ context.Context, exhibitorID uint64, from, to time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.ExhibitorID == exhibitorID && b.Status.Occupies() && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) GetByUserID(_ context.Context, userID uint64) (model.Exhibitor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exhibitors[userID]
	if !ok {
		return model.Exhibitor{}, repository.ErrNotFound
	}
	return e, nil
}

func (m *memStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *memStore) slot(id uint64) model.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[id]
}

// memSlots and memSchedules expose the read interfaces whose method names
// collide with the ledger's GetByID.

type memSlots struct{ m *memStore }

func (s memSlots) ListAvailable(_ context.Context, exhibitorID uint64, from, to time.Time) ([]model.Slot, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Slot
	for _, sl := range s.m.slots {
		if sl.ExhibitorID == exhibitorID && sl.IsAvailable && !sl.StartTime.Before(from) && sl.StartTime.Before(to) {
			out = append(out, sl)
		}
	}
	return out, nil
}

type memSchedules struct{ m *memStore }

func (s memSchedules) GetByID(_ context.Context, id uint64) (model.RecurringSchedule, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sc, ok := s.m.schedules[id]
	if !ok {
		return model.RecurringSchedule{}, repository.ErrNotFound
	}
	return sc, nil
}

func (s memSchedules) ListActiveByExhibitor(_ context.Context, exhibitorID uint64) ([]model.RecurringSchedule, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.RecurringSchedule
	for _, sc := range s.m.schedules {
		if sc.ExhibitorID == exhibitorID && sc.IsActive {
			out = append(out, sc)
		}
	}
	return out, nil
}

type fakeRecorder struct {
	mu  sync.Mutex
	got []model.AnalyticsEvent
	err error
}

func (f *fakeRecorder) Record(_ context.Context, ev model.AnalyticsEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, ev)
	return f.err
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}
