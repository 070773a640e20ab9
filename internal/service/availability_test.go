package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/expo-appointments/internal/model"
)

func newAvailabilityFixture(t *testing.T) (*AvailabilityService, *BookingService, *memStore) {
	t.Helper()
	bookings, st, _ := newBookingFixture(t)
	av := NewAvailabilityService(memSlots{st}, memSchedules{st}, st)
	av.now = func() time.Time { return testNow }
	return av, bookings, st
}

func TestRangeDefaultsAndLimits(t *testing.T) {
	av, _, _ := newAvailabilityFixture(t)

	from, to, err := av.Range("", "")
	require.NoError(t, err)
	assert.Equal(t, day("2025-03-01"), from)
	assert.Equal(t, day("2025-03-31"), to)

	from, to, err = av.Range("2025-04-01", "")
	require.NoError(t, err)
	assert.Equal(t, day("2025-04-01"), from)
	assert.Equal(t, day("2025-05-01"), to)

	_, _, err = av.Range("2025-04-10", "2025-04-01")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, _, err = av.Range("2025-01-01", "2025-12-31")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, _, err = av.Range("tomorrow", "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestForExhibitorMergesSlotsAndSessions(t *testing.T) {
	av, _, _ := newAvailabilityFixture(t)

	got, err := av.ForExhibitor(context.Background(), 7, day("2025-03-01"), day("2025-03-07"))
	require.NoError(t, err)
	require.Len(t, got, 5)

	// Saturday slot first, then the Monday sessions
	require.NotNil(t, got[0].SlotID)
	assert.Equal(t, uint64(42), *got[0].SlotID)
	assert.Equal(t, "2025-03-01", got[0].Date.Format(model.DateLayout))
	for _, o := range got[1:] {
		require.NotNil(t, o.ScheduleID)
		assert.Nil(t, o.SlotID)
		assert.Equal(t, uint64(5), *o.ScheduleID)
	}
	assert.Equal(t, "09:00", got[1].Start.String())
	assert.Equal(t, "10:30", got[4].Start.String())
}

func TestForExhibitorHidesBookedWindows(t *testing.T) {
	av, svc, _ := newAvailabilityFixture(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, BookRequest{UserID: 1, SlotID: ptr(42)})
	require.NoError(t, err)
	_, err = svc.Book(ctx, BookRequest{UserID: 2, ScheduleID: ptr(5), Date: "2025-03-03", Time: "10:00"})
	require.NoError(t, err)

	got, err := av.ForExhibitor(ctx, 7, day("2025-03-01"), day("2025-03-07"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, o := range got {
		assert.Nil(t, o.SlotID)
		assert.NotEqual(t, "10:00", o.Start.String())
	}
}

func TestForExhibitorHidesPastWindows(t *testing.T) {
	av, _, _ := newAvailabilityFixture(t)
	av.now = func() time.Time { return time.Date(2025, 3, 3, 9, 45, 0, 0, time.UTC) }

	got, err := av.ForExhibitor(context.Background(), 7, day("2025-03-01"), day("2025-03-03"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-03 10:00-10:30", "2025-03-03 10:30-11:00"}, openingLabels(got))
}

func TestForExhibitorRejectsZeroID(t *testing.T) {
	av, _, _ := newAvailabilityFixture(t)
	_, err := av.ForExhibitor(context.Background(), 0, day("2025-03-01"), day("2025-03-07"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestForSchedule(t *testing.T) {
	av, svc, st := newAvailabilityFixture(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, BookRequest{UserID: 1, ScheduleID: ptr(5), Date: "2025-03-03", Time: "09:30"})
	require.NoError(t, err)

	got, err := av.ForSchedule(ctx, 5, day("2025-03-03"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-03 09:00-09:30", "2025-03-03 10:00-10:30", "2025-03-03 10:30-11:00"}, openingLabels(got))

	got, err = av.ForSchedule(ctx, 5, day("2025-03-04"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = av.ForSchedule(ctx, 99, day("2025-03-03"))
	assert.ErrorIs(t, err, ErrNotFound)

	sc := st.schedules[5]
	sc.IsActive = false
	st.schedules[5] = sc
	_, err = av.ForSchedule(ctx, 5, day("2025-03-03"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func openingLabels(os []Opening) []string {
	ws := make([]Window, 0, len(os))
	for _, o := range os {
		ws = append(ws, o.Window)
	}
	return labels(ws)
}

func TestCompletedBookingKeepsItsWindow(t *testing.T) {
	av, svc, st := newAvailabilityFixture(t)
	ctx := context.Background()

	res, err := svc.Book(ctx, BookRequest{UserID: 1, ScheduleID: ptr(5), Date: "2025-03-03", Time: "09:30"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, 70, res.Booking.ID, model.StatusCompleted)
	require.NoError(t, err)

	got, err := av.ForSchedule(ctx, 5, day("2025-03-03"))
	require.NoError(t, err)
	assert.NotContains(t, openingLabels(got), "2025-03-03 09:30-10:00")

	_, err = svc.Book(ctx, BookRequest{UserID: 2, ScheduleID: ptr(5), Date: "2025-03-03", Time: "09:30"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.Equal(t, 1, st.bookingCount())
}
