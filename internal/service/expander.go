package service

import (
	"encoding/json"
	"iter"
	"time"

	"github.com/iliyamo/expo-appointments/internal/model"
)

// DefaultHorizonDays is the listing window when the caller gives none.
const DefaultHorizonDays = 30

// Window is one concrete session derived from a recurring schedule.
type Window struct {
	Date  time.Time // calendar date, UTC midnight
	Start model.Clock
	End   model.Clock
}

func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string `json:"date"`
		Start string `json:"start"`
		End   string `json:"end"`
	}{w.Date.Format(model.DateLayout), w.Start.String(), w.End.String()})
}

// Expand yields the sessions of s on every date in [from, to] whose weekday
// matches s.DayOfWeek.  Sessions are walked from StartTime in
// SessionDuration steps; a trailing partial session is dropped.  The
// sequence holds no state and can be ranged over repeatedly.
func Expand(s model.RecurringSchedule, from, to time.Time) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		if !s.Valid() {
			return
		}
		first, last := model.DateOf(from), model.DateOf(to)
		offset := (int(s.DayOfWeek) - int(model.WeekdayOf(first)) + 7) % 7
		for d := first.AddDate(0, 0, offset); !d.After(last); d = d.AddDate(0, 0, 7) {
			for cur := s.StartTime; cur.Add(s.SessionDuration) <= s.EndTime; cur = cur.Add(s.SessionDuration) {
				if !yield(Window{Date: d, Start: cur, End: cur.Add(s.SessionDuration)}) {
					return
				}
			}
		}
	}
}

// SessionAt returns the session of s that starts at start on date, if any.
func SessionAt(s model.RecurringSchedule, date time.Time, start model.Clock) (Window, bool) {
	for w := range Expand(s, date, date) {
		if w.Start == start {
			return w, true
		}
	}
	return Window{}, false
}

type windowKey struct {
	date       string
	start, end model.Clock
}

// FilterBooked drops windows whose (date, start, end) exactly equals a
// non-cancelled booking.  Partially overlapping windows are kept.
func FilterBooked(windows iter.Seq[Window], bookings []model.Booking) iter.Seq[Window] {
	taken := make(map[windowKey]struct{}, len(bookings))
	for _, b := range bookings {
		if b.Status.Occupies() {
			taken[windowKey{b.DateString(), b.StartTime, b.EndTime}] = struct{}{}
		}
	}
	return func(yield func(Window) bool) {
		for w := range windows {
			if _, ok := taken[windowKey{w.Date.Format(model.DateLayout), w.Start, w.End}]; ok {
				continue
			}
			if !yield(w) {
				return
			}
		}
	}
}
