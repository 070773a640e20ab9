package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/service"
)

// Openings lists bookable windows.
type Openings interface {
	Range(from, to string) (time.Time, time.Time, error)
	ForExhibitor(ctx context.Context, exhibitorID uint64, from, to time.Time) ([]service.Opening, error)
	ForSchedule(ctx context.Context, scheduleID uint64, date time.Time) ([]service.Opening, error)
}

// AvailabilityHandler serves the public listings.  Responses may be cached
// for a few seconds; booking always re-checks under lock.
type AvailabilityHandler struct {
	openings Openings
	log      *zap.Logger
}

func NewAvailabilityHandler(openings Openings, log *zap.Logger) *AvailabilityHandler {
	if openings == nil || log == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{openings: openings, log: log}
}

type openingView struct {
	Date       string  `json:"date"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	SlotID     *uint64 `json:"slot_id,omitempty"`
	ScheduleID *uint64 `json:"schedule_id,omitempty"`
}

// calendarEvent is the shape calendar widgets such as FullCalendar consume.
type calendarEvent struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Start         string         `json:"start"`
	End           string         `json:"end"`
	ExtendedProps map[string]any `json:"extendedProps"`
}

// bounds returns the start and end instants of o.  A window that ends at
// midnight ends on the next day.
func bounds(o service.Opening) (time.Time, time.Time) {
	start := o.Start.On(o.Date)
	end := o.End.On(o.Date)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

func openingViews(list []service.Opening) []openingView {
	out := make([]openingView, 0, len(list))
	for _, o := range list {
		out = append(out, openingView{
			Date:       o.Date.Format(model.DateLayout),
			Start:      o.Start.String(),
			End:        o.End.String(),
			SlotID:     o.SlotID,
			ScheduleID: o.ScheduleID,
		})
	}
	return out
}

func events(list []service.Opening, title string) []calendarEvent {
	out := make([]calendarEvent, 0, len(list))
	for _, o := range list {
		start, end := bounds(o)
		ev := calendarEvent{
			Title: title,
			Start: start.Format(time.RFC3339),
			End:   end.Format(time.RFC3339),
			ExtendedProps: map[string]any{
				"date": o.Date.Format(model.DateLayout),
				"time": o.Start.String(),
			},
		}
		if o.SlotID != nil {
			ev.ID = fmt.Sprintf("slot-%d", *o.SlotID)
			ev.ExtendedProps["slot_id"] = *o.SlotID
		} else if o.ScheduleID != nil {
			ev.ID = fmt.Sprintf("schedule-%d-%s", *o.ScheduleID, start.Format("20060102T1504"))
			ev.ExtendedProps["schedule_id"] = *o.ScheduleID
		}
		out = append(out, ev)
	}
	return out
}

func (h *AvailabilityHandler) respond(c echo.Context, list []service.Opening, extra echo.Map) error {
	if c.QueryParam("format") == "events" {
		return c.JSON(http.StatusOK, events(list, langOf(c).text(msgAvailable)))
	}
	body := echo.Map{"status": "success", "openings": openingViews(list)}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

// ForExhibitor handles GET /v1/exhibitors/:id/availability?from&to&format.
func (h *AvailabilityHandler) ForExhibitor(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidInput(c, "invalid exhibitor id")
	}
	from, to, err := h.openings.Range(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(c, h.log, err)
	}
	list, err := h.openings.ForExhibitor(c.Request().Context(), id, from, to)
	if err != nil {
		return fail(c, h.log, err)
	}
	return h.respond(c, list, echo.Map{
		"exhibitor_id": id,
		"from":         from.Format(model.DateLayout),
		"to":           to.Format(model.DateLayout),
	})
}

// ForSchedule handles GET /v1/schedules/:id/availability?date.  The date
// defaults to today.
func (h *AvailabilityHandler) ForSchedule(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return invalidInput(c, "invalid schedule id")
	}
	date := model.DateOf(time.Now().UTC())
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return invalidInput(c, "date must be YYYY-MM-DD")
		}
		date = d
	}
	list, err := h.openings.ForSchedule(c.Request().Context(), id, date)
	if err != nil {
		return fail(c, h.log, err)
	}
	return h.respond(c, list, echo.Map{"schedule_id": id, "date": date.Format(model.DateLayout)})
}
