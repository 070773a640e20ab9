package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/middleware"
	"github.com/iliyamo/expo-appointments/internal/model"
)

// Calendar manages the windows an exhibitor offers.
type Calendar interface {
	CreateSlot(ctx context.Context, userID uint64, start time.Time, minutes int) (model.Slot, error)
	WithdrawSlot(ctx context.Context, userID, slotID uint64) (bool, error)
	CreateSchedule(ctx context.Context, userID uint64, sc model.RecurringSchedule) (model.RecurringSchedule, error)
	DeactivateSchedule(ctx context.Context, userID, scheduleID uint64) error
}

// ExhibitorHandler serves /v1/exhibitor.  Every route runs behind JWTAuth
// and RequireRole(EXHIBITOR); ownership is checked by the services.
type ExhibitorHandler struct {
	ledger   Ledger
	calendar Calendar
	log      *zap.Logger
}

func NewExhibitorHandler(ledger Ledger, calendar Calendar, log *zap.Logger) *ExhibitorHandler {
	if ledger == nil || calendar == nil || log == nil {
		panic("nil dependency passed to NewExhibitorHandler")
	}
	return &ExhibitorHandler{ledger: ledger, calendar: calendar, log: log}
}

// Bookings handles GET /v1/exhibitor/bookings?status=.
func (h *ExhibitorHandler) Bookings(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var status model.BookingStatus
	if raw := c.QueryParam("status"); raw != "" {
		if status, ok = model.ParseStatus(raw); !ok {
			return invalidInput(c, "unknown status")
		}
	}
	list, err := h.ledger.ListForExhibitor(c.Request().Context(), userID, status)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "bookings": viewsOf(list)})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus handles PATCH /v1/exhibitor/bookings/:id.
func (h *ExhibitorHandler) UpdateStatus(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return invalidInput(c, "invalid booking id")
	}
	var body statusRequest
	if ok, err := bindValid(c, &body); !ok {
		return err
	}
	status, ok := model.ParseStatus(body.Status)
	if !ok {
		return invalidInput(c, "unknown status")
	}
	b, err := h.ledger.UpdateStatus(c.Request().Context(), userID, id, status)
	if err != nil {
		return fail(c, h.log, err)
	}
	k := msgUpdated
	if b.Status == model.StatusCancelled {
		k = msgCancelled
	}
	return success(c, http.StatusOK, k, echo.Map{"booking": viewOf(b)})
}

type slotRequest struct {
	Date     string `json:"date" validate:"required,ymd"`
	Time     string `json:"time" validate:"required,hhmm"`
	Duration int    `json:"duration_minutes" validate:"required,gt=0,lte=480"`
}

// CreateSlot handles POST /v1/exhibitor/slots.  Date and time are UTC.
func (h *ExhibitorHandler) CreateSlot(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var body slotRequest
	if ok, err := bindValid(c, &body); !ok {
		return err
	}
	// both parse after validation
	date, _ := model.ParseDate(body.Date)
	clock, _ := model.ParseClock(body.Time)
	slot, err := h.calendar.CreateSlot(c.Request().Context(), userID, clock.On(date), body.Duration)
	if err != nil {
		return fail(c, h.log, err)
	}
	return success(c, http.StatusCreated, msgSlotCreated, echo.Map{"slot": slot})
}

// WithdrawSlot handles DELETE /v1/exhibitor/slots/:id.  A slot with past
// bookings is retired instead of deleted; a slot booked ahead is a conflict.
func (h *ExhibitorHandler) WithdrawSlot(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return invalidInput(c, "invalid slot id")
	}
	deleted, err := h.calendar.WithdrawSlot(c.Request().Context(), userID, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	if deleted {
		return success(c, http.StatusOK, msgSlotDeleted, echo.Map{"deleted": true})
	}
	return success(c, http.StatusOK, msgSlotRetired, echo.Map{"deleted": false})
}

type scheduleRequest struct {
	DayOfWeek       *int   `json:"day_of_week" validate:"required,gte=0,lte=6"`
	StartTime       string `json:"start_time" validate:"required,hhmm"`
	EndTime         string `json:"end_time" validate:"required,hhmm"`
	SessionDuration int    `json:"session_duration" validate:"required,gt=0,lte=480"`
}

// CreateSchedule handles POST /v1/exhibitor/schedules.  day_of_week counts
// from 0 = Monday.
func (h *ExhibitorHandler) CreateSchedule(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var body scheduleRequest
	if ok, err := bindValid(c, &body); !ok {
		return err
	}
	start, _ := model.ParseClock(body.StartTime)
	end, _ := model.ParseClock(body.EndTime)
	sc, err := h.calendar.CreateSchedule(c.Request().Context(), userID, model.RecurringSchedule{
		DayOfWeek:       model.Weekday(*body.DayOfWeek),
		StartTime:       start,
		EndTime:         end,
		SessionDuration: body.SessionDuration,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return success(c, http.StatusCreated, msgScheduleCreated, echo.Map{"schedule": sc})
}

// DeactivateSchedule handles PATCH /v1/exhibitor/schedules/:id/deactivate.
func (h *ExhibitorHandler) DeactivateSchedule(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return invalidInput(c, "invalid schedule id")
	}
	if err := h.calendar.DeactivateSchedule(c.Request().Context(), userID, id); err != nil {
		return fail(c, h.log, err)
	}
	return success(c, http.StatusOK, msgScheduleDeactivated, nil)
}
