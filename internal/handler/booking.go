package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/middleware"
	"github.com/iliyamo/expo-appointments/internal/model"
	"github.com/iliyamo/expo-appointments/internal/service"
)

// Ledger is the part of the booking service the HTTP layer drives.
type Ledger interface {
	Book(ctx context.Context, req service.BookRequest) (service.BookResult, error)
	Cancel(ctx context.Context, actor service.Actor, bookingID uint64) (model.Booking, error)
	UpdateStatus(ctx context.Context, exhibitorUserID, bookingID uint64, status model.BookingStatus) (model.Booking, error)
	ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListForExhibitor(ctx context.Context, exhibitorUserID uint64, status model.BookingStatus) ([]model.Booking, error)
}

// BookingHandler serves the visitor side of the ledger.
type BookingHandler struct {
	ledger Ledger
	log    *zap.Logger
}

func NewBookingHandler(ledger Ledger, log *zap.Logger) *BookingHandler {
	if ledger == nil || log == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{ledger: ledger, log: log}
}

// bookingView adds the calendar date, which model.Booking keeps out of JSON.
type bookingView struct {
	model.Booking
	Date string `json:"date"`
}

func viewOf(b model.Booking) bookingView { return bookingView{Booking: b, Date: b.DateString()} }

func viewsOf(list []model.Booking) []bookingView {
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, viewOf(b))
	}
	return out
}

type bookRequest struct {
	SlotID     *uint64 `json:"slot_id" form:"slot_id" validate:"omitempty,gt=0"`
	ScheduleID *uint64 `json:"schedule_id" form:"schedule_id" validate:"omitempty,gt=0"`
	Date       string  `json:"date" form:"date" validate:"omitempty,ymd"`
	Time       string  `json:"time" form:"time" validate:"omitempty,hhmm"`
	Notes      string  `json:"notes" form:"notes" validate:"max=1000"`
}

// Book handles POST /v1/bookings.  It answers 201 with the new booking, or
// 200 when the same request already succeeded earlier.
func (h *BookingHandler) Book(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	var body bookRequest
	if ok, err := bindValid(c, &body); !ok {
		return err
	}
	res, err := h.ledger.Book(c.Request().Context(), service.BookRequest{
		UserID:     userID,
		SlotID:     body.SlotID,
		ScheduleID: body.ScheduleID,
		Date:       body.Date,
		Time:       body.Time,
		Notes:      body.Notes,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	if res.Replayed {
		return success(c, http.StatusOK, msgReplayed, echo.Map{"booking": viewOf(res.Booking)})
	}
	return success(c, http.StatusCreated, msgBooked, echo.Map{"booking": viewOf(res.Booking)})
}

// MyBookings handles GET /v1/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.ledger.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "bookings": viewsOf(list)})
}

// Cancel handles POST /v1/bookings/:id/cancel for the visitor who booked or
// the exhibitor who owns the window.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return invalidInput(c, "invalid booking id")
	}
	b, err := h.ledger.Cancel(c.Request().Context(), service.Actor{UserID: userID, Role: middleware.Role(c)}, id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return success(c, http.StatusOK, msgCancelled, echo.Map{"booking": viewOf(b)})
}
