// Package handler exposes the booking core over HTTP.  Handlers bind and
// validate the request, call one service operation and translate its error
// taxonomy into a status code and a short localized message.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-appointments/internal/service"
)

type lang int

const (
	langEN lang = iota
	langAR
)

// langOf picks Arabic when the first Accept-Language tag is ar.
func langOf(c echo.Context) lang {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(c.Request().Header.Get("Accept-Language"))), "ar") {
		return langAR
	}
	return langEN
}

type msgKey int

const (
	msgBooked msgKey = iota
	msgReplayed
	msgUnavailable
	msgInvalid
	msgNotFound
	msgForbidden
	msgConflict
	msgRetry
	msgInternal
	msgUnauthorized
	msgCancelled
	msgUpdated
	msgSlotCreated
	msgSlotDeleted
	msgSlotRetired
	msgScheduleCreated
	msgScheduleDeactivated
	msgAvailable
	msgChatUnavailable
)

var messages = map[msgKey][2]string{
	msgBooked:              {"Appointment booked successfully", "تم حجز الموعد بنجاح"},
	msgReplayed:            {"This appointment is already booked for you", "هذا الموعد محجوز لك مسبقاً"},
	msgUnavailable:         {"This slot is not available", "هذا الموعد غير متاح"},
	msgInvalid:             {"Invalid request", "بيانات الطلب غير صالحة"},
	msgNotFound:            {"Not found", "غير موجود"},
	msgForbidden:           {"You are not allowed to do this", "غير مسموح لك بهذا الإجراء"},
	msgConflict:            {"This change is not allowed in the current state", "لا يمكن تنفيذ هذا التغيير في الحالة الحالية"},
	msgRetry:               {"Could not complete the request, please try again", "تعذر إتمام الطلب، حاول مرة أخرى"},
	msgInternal:            {"Internal error", "خطأ داخلي"},
	msgUnauthorized:        {"Unauthorized", "غير مصرح"},
	msgCancelled:           {"Appointment cancelled", "تم إلغاء الموعد"},
	msgUpdated:             {"Appointment updated", "تم تحديث الموعد"},
	msgSlotCreated:         {"Slot created", "تم إنشاء الموعد"},
	msgSlotDeleted:         {"Slot deleted", "تم حذف الموعد"},
	msgSlotRetired:         {"Slot withdrawn", "تم سحب الموعد"},
	msgScheduleCreated:     {"Schedule created", "تم إنشاء الجدول"},
	msgScheduleDeactivated: {"Schedule deactivated", "تم إيقاف الجدول"},
	msgAvailable:           {"Available", "متاح"},
	msgChatUnavailable:     {"Chat is temporarily unavailable", "المحادثة غير متاحة حالياً"},
}

func (l lang) text(k msgKey) string { return messages[k][l] }

// success writes {"status":"success","message":...} plus extra fields.
func success(c echo.Context, code int, k msgKey, extra echo.Map) error {
	body := echo.Map{"status": "success", "message": langOf(c).text(k)}
	for key, v := range extra {
		body[key] = v
	}
	return c.JSON(code, body)
}

func failure(c echo.Context, code int, k msgKey) error {
	return c.JSON(code, echo.Map{"status": "error", "message": langOf(c).text(k)})
}

// invalidInput answers 400 and names the offending field.
func invalidInput(c echo.Context, detail string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": langOf(c).text(msgInvalid), "detail": detail})
}

// classify maps the service error taxonomy onto a status and message.
func classify(err error) (int, msgKey) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, msgInvalid
	case errors.Is(err, service.ErrSlotUnavailable):
		return http.StatusConflict, msgUnavailable
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, msgConflict
	case errors.Is(err, service.ErrPersistence):
		return http.StatusServiceUnavailable, msgRetry
	}
	return http.StatusInternalServerError, msgInternal
}

// fail writes the response for a service error.  Validation errors carry
// their detail; unexpected errors are logged.
func fail(c echo.Context, log *zap.Logger, err error) error {
	code, k := classify(err)
	switch {
	case code == http.StatusBadRequest:
		return invalidInput(c, err.Error())
	case code == http.StatusServiceUnavailable:
		c.Response().Header().Set("Retry-After", "1")
	case code == http.StatusInternalServerError:
		log.Error("unclassified handler error", zap.String("path", c.Path()), zap.Error(err))
	}
	return failure(c, code, k)
}

func unauthorized(c echo.Context) error {
	return failure(c, http.StatusUnauthorized, msgUnauthorized)
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
