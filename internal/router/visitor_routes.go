package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/expo-appointments/internal/middleware"
	"github.com/iliyamo/expo-appointments/internal/model"
)

// RegisterVisitor mounts the booking endpoints.  Booking requires the USER
// role; cancel is open to the exhibitor side too and the service checks
// ownership.
func RegisterVisitor(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser),
	)
	g.POST("/bookings", d.Booking.Book, optional(d.Limiter)...)
	g.GET("/my-bookings", d.Booking.MyBookings)

	e.POST("/v1/bookings/:id/cancel", d.Booking.Cancel,
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleExhibitor),
	)
}
