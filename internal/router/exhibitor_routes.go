package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/expo-appointments/internal/middleware"
	"github.com/iliyamo/expo-appointments/internal/model"
)

// RegisterExhibitor mounts the EXHIBITOR-scoped endpoints under
// /v1/exhibitor.
func RegisterExhibitor(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/exhibitor",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleExhibitor),
	)

	// ---- Bookings ----
	g.GET("/bookings", d.Exhibitor.Bookings)
	g.PATCH("/bookings/:id", d.Exhibitor.UpdateStatus)

	// ---- Slots ----
	g.POST("/slots", d.Exhibitor.CreateSlot)
	g.DELETE("/slots/:id", d.Exhibitor.WithdrawSlot)

	// ---- Schedules ----
	g.POST("/schedules", d.Exhibitor.CreateSchedule)
	g.PATCH("/schedules/:id/deactivate", d.Exhibitor.DeactivateSchedule)
}
