package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/expo-appointments/internal/handler"
)

// Deps carries the handlers and the shared middleware the routes mount.
// Cache wraps the public listings and Limiter the write endpoints; either
// may be nil.
type Deps struct {
	JWTSecret    string
	Booking      *handler.BookingHandler
	Exhibitor    *handler.ExhibitorHandler
	Availability *handler.AvailabilityHandler
	Chat         *handler.ChatHandler
	Cache        echo.MiddlewareFunc
	Limiter      echo.MiddlewareFunc
	Checks       map[string]handler.Check
}

// RegisterRoutes mounts every route on e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	RegisterOps(e, d.Checks)
	RegisterPublic(e, d)
	RegisterVisitor(e, d)
	RegisterExhibitor(e, d)
}

// RegisterOps mounts the probes and the Prometheus scrape endpoint.
func RegisterOps(e *echo.Echo, checks map[string]handler.Check) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(checks))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic mounts the unauthenticated availability listings and the
// registration chat.
func RegisterPublic(e *echo.Echo, d Deps) {
	e.GET("/v1/exhibitors/:id/availability", d.Availability.ForExhibitor, optional(d.Cache)...)
	e.GET("/v1/schedules/:id/availability", d.Availability.ForSchedule, optional(d.Cache)...)
	e.POST("/v1/chat", d.Chat.Chat, optional(d.Limiter)...)
}

func optional(mw echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if mw == nil {
		return nil
	}
	return []echo.MiddlewareFunc{mw}
}
