package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/salon-booking/internal/handler"
)

// RegisterRoutes registers operational routes that live outside /api:
// a health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers the unauthenticated catalogue and booking
// endpoints on the /api group.  The service catalogue is read-only, so its
// responses go through the response cache.
func RegisterPublic(api *echo.Group, h *handler.BookingHandler, cache echo.MiddlewareFunc) {
	api.GET("/services", h.ListServices, cache)
	api.GET("/bookings", h.ListBookings)
	api.POST("/bookings", h.CreateBooking)
}

// RegisterAuth registers the admin login endpoint.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler) {
	api.POST("/auth/login", a.Login)
}
