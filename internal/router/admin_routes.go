package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/salon-booking/internal/handler"
    "github.com/iliyamo/salon-booking/internal/middleware"
    "github.com/iliyamo/salon-booking/internal/utils"
)

// RegisterAdmin registers booking management routes under /api/admin.
// All of them require a valid bearer token carrying the admin role.  rate
// runs after JWTAuth so per-user rate-limit keys see the admin identity.
func RegisterAdmin(api *echo.Group, h *handler.BookingHandler, jwtSecret string, rate echo.MiddlewareFunc) {
    g := api.Group(
        "/admin",
        middleware.JWTAuth(jwtSecret),
        rate,
        middleware.RequireRole(utils.RoleAdmin),
    )
    g.GET("/bookings", h.ListAdminBookings)
    g.PATCH("/bookings/:id/confirm", h.ConfirmBooking)
    g.PATCH("/bookings/:id/cancel", h.CancelBooking)
}
