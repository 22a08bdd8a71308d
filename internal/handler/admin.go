package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/salon-booking/internal/model"
    "github.com/iliyamo/salon-booking/internal/repository"
    "github.com/iliyamo/salon-booking/internal/service"
)

// ListAdminBookings handles GET /api/admin/bookings?date=YYYY-MM-DD.
func (h *BookingHandler) ListAdminBookings(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    views, err := h.svc.ListAdmin(ctx, c.QueryParam("date"))
    if err != nil {
        if errors.Is(err, service.ErrInvalidDate) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
        }
        h.log.Error("list admin bookings failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
    }
    return c.JSON(http.StatusOK, views)
}

// ConfirmBooking handles PATCH /api/admin/bookings/:id/confirm.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
    return h.changeStatus(c, h.svc.Confirm)
}

// CancelBooking handles PATCH /api/admin/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
    return h.changeStatus(c, h.svc.Cancel)
}

func (h *BookingHandler) changeStatus(c echo.Context, apply func(context.Context, string) (*model.Booking, error)) error {
    id := c.Param("id")
    if id == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if _, err := apply(ctx, id); err != nil {
        switch {
        case errors.Is(err, repository.ErrBookingNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "Booking not found"})
        case errors.Is(err, service.ErrInvalidTransition):
            return c.JSON(http.StatusConflict, echo.Map{"error": "Invalid status transition"})
        default:
            h.log.Error("change booking status failed", zap.String("booking_id", id), zap.Error(err))
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "DB error"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
