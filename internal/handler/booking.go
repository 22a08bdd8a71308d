package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/salon-booking/internal/model"
    "github.com/iliyamo/salon-booking/internal/repository"
    "github.com/iliyamo/salon-booking/internal/service"
)

// requestTimeout bounds store work done on behalf of a single request.
const requestTimeout = 5 * time.Second

// BookingService is what the booking and admin endpoints need.
type BookingService interface {
    ListServices(ctx context.Context) ([]model.Service, error)
    Create(ctx context.Context, in service.BookingInput) (*model.Booking, error)
    Confirm(ctx context.Context, id string) (*model.Booking, error)
    Cancel(ctx context.Context, id string) (*model.Booking, error)
    ListPublic(ctx context.Context) ([]model.PublicBooking, error)
    ListAdmin(ctx context.Context, date string) ([]model.BookingView, error)
}

// BookingHandler serves the public catalogue and booking endpoints and the
// admin booking management endpoints.
type BookingHandler struct {
    svc BookingService
    log *zap.Logger
}

func NewBookingHandler(svc BookingService, log *zap.Logger) *BookingHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &BookingHandler{svc: svc, log: log}
}

type createBookingReq struct {
    ServiceID   string `json:"serviceId"`
    ClientName  string `json:"clientName"`
    ClientPhone string `json:"clientPhone"`
    ClientEmail string `json:"clientEmail"`
    StartTime   string `json:"startTime"`
    EndTime     string `json:"endTime"`
}

// ListServices handles GET /api/services.
func (h *BookingHandler) ListServices(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    services, err := h.svc.ListServices(ctx)
    if err != nil {
        h.log.Error("list services failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
    }
    return c.JSON(http.StatusOK, services)
}

// CreateBooking handles POST /api/bookings.  Every validation failure is
// reported at once in details; an occupied slot is a 409 so clients can
// offer another time.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid JSON"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    b, err := h.svc.Create(ctx, service.BookingInput{
        ServiceID:   req.ServiceID,
        ClientName:  req.ClientName,
        ClientPhone: req.ClientPhone,
        ClientEmail: req.ClientEmail,
        StartTime:   req.StartTime,
        EndTime:     req.EndTime,
    })
    if err != nil {
        var verr *service.ValidationError
        switch {
        case errors.As(err, &verr):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": verr.Details})
        case errors.Is(err, repository.ErrServiceNotFound):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "Service not found"})
        case errors.Is(err, repository.ErrSlotTaken):
            return c.JSON(http.StatusConflict, echo.Map{"error": "Slot already booked"})
        default:
            h.log.Error("create booking failed", zap.Error(err))
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
        }
    }
    return c.JSON(http.StatusCreated, echo.Map{"id": b.ID, "message": "Booking created"})
}

// ListBookings handles GET /api/bookings.
func (h *BookingHandler) ListBookings(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    bookings, err := h.svc.ListPublic(ctx)
    if err != nil {
        h.log.Error("list bookings failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
    }
    return c.JSON(http.StatusOK, bookings)
}
