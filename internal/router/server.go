package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/salon-booking/internal/handler"
	"github.com/iliyamo/salon-booking/internal/middleware"
)

// Options carries everything New needs to assemble the HTTP surface.
type Options struct {
	Bookings  *handler.BookingHandler
	Auth      *handler.AuthHandler
	JWTSecret string
	RateLimit echo.MiddlewareFunc // applied to every /api route, after JWTAuth on admin routes; nil disables
	Cache     echo.MiddlewareFunc // applied to the service catalogue; nil disables
	Log       *zap.Logger
}

// New builds the Echo instance with the shared middleware stack and all
// routes registered.
func New(opts Options) *echo.Echo {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(opts.Log))
	e.Use(echomw.Recover())

	RegisterRoutes(e)

	rate := opts.RateLimit
	if rate == nil {
		rate = passthrough
	}
	cache := opts.Cache
	if cache == nil {
		cache = passthrough
	}

	api := e.Group("/api")
	public := api.Group("", rate)
	RegisterPublic(public, opts.Bookings, cache)
	RegisterAuth(public, opts.Auth)
	RegisterAdmin(api, opts.Bookings, opts.JWTSecret, rate)
	return e
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
