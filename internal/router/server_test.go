package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/salon-booking/internal/config"
	"github.com/iliyamo/salon-booking/internal/handler"
	"github.com/iliyamo/salon-booking/internal/middleware"
	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/repository"
	"github.com/iliyamo/salon-booking/internal/service"
)

const jwtSecret = "router-secret"

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	return newLimitedTestServer(t, nil)
}

func newLimitedTestServer(t *testing.T, rate echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	ctx := context.Background()
	services := repository.NewMemoryServiceRepo()
	_, err := repository.SeedServices(ctx, services)
	require.NoError(t, err)

	bookings := service.NewBookingService(services, repository.NewMemoryBookingRepo(), nil, nil, time.UTC)
	auth, err := service.NewAuthService("admin@salon.test", "pw", bcrypt.MinCost, jwtSecret, time.Hour, nil)
	require.NoError(t, err)

	return New(Options{
		Bookings:  handler.NewBookingHandler(bookings, nil),
		Auth:      handler.NewAuthHandler(auth, nil),
		JWTSecret: jwtSecret,
		RateLimit: rate,
	})
}

func call(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func firstServiceID(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := call(e, http.MethodGet, "/api/services", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var services []model.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	require.Len(t, services, 3)
	assert.Equal(t, "Classic Manicure", services[0].Name)
	return services[0].ID
}

func TestServer_BookingLifecycle(t *testing.T) {
	e := newTestServer(t)
	serviceID := firstServiceID(t, e)

	body := `{"serviceId":"` + serviceID + `","clientName":"Alice","clientPhone":"5551234","startTime":"2024-01-01T10:00:00Z","endTime":"2024-01-01T10:30:00Z"}`
	rec := call(e, http.MethodPost, "/api/bookings", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Booking created", created.Message)

	overlap := strings.Replace(strings.Replace(body, "10:00:00", "10:15:00", 1), "10:30:00", "10:45:00", 1)
	rec = call(e, http.MethodPost, "/api/bookings", overlap, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Slot already booked"}`, rec.Body.String())

	rec = call(e, http.MethodPatch, "/api/admin/bookings/"+created.ID+"/cancel", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/api/auth/login", `{"email":"admin@salon.test","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	rec = call(e, http.MethodPatch, "/api/admin/bookings/"+created.ID+"/cancel", "", login.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = call(e, http.MethodPatch, "/api/admin/bookings/"+created.ID+"/confirm", "", login.Token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(e, http.MethodPatch, "/api/admin/bookings/missing/confirm", "", login.Token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// the slot is free again once cancelled
	rec = call(e, http.MethodPost, "/api/bookings", overlap, "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = call(e, http.MethodGet, "/api/admin/bookings?date=2024-01-01", "", login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []model.BookingView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, model.BookingStatusCancelled, views[0].Status)
	assert.Equal(t, "Classic Manicure", views[0].ServiceName)

	rec = call(e, http.MethodGet, "/api/bookings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var public []model.PublicBooking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	require.Len(t, public, 2)
	assert.True(t, public[0].StartTime.After(public[1].StartTime))
}

func TestServer_ValidationFailure(t *testing.T) {
	e := newTestServer(t)
	serviceID := firstServiceID(t, e)

	body := `{"serviceId":"` + serviceID + `","clientName":"A","clientPhone":"123","startTime":"2024-01-01T10:30:00Z","endTime":"2024-01-01T10:00:00Z"}`
	rec := call(e, http.MethodPost, "/api/bookings", body, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var out struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Validation failed", out.Error)
	assert.Equal(t, []string{service.MsgClientName, service.MsgClientPhone, service.MsgEndAfter}, out.Details)
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t)

	rec := call(e, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_RateLimitKeysAdminByIdentity(t *testing.T) {
	rate := middleware.NewRateLimiter(config.RateLimitConfig{
		Enabled:        true,
		Capacity:       3,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            time.Hour,
		KeyStrategy:    "ip_user",
		Prefix:         "test:rl",
		LocalFallback:  true,
	}, nil, zap.NewNop())
	e := newLimitedTestServer(t, rate)

	rec := call(e, http.MethodPost, "/api/auth/login", `{"email":"admin@salon.test","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	// The admin bucket is separate from the anonymous one used by login.
	for i := 0; i < 3; i++ {
		rec = call(e, http.MethodGet, "/api/admin/bookings", "", login.Token)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec = call(e, http.MethodGet, "/api/admin/bookings", "", login.Token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = call(e, http.MethodGet, "/api/bookings", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
