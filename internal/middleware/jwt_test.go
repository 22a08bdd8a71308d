package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/salon-booking/internal/utils"
)

const secret = "mw-secret"

func protected(t *testing.T, mws ...echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.GET("/admin/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"email": c.Get(ContextEmail), "role": c.Get(ContextRole)})
	}, mws...)
	return e
}

func do(e *echo.Echo, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestJWTAuth_Valid(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, "admin@salon.test", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)
	e := protected(t, JWTAuth(secret), RequireRole(utils.RoleAdmin))

	rec := do(e, "Bearer "+tok.Token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"admin@salon.test","role":"admin"}`, rec.Body.String())
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	e := protected(t, JWTAuth(secret))

	for _, h := range []string{"", "Basic abc", "Bearer ", "bearer abc"} {
		rec := do(e, h)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, h)
		assert.Equal(t, "Missing or invalid Authorization header", errorOf(t, rec))
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	other, err := utils.NewAccessToken("other", "admin@salon.test", utils.RoleAdmin, time.Hour)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(secret, "admin@salon.test", utils.RoleAdmin, -time.Second)
	require.NoError(t, err)
	e := protected(t, JWTAuth(secret))

	for _, raw := range []string{"garbage", other.Token, expired.Token} {
		rec := do(e, "Bearer "+raw)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid or expired token", errorOf(t, rec))
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	tok, err := utils.NewAccessToken(secret, "someone@salon.test", "user", time.Hour)
	require.NoError(t, err)
	e := protected(t, JWTAuth(secret), RequireRole(utils.RoleAdmin))

	rec := do(e, "Bearer "+tok.Token)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", errorOf(t, rec))
}
