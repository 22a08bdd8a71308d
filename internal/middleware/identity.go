package middleware

import "github.com/labstack/echo/v4"

// callerID identifies the caller for rate-limit keys: the admin email when
// JWTAuth ran before, otherwise "anon".
func callerID(c echo.Context) string {
    if v, ok := c.Get(ContextEmail).(string); ok && v != "" {
        return v
    }
    return "anon"
}
