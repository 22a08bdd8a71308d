package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/salon-booking/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ContextEmail = "email"
    ContextRole  = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer token and
// injects its email and role claims into the request context.  The
// provided secret must match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header is "Bearer " followed by a non-empty token.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing or invalid Authorization header"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing or invalid Authorization header"})
            }

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
            }

            // Downstream middleware reads these via c.Get().
            c.Set(ContextEmail, claims.Email)
            c.Set(ContextRole, claims.Role)
            return next(c)
        }
    }
}
