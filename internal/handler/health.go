package handler // declare the package name; contains HTTP handlers

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health is used by load balancers and monitoring to check the process is
// serving.  It does not touch the store.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
