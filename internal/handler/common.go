package handler // HTTP handlers for the reservation API

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/table-reservation/internal/middleware"
    "github.com/iliyamo/table-reservation/internal/service"
)

// requestTimeout bounds the store work done for one request.
const requestTimeout = 5 * time.Second

// getUserID extracts the caller id stored by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get(middleware.CtxUserID).(type) {
    case uint64:
        if t != 0 {
            return t, nil
        }
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil && n != 0 {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// pathUint parses a positive integer path parameter.
func pathUint(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
    return n, err == nil && n > 0
}

func pathTableNumber(c echo.Context) (int, bool) {
    n, err := strconv.Atoi(strings.TrimSpace(c.Param("number")))
    return n, err == nil
}

// writeServiceError maps domain errors to HTTP responses.
func writeServiceError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, service.ErrInvalidInput):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, service.ErrAlreadyBooked):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "already_booked"})
    case errors.Is(err, service.ErrNotBooked):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "not_booked"})
    case errors.Is(err, service.ErrTransientConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "concurrent modification, retry the request", "retryable": true})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}
