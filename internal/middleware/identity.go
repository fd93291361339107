package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userKey returns the authenticated caller's id as a string for use in
// Redis keys, or "anon" before JWTAuth has run.
func userKey(c echo.Context) string {
    if id, ok := c.Get(CtxUserID).(uint64); ok && id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
