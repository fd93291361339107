package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// RequestLogger writes one structured line per request.  Server errors
// log at error level, client errors at warn, the rest at info.
func RequestLogger(log *zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }

            status := c.Response().Status
            ev := log.Info()
            switch {
            case status >= 500:
                ev = log.Error().Err(err)
            case status >= 400:
                ev = log.Warn()
            }
            ev.Str("method", c.Request().Method).
                Str("path", c.Path()).
                Str("uri", c.Request().RequestURI).
                Int("status", status).
                Dur("latency", time.Since(start)).
                Str("ip", c.RealIP()).
                Str("user", userKey(c)).
                Msg("request")
            return nil
        }
    }
}
