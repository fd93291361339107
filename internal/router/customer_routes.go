package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterCustomer registers the diner's booking routes under /v1.  They
// require the USER role.  limiter, when non-nil, runs after
// authentication so buckets can be keyed per user.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser),
	}
	if limiter != nil {
		mw = append(mw, limiter)
	}
	g := e.Group("/v1", mw...)
	g.POST("/restaurants/:id/tables/:number/reserve", h.Reserve)
	g.GET("/my-bookings", h.ListOwnBookings)
	g.DELETE("/bookings/:ref", h.Cancel)
}
