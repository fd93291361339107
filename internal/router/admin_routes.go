package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterAdmin registers restaurant management under /v1/admin.  All
// routes require a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/restaurant", h.UpsertRestaurant)
	g.GET("/restaurant", h.GetOwnRestaurant)
	g.PUT("/restaurant/details", h.UpdateDetails)
	g.PUT("/restaurant/capacity", h.ResizeInventory)
	g.DELETE("/restaurant/tables/:number/booking", h.ReleaseTable)
}
