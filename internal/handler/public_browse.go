package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/table-reservation/internal/service"
)

// PublicHandler serves unauthenticated browse endpoints.
type PublicHandler struct {
    Directory *service.Directory
}

func NewPublicHandler(dir *service.Directory) *PublicHandler {
    return &PublicHandler{Directory: dir}
}

// ListRestaurants handles GET /v1/restaurants.  Booked tables show the
// party details but never the account that booked them.
func (h *PublicHandler) ListRestaurants(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    items, err := h.Directory.ListAll(ctx)
    if err != nil {
        return writeServiceError(c, err)
    }
    out := make([]publicRestaurant, 0, len(items))
    for _, r := range items {
        out = append(out, toPublicRestaurant(r))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}
