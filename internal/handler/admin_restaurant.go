package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/table-reservation/internal/service"
)

// AdminHandler serves the restaurant owner's endpoints.  Every route acts
// on the caller's own restaurant.
type AdminHandler struct {
    Engine    *service.Engine
    Directory *service.Directory
}

func NewAdminHandler(engine *service.Engine, dir *service.Directory) *AdminHandler {
    if engine == nil || dir == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Engine: engine, Directory: dir}
}

type upsertRestaurantReq struct {
    Name      string `json:"name"`
    Location  string `json:"location"`
    OpenTime  string `json:"open_time"`
    CloseTime string `json:"close_time"`
    Capacity  *int   `json:"capacity"`
}

type detailsReq struct {
    Name      string `json:"name"`
    Location  string `json:"location"`
    OpenTime  string `json:"open_time"`
    CloseTime string `json:"close_time"`
}

type capacityReq struct {
    Capacity *int `json:"capacity"`
}

// UpsertRestaurant handles POST /v1/admin/restaurant.  A capacity that
// differs from the stored one discards every booking.
func (h *AdminHandler) UpsertRestaurant(c echo.Context) error {
    adminID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req upsertRestaurantReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Capacity == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    rest, err := h.Directory.Upsert(ctx, adminID, service.Details{
        Name:      req.Name,
        Location:  req.Location,
        OpenTime:  req.OpenTime,
        CloseTime: req.CloseTime,
    }, *req.Capacity)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toAdminRestaurant(rest)})
}

// GetOwnRestaurant handles GET /v1/admin/restaurant.
func (h *AdminHandler) GetOwnRestaurant(c echo.Context) error {
    adminID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    rest, err := h.Directory.GetByAdmin(ctx, adminID)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toAdminRestaurant(rest)})
}

// UpdateDetails handles PUT /v1/admin/restaurant/details.  Tables are
// left as they are.
func (h *AdminHandler) UpdateDetails(c echo.Context) error {
    adminID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req detailsReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    rest, err := h.Directory.GetByAdmin(ctx, adminID)
    if err != nil {
        return writeServiceError(c, err)
    }
    if err := h.Engine.UpdateDetails(ctx, rest.ID, adminID, service.Details(req)); err != nil {
        return writeServiceError(c, err)
    }
    return h.GetOwnRestaurant(c)
}

// ResizeInventory handles PUT /v1/admin/restaurant/capacity.
func (h *AdminHandler) ResizeInventory(c echo.Context) error {
    adminID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req capacityReq
    if err := c.Bind(&req); err != nil || req.Capacity == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    rest, err := h.Directory.GetByAdmin(ctx, adminID)
    if err != nil {
        return writeServiceError(c, err)
    }
    if err := h.Engine.ResizeInventory(ctx, rest.ID, *req.Capacity, adminID); err != nil {
        return writeServiceError(c, err)
    }
    return h.GetOwnRestaurant(c)
}

// ReleaseTable handles DELETE /v1/admin/restaurant/tables/:number/booking.
// The admin's own restaurant is used unless ?restaurant_id= names another,
// which the engine then rejects if it belongs to someone else.
func (h *AdminHandler) ReleaseTable(c echo.Context) error {
    adminID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    number, ok := pathTableNumber(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    var restaurantID uint64
    if raw := strings.TrimSpace(c.QueryParam("restaurant_id")); raw != "" {
        restaurantID, err = strconv.ParseUint(raw, 10, 64)
        if err != nil || restaurantID == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant_id"})
        }
    } else {
        rest, err := h.Directory.GetByAdmin(ctx, adminID)
        if err != nil {
            return writeServiceError(c, err)
        }
        restaurantID = rest.ID
    }

    if err := h.Engine.AdminRelease(ctx, restaurantID, number, adminID); err != nil {
        return writeServiceError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
