package handler

import (
    "context"
    "net/http"
    "net/url"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/table-reservation/internal/service"
)

// CustomerHandler serves the diner's booking endpoints.
type CustomerHandler struct {
    Engine    *service.Engine
    Directory *service.Directory
}

func NewCustomerHandler(engine *service.Engine, dir *service.Directory) *CustomerHandler {
    if engine == nil || dir == nil {
        panic("nil dependency passed to NewCustomerHandler")
    }
    return &CustomerHandler{Engine: engine, Directory: dir}
}

type reserveReq struct {
    PartyName  string `json:"party_name"`
    PartyPhone string `json:"party_phone"`
    TimeLabel  string `json:"time_label"`
}

// Reserve handles POST /v1/restaurants/:id/tables/:number/reserve.
func (h *CustomerHandler) Reserve(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    restaurantID, ok := pathUint(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
    }
    number, ok := pathTableNumber(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
    }
    var req reserveReq
    if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    ref, err := h.Engine.Reserve(ctx, restaurantID, number, uid, req.PartyName, req.PartyPhone, req.TimeLabel)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "booking_ref":   ref,
        "restaurant_id": restaurantID,
        "table_number":  number,
    })
}

// ListOwnBookings handles GET /v1/my-bookings.
func (h *CustomerHandler) ListOwnBookings(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    items, err := h.Directory.GetBookingsForCaller(ctx, uid)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Cancel handles DELETE /v1/bookings/:ref.  The ref contains '#', so
// clients send it escaped as %23.
func (h *CustomerHandler) Cancel(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ref, err := url.PathUnescape(c.Param("ref"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking ref"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.Engine.Cancel(ctx, ref, uid); err != nil {
        return writeServiceError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
