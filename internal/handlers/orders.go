package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/models"
	"github.com/Skotchmaster/hat_shop/internal/orders"
	"github.com/Skotchmaster/hat_shop/internal/transport"
	"github.com/Skotchmaster/hat_shop/internal/util"
)

type OrderHandler struct {
	Svc *orders.Service
}

func (h *OrderHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.checkout")

	sid, err := sessionID(c, l, "checkout_failed")
	if err != nil {
		return err
	}
	var req orders.Request
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.Checkout(ctx, sid, req)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrValidation):
			l.Warn("checkout_failed", "status", 400, "reason", "validation failed", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, orders.ErrEmptyCart):
			l.Warn("checkout_failed", "status", 409, "reason", "empty cart")
			return echo.NewHTTPError(http.StatusConflict, "cart is empty")
		default:
			l.Error("checkout_failed", "status", 500, "reason", "cannot create order", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create order")
		}
	}

	l.Info("checkout_success", "order_id", order.ID, "subtotal", order.Subtotal.StringFixed(2))
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.get_order")

	sid, err := sessionID(c, l, "get_order_failed")
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("get_order_failed", "status", 400, "reason", "invalid id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	order, err := h.Svc.GetOrder(ctx, sid, id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			l.Warn("get_order_failed", "status", 404, "reason", "order not found", "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("get_order_failed", "status", 500, "reason", "db error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load order")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list_orders")

	sid, err := sessionID(c, l, "list_orders_failed")
	if err != nil {
		return err
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListOrders(ctx, sid, offset, limit)
	if err != nil {
		l.Error("list_orders_failed", "status", 500, "reason", "db error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}
	if items == nil {
		items = []models.Order{}
	}

	return c.JSON(http.StatusOK, transport.Page[models.Order]{
		Data: items,
		Meta: transport.PageMeta{
			Page:       max(page, 1),
			Size:       limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
			HasPrev:    page > 1,
			HasNext:    util.HasNext(offset, limit, total),
		},
	})
}
