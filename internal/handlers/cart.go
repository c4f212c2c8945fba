package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/hat_shop/internal/cart"
	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/transport"
)

type CartHandler struct {
	Svc *cart.Service
}

func cartError(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, cart.ErrValidation):
		l.Warn(event, "status", 400, "reason", "invalid variant", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrNotFound):
		l.Warn(event, "status", 404, "reason", "product not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	default:
		l.Error(event, "status", 503, "reason", "cart unavailable", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "cart unavailable")
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	sid, err := sessionID(c, l, "get_cart_failed")
	if err != nil {
		return err
	}
	view, err := h.Svc.Get(ctx, sid)
	if err != nil {
		return cartError(l, "get_cart_failed", err)
	}
	return c.JSON(http.StatusOK, transport.Cart(view))
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	sid, err := sessionID(c, l, "add_item_failed")
	if err != nil {
		return err
	}
	var req transport.AddItemRequest
	if err := bind(c, l, "add_item_failed", &req); err != nil {
		return err
	}

	view, err := h.Svc.Add(ctx, sid, cart.AddRequest{
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return cartError(l, "add_item_failed", err)
	}

	l.Info("add_item_success", "product_id", req.ProductID, "total_items", view.TotalItems)
	return c.JSON(http.StatusOK, transport.Cart(view))
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	sid, err := sessionID(c, l, "update_item_failed")
	if err != nil {
		return err
	}
	var req transport.UpdateItemRequest
	if err := bind(c, l, "update_item_failed", &req); err != nil {
		return err
	}

	key := cart.Key{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
	view, err := h.Svc.Update(ctx, sid, key, req.Quantity)
	if err != nil {
		return cartError(l, "update_item_failed", err)
	}

	l.Info("update_item_success", "product_id", req.ProductID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, transport.Cart(view))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	sid, err := sessionID(c, l, "remove_item_failed")
	if err != nil {
		return err
	}
	var req transport.RemoveItemRequest
	if err := bind(c, l, "remove_item_failed", &req); err != nil {
		return err
	}

	key := cart.Key{ProductID: req.ProductID, Size: req.Size, Color: req.Color}
	view, err := h.Svc.Remove(ctx, sid, key)
	if err != nil {
		return cartError(l, "remove_item_failed", err)
	}

	l.Info("remove_item_success", "product_id", req.ProductID)
	return c.JSON(http.StatusOK, transport.Cart(view))
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	sid, err := sessionID(c, l, "clear_cart_failed")
	if err != nil {
		return err
	}
	view, err := h.Svc.Clear(ctx, sid)
	if err != nil {
		return cartError(l, "clear_cart_failed", err)
	}

	l.Info("clear_cart_success")
	return c.JSON(http.StatusOK, transport.Cart(view))
}
