package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/hat_shop/internal/logging"
	"github.com/Skotchmaster/hat_shop/internal/recent"
	"github.com/Skotchmaster/hat_shop/internal/transport"
)

type RecentHandler struct {
	Svc *recent.Service
}

func (h *RecentHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recent.list")

	sid, err := sessionID(c, l, "list_recent_failed")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.RecentResponse{
		Products: transport.Products(h.Svc.List(ctx, sid)),
	})
}

func (h *RecentHandler) Record(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recent.record")

	sid, err := sessionID(c, l, "record_view_failed")
	if err != nil {
		return err
	}
	var req transport.RecordViewRequest
	if err := bind(c, l, "record_view_failed", &req); err != nil {
		return err
	}

	products, err := h.Svc.Record(ctx, sid, recent.Ref{ProductID: req.ProductID, Slug: req.Slug})
	if err != nil {
		switch {
		case errors.Is(err, recent.ErrValidation):
			l.Warn("record_view_failed", "status", 400, "reason", "missing product reference", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, recent.ErrNotFound):
			l.Warn("record_view_failed", "status", 404, "reason", "product not found", "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		default:
			l.Error("record_view_failed", "status", 503, "reason", "catalog unavailable", "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog unavailable")
		}
	}

	return c.JSON(http.StatusOK, transport.RecentResponse{Products: transport.Products(products)})
}

func (h *RecentHandler) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recent.clear")

	sid, err := sessionID(c, l, "clear_recent_failed")
	if err != nil {
		return err
	}
	l.Info("clear_recent_success")
	return c.JSON(http.StatusOK, transport.RecentResponse{
		Products: transport.Products(h.Svc.Clear(ctx, sid)),
	})
}
