package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/hat_shop/internal/session"
	"github.com/Skotchmaster/hat_shop/internal/validation"
)

func sessionID(c echo.Context, l *slog.Logger, event string) (string, error) {
	id, err := session.ID(c)
	if err != nil {
		l.Warn(event, "status", 401, "reason", "no session", "error", err)
		return "", echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return id, nil
}

// bind decodes the JSON body into req and checks its validate tags.
func bind(c echo.Context, l *slog.Logger, event string, req any) error {
	if err := c.Bind(req); err != nil {
		l.Warn(event, "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := validation.Struct(req); err != nil {
		l.Warn(event, "status", 400, "reason", "validation failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
