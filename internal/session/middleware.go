package session

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/hat_shop/internal/logging"
)

const contextKey = "session_id"

// Middleware resolves the shopper's session from the session cookie and
// starts a new one when the cookie is missing, forged or expired.
func (m *Manager) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		l := logging.FromContext(req.Context())

		var sessionID string
		if ck, err := c.Cookie(m.CookieName); err == nil && ck.Value != "" {
			id, perr := m.Parse(ck.Value)
			if perr == nil {
				sessionID = id
			} else {
				l.Warn("session_token_rejected", "error", perr)
			}
		}

		if sessionID == "" {
			sessionID = NewID()
			token, exp, err := m.Issue(sessionID)
			if err != nil {
				l.Error("session_issue_error", "status", 500, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "cannot start session")
			}
			c.SetCookie(&http.Cookie{
				Name:     m.CookieName,
				Value:    token,
				Path:     "/",
				Expires:  exp,
				HttpOnly: true,
				Secure:   m.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			l.Info("session_started", "session_id", sessionID)
		}

		c.Set(contextKey, sessionID)
		c.SetRequest(req.WithContext(logging.With(req.Context(), "session_id", sessionID)))
		return next(c)
	}
}

func ID(c echo.Context) (string, error) {
	s, ok := c.Get(contextKey).(string)
	if !ok || s == "" {
		return "", errors.New("no session")
	}
	return s, nil
}

// SetID attaches a session id to c without going through the cookie flow.
func SetID(c echo.Context, id string) {
	c.Set(contextKey, id)
}
