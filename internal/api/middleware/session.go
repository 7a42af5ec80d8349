package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guiapractica/cuentas/internal/core/ports"
	"github.com/guiapractica/cuentas/pkg/logger"
)

// Context keys set by Session.
const (
	SessionClaimsKey = "session_claims"
	SessionTokenKey  = "session_token"
)

// Session verifies the session cookie and injects its claims into the echo
// context. Requests without a valid credential are redirected to loginPath
// and an invalid cookie is cleared.
func Session(issuer ports.SessionIssuer, cookieName, loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return c.Redirect(http.StatusSeeOther, loginPath)
			}

			claims, err := issuer.Verify(cookie.Value)
			if err != nil {
				logger.Ctx(c.Request().Context()).Debug().Err(err).Msg("rejected session cookie")
				c.SetCookie(&http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
				return c.Redirect(http.StatusSeeOther, loginPath)
			}

			c.Set(SessionClaimsKey, claims)
			c.Set(SessionTokenKey, cookie.Value)
			return next(c)
		}
	}
}
