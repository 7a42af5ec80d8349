package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/guiapractica/cuentas/internal/api/middleware"
	"github.com/guiapractica/cuentas/internal/core/ports"
)

// ctxSession extracts the session injected by the Session middleware. A
// missing value means the route was registered without the middleware.
func ctxSession(c echo.Context) (*ports.SessionClaims, string, error) {
	claims, _ := c.Get(middleware.SessionClaimsKey).(*ports.SessionClaims)
	token, _ := c.Get(middleware.SessionTokenKey).(string)
	if claims == nil || token == "" {
		return nil, "", echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return claims, token, nil
}

// csrfToken returns the token set by echo's CSRF middleware, or "" when CSRF is off.
func csrfToken(c echo.Context) string {
	token, _ := c.Get(echomiddleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
