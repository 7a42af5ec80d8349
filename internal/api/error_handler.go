package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guiapractica/cuentas/internal/api/views"
	"github.com/guiapractica/cuentas/internal/core/domain"
	"github.com/guiapractica/cuentas/pkg/logger"
)

const (
	titleError     = "Error"
	msgGeneric     = "Hubo un error, intenta de nuevo"
	msgNotFound    = "La página que buscas no existe"
	msgForbidden   = "Tu sesión expiró, recarga la página e intenta de nuevo"
	msgBadRequest  = "La información enviada no es válida"
	msgLoginNeeded = "Debes iniciar sesión para continuar"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors and echo's own errors to an HTTP status.
//   - Logs unexpected errors with the request logger without leaking details.
//   - Renders the error page with a user-facing message.
func NewHTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		if c.Echo().Renderer == nil {
			_ = c.String(code, msg)
			return
		}
		if rerr := c.Render(code, views.Error, echo.Map{
			"pagina":  titleError,
			"mensaje": msg,
		}); rerr != nil {
			logger.Ctx(c.Request().Context()).Error().Err(rerr).Msg("render error page")
		}
	}
}

func resolveError(err error, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, CSRF rejections, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			return he.Code, msgNotFound
		case http.StatusForbidden:
			return he.Code, msgForbidden
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			return he.Code, msgBadRequest
		case http.StatusUnauthorized:
			return he.Code, msgLoginNeeded
		}
		if he.Code < http.StatusInternalServerError {
			return he.Code, msgGeneric
		}
	}

	switch {
	case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, domain.ErrInvalidSession):
		return http.StatusUnauthorized, msgLoginNeeded
	}

	// Unexpected error: log the real cause, return a generic message.
	logger.Ctx(c.Request().Context()).Error().
		Err(err).
		Str("route", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, msgGeneric
}
