package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/guiapractica/cuentas/internal/api/views"
	"github.com/guiapractica/cuentas/internal/core/domain"
	"github.com/guiapractica/cuentas/internal/core/ports"
)

// Page titles.
const (
	titleLogin          = "Iniciar sesión"
	titleRegister       = "Crear cuenta"
	titleForgotPassword = "Recuperar acceso"
	titleResetPassword  = "Reestablece tu password"
	titleAccountCreated = "Cuenta creada correctamente"
	titleConfirmFailed  = "Error al confirmar tu cuenta"
	titleConfirmed      = "Cuenta confirmada"
	titleAccounts       = "Mis cuentas"
)

// User-facing messages.
const (
	msgUserExists        = "El usuario ya esta registrado"
	msgCheckEmail        = "Hemos enviado un email de confirmacion, presiona en el enlace"
	msgConfirmFailed     = "Hubo un error al confirmar tu cuenta, intenta de nuevo"
	msgConfirmed         = "La cuenta se confirmó correctamente"
	msgUserNotFound      = "El usuario no existe"
	msgNotConfirmed      = "Tu cuenta no ha sido confirmada"
	msgIncorrectPassword = "El password es incorrecto"
	msgEmailUnknown      = "El email no pertenece a ningún usuario"
	msgResetSent         = "Hemos enviado un email con las instrucciones"
	msgResetTokenInvalid = "Hubo un error al validar tu informacion, intenta de nuevo"
	msgPasswordSaved     = "El password se guardó correctamente"
)

// Config holds the presentation settings of the account flows.
type Config struct {
	CookieName   string
	CookieSecure bool
	LandingPath  string
	LoginPath    string
}

// AccountHandler renders the account forms and handles their submissions.
type AccountHandler struct {
	svc ports.AccountService
	cfg Config
}

func NewAccountHandler(svc ports.AccountService, cfg Config) *AccountHandler {
	if cfg.CookieName == "" {
		cfg.CookieName = "_token"
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = "/mis-cuentas"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}
	return &AccountHandler{svc: svc, cfg: cfg}
}

// Home redirects to the login form.
func (h *AccountHandler) Home(c echo.Context) error {
	return c.Redirect(http.StatusFound, h.cfg.LoginPath)
}

// LoginForm renders GET /auth/login.
func (h *AccountHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, views.Login, h.page(c, titleLogin))
}

// Login handles POST /auth/login. On success the session cookie is set and
// the user is redirected to the landing page.
func (h *AccountHandler) Login(c echo.Context) error {
	var in ports.LoginInput
	if err := c.Bind(&in); err != nil {
		return err
	}

	res, err := h.svc.Authenticate(c.Request().Context(), in)
	if err != nil {
		data := h.page(c, titleLogin)
		data["usuario"] = echo.Map{"email": in.Email}

		if ve, ok := domain.AsValidationError(err); ok {
			data["errores"] = ve.Fields
			return c.Render(http.StatusUnprocessableEntity, views.Login, data)
		}

		var msg string
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			msg = msgUserNotFound
		case errors.Is(err, domain.ErrAccountNotConfirmed):
			msg = msgNotConfirmed
		case errors.Is(err, domain.ErrIncorrectPassword):
			msg = msgIncorrectPassword
		default:
			return err
		}
		data["errores"] = errorList(msg)
		return c.Render(http.StatusUnauthorized, views.Login, data)
	}

	c.SetCookie(h.sessionCookie(res.Token, res.ExpiresAt))
	return c.Redirect(http.StatusSeeOther, h.cfg.LandingPath)
}

// Logout handles POST /auth/cerrar-sesion.
func (h *AccountHandler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", time.Time{}))
	return c.Redirect(http.StatusSeeOther, h.cfg.LoginPath)
}

// RegisterForm renders GET /auth/registro.
func (h *AccountHandler) RegisterForm(c echo.Context) error {
	return c.Render(http.StatusOK, views.Register, h.page(c, titleRegister))
}

// Register handles POST /auth/registro.
func (h *AccountHandler) Register(c echo.Context) error {
	var in ports.RegisterInput
	if err := c.Bind(&in); err != nil {
		return err
	}

	if _, err := h.svc.Register(c.Request().Context(), in); err != nil {
		data := h.page(c, titleRegister)
		data["usuario"] = echo.Map{"nombre": in.Name, "email": in.Email}

		if ve, ok := domain.AsValidationError(err); ok {
			data["errores"] = ve.Fields
			return c.Render(http.StatusUnprocessableEntity, views.Register, data)
		}
		if errors.Is(err, domain.ErrUserExists) {
			data["errores"] = errorList(msgUserExists)
			return c.Render(http.StatusConflict, views.Register, data)
		}
		return err
	}

	data := h.page(c, titleAccountCreated)
	data["mensaje"] = msgCheckEmail
	return c.Render(http.StatusCreated, views.Message, data)
}

// Confirm handles GET /auth/confirmar/:token.
func (h *AccountHandler) Confirm(c echo.Context) error {
	if _, err := h.svc.ConfirmAccount(c.Request().Context(), c.Param("token")); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			data := h.page(c, titleConfirmFailed)
			data["mensaje"] = msgConfirmFailed
			data["error"] = true
			return c.Render(http.StatusNotFound, views.ConfirmAccount, data)
		}
		return err
	}

	data := h.page(c, titleConfirmed)
	data["mensaje"] = msgConfirmed
	return c.Render(http.StatusOK, views.ConfirmAccount, data)
}

// ForgotPasswordForm renders GET /auth/olvide-password.
func (h *AccountHandler) ForgotPasswordForm(c echo.Context) error {
	return c.Render(http.StatusOK, views.ForgotPassword, h.page(c, titleForgotPassword))
}

// ForgotPassword handles POST /auth/olvide-password.
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var in ports.ForgotPasswordInput
	if err := c.Bind(&in); err != nil {
		return err
	}

	if _, err := h.svc.RequestPasswordReset(c.Request().Context(), in); err != nil {
		data := h.page(c, titleForgotPassword)
		data["usuario"] = echo.Map{"email": in.Email}

		if ve, ok := domain.AsValidationError(err); ok {
			data["errores"] = ve.Fields
			return c.Render(http.StatusUnprocessableEntity, views.ForgotPassword, data)
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			data["errores"] = errorList(msgEmailUnknown)
			return c.Render(http.StatusNotFound, views.ForgotPassword, data)
		}
		return err
	}

	data := h.page(c, titleResetPassword)
	data["mensaje"] = msgResetSent
	return c.Render(http.StatusOK, views.Message, data)
}

// ResetPasswordForm handles GET /auth/olvide-password/:token.
func (h *AccountHandler) ResetPasswordForm(c echo.Context) error {
	token := c.Param("token")
	if _, err := h.svc.ValidateResetToken(c.Request().Context(), token); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return h.renderInvalidResetToken(c)
		}
		return err
	}

	data := h.page(c, titleResetPassword)
	data["token"] = token
	return c.Render(http.StatusOK, views.ResetPassword, data)
}

// ResetPassword handles POST /auth/olvide-password/:token.
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var in ports.ResetPasswordInput
	if err := c.Bind(&in); err != nil {
		return err
	}

	if _, err := h.svc.CompleteReset(c.Request().Context(), in); err != nil {
		if ve, ok := domain.AsValidationError(err); ok {
			data := h.page(c, titleResetPassword)
			data["token"] = in.Token
			data["errores"] = ve.Fields
			return c.Render(http.StatusUnprocessableEntity, views.ResetPassword, data)
		}
		if errors.Is(err, domain.ErrTokenNotFound) {
			return h.renderInvalidResetToken(c)
		}
		return err
	}

	data := h.page(c, titleResetPassword)
	data["mensaje"] = msgPasswordSaved
	return c.Render(http.StatusOK, views.ConfirmAccount, data)
}

// Landing renders the page behind the session, GET /mis-cuentas.
func (h *AccountHandler) Landing(c echo.Context) error {
	_, token, err := ctxSession(c)
	if err != nil {
		return err
	}

	user, err := h.svc.CurrentUser(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			c.SetCookie(h.sessionCookie("", time.Time{}))
			return c.Redirect(http.StatusSeeOther, h.cfg.LoginPath)
		}
		return err
	}

	data := h.page(c, titleAccounts)
	data["usuario"] = echo.Map{"nombre": user.Name, "email": user.Email}
	return c.Render(http.StatusOK, views.AccountsLanding, data)
}

func (h *AccountHandler) renderInvalidResetToken(c echo.Context) error {
	data := h.page(c, titleResetPassword)
	data["mensaje"] = msgResetTokenInvalid
	data["error"] = true
	return c.Render(http.StatusNotFound, views.ConfirmAccount, data)
}

// page returns the data every view receives.
func (h *AccountHandler) page(c echo.Context, title string) echo.Map {
	return echo.Map{
		"pagina":    title,
		"csrfToken": csrfToken(c),
	}
}

// sessionCookie builds the session cookie. An empty token expires it.
func (h *AccountHandler) sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if token == "" {
		cookie.MaxAge = -1
		return cookie
	}
	cookie.Expires = expiresAt
	return cookie
}

func errorList(msgs ...string) []domain.FieldError {
	out := make([]domain.FieldError, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, domain.FieldError{Msg: m})
	}
	return out
}
