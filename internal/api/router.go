package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/guiapractica/cuentas/internal/api/handler"
	"github.com/guiapractica/cuentas/internal/api/middleware"
	"github.com/guiapractica/cuentas/internal/core/ports"
	"github.com/guiapractica/cuentas/pkg/logger"
)

const (
	loginPath  = "/auth/login"
	cookieName = "_token"
	csrfCookie = "_csrf"
)

// Deps are the collaborators of the public router.
type Deps struct {
	Accounts ports.AccountService
	Sessions ports.SessionIssuer
	Renderer echo.Renderer
	Log      zerolog.Logger

	LandingPath  string
	CookieSecure bool
	CSRFEnabled  bool

	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = d.Renderer
	e.HTTPErrorHandler = NewHTTPErrorHandler()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(logger.Middleware(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: d.Registerer,
	}))
	e.Use(echomiddleware.BodyLimit("64K"))
	if d.CSRFEnabled {
		e.Use(echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
			TokenLookup:    "form:_csrf",
			CookieName:     csrfCookie,
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   d.CookieSecure,
			CookieSameSite: http.SameSiteStrictMode,
		}))
	}

	// --- Dependencies ---
	accounts := handler.NewAccountHandler(d.Accounts, handler.Config{
		CookieName:   cookieName,
		CookieSecure: d.CookieSecure,
		LandingPath:  d.LandingPath,
		LoginPath:    loginPath,
	})
	session := middleware.Session(d.Sessions, cookieName, loginPath)

	// --- Account routes ---
	e.GET("/", accounts.Home)

	auth := e.Group("/auth")
	auth.GET("/login", accounts.LoginForm)
	auth.POST("/login", accounts.Login)
	auth.POST("/cerrar-sesion", accounts.Logout)
	auth.GET("/registro", accounts.RegisterForm)
	auth.POST("/registro", accounts.Register)
	auth.GET("/confirmar/:token", accounts.Confirm)
	auth.GET("/olvide-password", accounts.ForgotPasswordForm)
	auth.POST("/olvide-password", accounts.ForgotPassword)
	auth.GET("/olvide-password/:token", accounts.ResetPasswordForm)
	auth.POST("/olvide-password/:token", accounts.ResetPassword)

	// --- Authenticated routes ---
	landing := d.LandingPath
	if landing == "" {
		landing = "/mis-cuentas"
	}
	e.GET(landing, accounts.Landing, session)

	return e
}
