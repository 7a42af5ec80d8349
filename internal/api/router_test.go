package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/guiapractica/cuentas/internal/api/views"
	"github.com/guiapractica/cuentas/internal/core/domain"
	"github.com/guiapractica/cuentas/internal/core/ports"
)

// fakeAccounts implements ports.AccountService. Only the operations a test
// sets are expected to be reached.
type fakeAccounts struct {
	ports.AccountService
	authenticateFn func(ctx context.Context, in ports.LoginInput) (*ports.SessionResult, error)
	registerFn     func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	currentUserFn  func(ctx context.Context, token string) (*domain.User, error)
}

func (f *fakeAccounts) Authenticate(ctx context.Context, in ports.LoginInput) (*ports.SessionResult, error) {
	return f.authenticateFn(ctx, in)
}

func (f *fakeAccounts) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return f.registerFn(ctx, in)
}

func (f *fakeAccounts) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	return f.currentUserFn(ctx, token)
}

type fakeSessions struct{}

func (fakeSessions) Issue(userID, name string) (string, time.Time, error) {
	return "session-" + userID, time.Now().Add(time.Hour), nil
}

func (fakeSessions) Verify(token string) (*ports.SessionClaims, error) {
	if !strings.HasPrefix(token, "session-") {
		return nil, domain.ErrInvalidSession
	}
	return &ports.SessionClaims{UserID: strings.TrimPrefix(token, "session-")}, nil
}

func newTestRouter(t *testing.T, svc ports.AccountService, csrf bool) *echo.Echo {
	t.Helper()
	renderer, err := views.New()
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	return NewRouter(Deps{
		Accounts:    svc,
		Sessions:    fakeSessions{},
		Renderer:    renderer,
		Log:         zerolog.Nop(),
		LandingPath: "/mis-cuentas",
		CSRFEnabled: csrf,
		Registerer:  prometheus.NewRegistry(),
	})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func TestRouter_HomeRedirectsToLogin(t *testing.T) {
	e := newTestRouter(t, &fakeAccounts{}, false)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/auth/login" {
		t.Fatalf("expected redirect to login, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRouter_LoginThenLanding(t *testing.T) {
	svc := &fakeAccounts{
		authenticateFn: func(ctx context.Context, in ports.LoginInput) (*ports.SessionResult, error) {
			return &ports.SessionResult{Token: "session-u1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		currentUserFn: func(ctx context.Context, token string) (*domain.User, error) {
			return &domain.User{ID: "u1", Name: "Ana", Email: "ana@x.mx"}, nil
		},
	}
	e := newTestRouter(t, svc, false)

	rec := serve(e, postForm("/auth/login", url.Values{"email": {"ana@x.mx"}, "password": {"secreto1"}}))
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/mis-cuentas" {
		t.Fatalf("expected redirect to landing, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "_token" {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/mis-cuentas", nil)
	req.AddCookie(cookies[0])
	rec = serve(e, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Hola Ana") {
		t.Fatalf("expected landing page, got %d", rec.Code)
	}
}

func TestRouter_LandingWithoutSession(t *testing.T) {
	e := newTestRouter(t, &fakeAccounts{}, false)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/mis-cuentas", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/auth/login" {
		t.Fatalf("expected redirect to login, got %d", rec.Code)
	}
}

func TestRouter_CSRF(t *testing.T) {
	called := false
	svc := &fakeAccounts{
		authenticateFn: func(ctx context.Context, in ports.LoginInput) (*ports.SessionResult, error) {
			called = true
			return nil, domain.ErrIncorrectPassword
		},
	}
	e := newTestRouter(t, svc, true)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login form, got %d", rec.Code)
	}
	var csrfCookieValue string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == csrfCookie {
			csrfCookieValue = ck.Value
		}
	}
	if csrfCookieValue == "" {
		t.Fatalf("expected csrf cookie")
	}
	if !strings.Contains(rec.Body.String(), `value="`+csrfCookieValue+`"`) {
		t.Fatalf("expected csrf token in the form")
	}

	// Without the form token the request never reaches the service.
	req := postForm("/auth/login", url.Values{"email": {"ana@x.mx"}, "password": {"x"}})
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: csrfCookieValue})
	rec = serve(e, req)
	if rec.Code != http.StatusForbidden && rec.Code != http.StatusBadRequest {
		t.Fatalf("expected csrf rejection, got %d", rec.Code)
	}
	if called {
		t.Fatalf("service reached without csrf token")
	}

	req = postForm("/auth/login", url.Values{"email": {"ana@x.mx"}, "password": {"x"}, "_csrf": {csrfCookieValue}})
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: csrfCookieValue})
	rec = serve(e, req)
	if rec.Code != http.StatusUnauthorized || !called {
		t.Fatalf("expected login attempt with valid token, got %d", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	e := newTestRouter(t, &fakeAccounts{}, false)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/no-existe", nil))
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), msgNotFound) {
		t.Fatalf("expected rendered 404, got %d:\n%s", rec.Code, rec.Body.String())
	}
}

func TestRouter_UnexpectedError(t *testing.T) {
	svc := &fakeAccounts{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	e := newTestRouter(t, svc, false)

	rec := serve(e, postForm("/auth/registro", url.Values{"nombre": {"Ana"}}))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, msgGeneric) || strings.Contains(body, "connection refused") {
		t.Fatalf("expected generic message without internals:\n%s", body)
	}
}
