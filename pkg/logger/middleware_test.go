package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestMiddleware_InjectsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Middleware(base)(func(c echo.Context) error {
		Ctx(c.Request().Context()).Info().Msg("inside handler")
		return c.NoContent(http.StatusNoContent)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var inside, access map[string]any
	_ = json.Unmarshal([]byte(lines[0]), &inside)
	_ = json.Unmarshal([]byte(lines[1]), &access)

	if inside["request_id"] != "req-42" || inside["path"] != "/auth/login" {
		t.Fatalf("handler log missing request fields: %v", inside)
	}
	if access["status"] != float64(http.StatusNoContent) {
		t.Fatalf("expected status 204 in access log, got %v", access["status"])
	}
}

func TestMiddleware_LogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/registro", nil), httptest.NewRecorder())

	h := Middleware(zerolog.New(&buf))(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store down")
	})
	if err := h(c); err == nil {
		t.Fatalf("expected error to propagate")
	}
	if !strings.Contains(buf.String(), `"level":"error"`) || !strings.Contains(buf.String(), `"status":503`) {
		t.Fatalf("expected error level entry with status 503, got %s", buf.String())
	}
}

func TestCtx_WithoutMiddleware(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	// No logger in context and no Init: must not panic.
	Ctx(context.Background()).Info().Msg("dropped")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComponent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	Init(Options{Output: &buf, Service: "cuentas"})

	l := Component("mail")
	l.Info().Msg("queued")

	out := buf.String()
	if !strings.Contains(out, `"component":"mail"`) || !strings.Contains(out, `"service":"cuentas"`) {
		t.Fatalf("expected component and service fields, got %s", out)
	}
}
