// Package views renders the HTML pages of the account flows.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

// View names accepted by Renderer.
const (
	Login           = "auth/login"
	Register        = "auth/registro"
	ForgotPassword  = "auth/olvide-password"
	ResetPassword   = "auth/reset-password"
	ConfirmAccount  = "auth/confirmar-cuenta"
	Message         = "templates/mensaje"
	Error           = "templates/error"
	AccountsLanding = "cuentas/inicio"
)

var names = []string{
	Login, Register, ForgotPassword, ResetPassword,
	ConfirmAccount, Message, Error, AccountsLanding,
}

//go:embed templates
var templatesFS embed.FS

// Renderer is an echo.Renderer over the embedded page templates. Each page
// is parsed together with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page. It fails if any template is malformed.
func New() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render satisfies echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
