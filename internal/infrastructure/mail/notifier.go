package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/guiapractica/cuentas/internal/core/ports"
)

const (
	confirmationSubject  = "Confirma tu cuenta en la GuiaPractica.colmex"
	passwordResetSubject = "Reestablece tu cuenta en la GuiaPractica.colmex"

	confirmationPath  = "/auth/confirmar/"
	passwordResetPath = "/auth/olvide-password/"
)

//go:embed templates
var templatesFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templatesFS, "templates/*.txt"))
)

type templateData struct {
	Name string
	Link string
}

// Notifier renders confirmation and reset emails and hands them to a Sender.
// It delivers synchronously; wrap it in a queue.Dispatcher for fire-and-forget.
type Notifier struct {
	sender  Sender
	baseURL string
}

// NewNotifier returns a Notifier building links under baseURL.
func NewNotifier(sender Sender, baseURL string) *Notifier {
	return &Notifier{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

var _ ports.Notifier = (*Notifier)(nil)

func (n *Notifier) SendConfirmation(ctx context.Context, to ports.Recipient) error {
	msg, err := n.render(to, confirmationSubject, "confirmation", confirmationPath)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

func (n *Notifier) SendPasswordReset(ctx context.Context, to ports.Recipient) error {
	msg, err := n.render(to, passwordResetSubject, "password_reset", passwordResetPath)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

func (n *Notifier) render(to ports.Recipient, subject, name, path string) (Message, error) {
	if to.Email == "" || to.Token == "" {
		return Message{}, fmt.Errorf("render %s: recipient needs an email and a token", name)
	}

	data := templateData{Name: to.Name, Link: n.baseURL + path + url.PathEscape(to.Token)}

	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}

	return Message{
		To:      to.Email,
		ToName:  to.Name,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
