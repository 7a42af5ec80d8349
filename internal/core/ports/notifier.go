package ports

import "context"

// Recipient identifies who receives a token link and which token it carries.
type Recipient struct {
	Email string
	Name  string
	Token string
}

// Notifier delivers account emails containing a token-bearing link.
type Notifier interface {
	SendConfirmation(ctx context.Context, to Recipient) error
	SendPasswordReset(ctx context.Context, to Recipient) error
}

// Mail kinds, used as metric labels and delivery ledger namespaces.
const (
	MailKindConfirmation  = "confirmation"
	MailKindPasswordReset = "password_reset"
)
