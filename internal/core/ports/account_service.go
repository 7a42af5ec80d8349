package ports

import (
	"context"
	"time"

	"github.com/guiapractica/cuentas/internal/core/domain"
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name                 string `form:"nombre" validate:"required"`
	Email                string `form:"email" validate:"email"`
	Password             string `form:"password" validate:"min=6,maxbytes=72"`
	PasswordConfirmation string `form:"repetir_password" validate:"eqfield=Password"`
}

// LoginInput carries the login form.
type LoginInput struct {
	Email    string `form:"email" validate:"email"`
	Password string `form:"password" validate:"required"`
}

// ForgotPasswordInput carries the forgot-password form.
type ForgotPasswordInput struct {
	Email string `form:"email" validate:"email"`
}

// ResetPasswordInput carries the new-password form posted with a reset token.
type ResetPasswordInput struct {
	Token    string `param:"token"`
	Password string `form:"password" validate:"min=6,maxbytes=72"`
}

// SessionResult is returned by a successful login.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AccountService orchestrates the account lifecycle.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	ConfirmAccount(ctx context.Context, token string) (*domain.User, error)
	Authenticate(ctx context.Context, in LoginInput) (*SessionResult, error)
	RequestPasswordReset(ctx context.Context, in ForgotPasswordInput) (*domain.User, error)
	ValidateResetToken(ctx context.Context, token string) (*domain.User, error)
	CompleteReset(ctx context.Context, in ResetPasswordInput) (*domain.User, error)
	CurrentUser(ctx context.Context, sessionToken string) (*domain.User, error)
}
