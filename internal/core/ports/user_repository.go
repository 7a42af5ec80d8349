package ports

import (
	"context"

	"github.com/guiapractica/cuentas/internal/core/domain"
)

// UserRepository is the credential store. Implementations enforce unique
// email and unique non-null token, and report misses as domain.ErrUserNotFound.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByToken(ctx context.Context, token string) (*domain.User, error)
	// Create inserts a new user. A duplicate email yields domain.ErrUserExists,
	// a duplicate token domain.ErrTokenCollision.
	Create(ctx context.Context, user *domain.User) error
	// Save persists every mutable field of an existing user.
	Save(ctx context.Context, user *domain.User) error
	// ConsumeToken saves user only while its stored token still equals token.
	// A token already consumed or replaced yields domain.ErrTokenNotFound.
	ConsumeToken(ctx context.Context, user *domain.User, token string) error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
