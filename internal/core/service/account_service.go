package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guiapractica/cuentas/internal/core/domain"
	"github.com/guiapractica/cuentas/internal/core/ports"
	"github.com/guiapractica/cuentas/internal/pkg/metrics"
)

// maxTokenAttempts bounds how many fresh tokens are tried when the store
// reports a token collision.
const maxTokenAttempts = 2

type accountService struct {
	repo     ports.UserRepository
	notifier ports.Notifier
	tokens   ports.TokenGenerator
	sessions ports.SessionIssuer
	hasher   ports.PasswordHasher
	validate *formValidator
	log      zerolog.Logger
}

// NewAccountService returns an AccountService implementation.
func NewAccountService(
	repo ports.UserRepository,
	notifier ports.Notifier,
	tokens ports.TokenGenerator,
	sessions ports.SessionIssuer,
	hasher ports.PasswordHasher,
	log zerolog.Logger,
) ports.AccountService {
	return &accountService{
		repo:     repo,
		notifier: notifier,
		tokens:   tokens,
		sessions: sessions,
		hasher:   hasher,
		validate: newFormValidator(),
		log:      log,
	}
}

// Register validates the form, creates an unconfirmed user with a fresh
// confirmation token and dispatches the confirmation email.
func (s *accountService) Register(ctx context.Context, in ports.RegisterInput) (_ *domain.User, err error) {
	defer func() { metrics.RegistrationsTotal.WithLabelValues(resultOf(err)).Inc() }()

	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.all(in); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.withFreshToken(user, func() error { return s.repo.Create(ctx, user) }); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	s.notify(ctx, ports.MailKindConfirmation, user, s.notifier.SendConfirmation)
	return user, nil
}

// ConfirmAccount consumes a confirmation token. Unknown or already used
// tokens yield domain.ErrTokenNotFound and leave the store untouched.
func (s *accountService) ConfirmAccount(ctx context.Context, token string) (_ *domain.User, err error) {
	defer func() { metrics.ConfirmationsTotal.WithLabelValues(resultOf(err)).Inc() }()

	user, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	user.Confirm()
	user.UpdatedAt = time.Now().UTC()
	if err := s.consume(ctx, user, token); err != nil {
		return nil, fmt.Errorf("confirm account: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("account confirmed")
	return user, nil
}

// Authenticate checks the credentials in order: form, existence,
// confirmation, password. The first failure is returned.
func (s *accountService) Authenticate(ctx context.Context, in ports.LoginInput) (_ *ports.SessionResult, err error) {
	defer func() { metrics.LoginsTotal.WithLabelValues(resultOf(err)).Inc() }()

	in.Email = normalizeEmail(in.Email)
	if err := s.validate.first(in); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if !user.Confirmed {
		return nil, domain.ErrAccountNotConfirmed
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		return nil, domain.ErrIncorrectPassword
	}

	token, expiresAt, err := s.sessions.Issue(user.ID, user.Name)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	return &ports.SessionResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// RequestPasswordReset stores a fresh token on the user, replacing any
// pending one, and dispatches the reset email.
func (s *accountService) RequestPasswordReset(ctx context.Context, in ports.ForgotPasswordInput) (_ *domain.User, err error) {
	defer func() { metrics.PasswordResetsTotal.WithLabelValues("request", resultOf(err)).Inc() }()

	in.Email = normalizeEmail(in.Email)
	if err := s.validate.first(in); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("request password reset: %w", err)
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.withFreshToken(user, func() error { return s.repo.Save(ctx, user) }); err != nil {
		return nil, fmt.Errorf("request password reset: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset requested")
	s.notify(ctx, ports.MailKindPasswordReset, user, s.notifier.SendPasswordReset)
	return user, nil
}

// ValidateResetToken reports whether the token belongs to a user without
// changing any state.
func (s *accountService) ValidateResetToken(ctx context.Context, token string) (_ *domain.User, err error) {
	defer func() { metrics.PasswordResetsTotal.WithLabelValues("validate", resultOf(err)).Inc() }()

	return s.findByToken(ctx, token)
}

// CompleteReset replaces the password of the token owner and consumes the token.
func (s *accountService) CompleteReset(ctx context.Context, in ports.ResetPasswordInput) (_ *domain.User, err error) {
	defer func() { metrics.PasswordResetsTotal.WithLabelValues("complete", resultOf(err)).Inc() }()

	if err := s.validate.first(in); err != nil {
		return nil, err
	}

	user, err := s.findByToken(ctx, in.Token)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("complete reset: %w", err)
	}

	user.PasswordHash = hash
	user.ClearToken()
	user.UpdatedAt = time.Now().UTC()
	if err := s.consume(ctx, user, in.Token); err != nil {
		return nil, fmt.Errorf("complete reset: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset completed")
	return user, nil
}

// CurrentUser resolves the user behind a session credential.
func (s *accountService) CurrentUser(ctx context.Context, sessionToken string) (*domain.User, error) {
	claims, err := s.sessions.Verify(sessionToken)
	if err != nil {
		return nil, domain.ErrInvalidSession
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

func (s *accountService) findByToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrTokenNotFound
	}
	user, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find by token: %w", err)
	}
	return user, nil
}

// consume persists user if token is still the pending one. A concurrent
// consumption or a newer token surfaces as domain.ErrTokenNotFound.
func (s *accountService) consume(ctx context.Context, user *domain.User, token string) error {
	err := s.repo.ConsumeToken(ctx, user, token)
	if errors.Is(err, domain.ErrTokenNotFound) {
		s.log.Info().Str("user_id", user.ID).Msg("token consumed or replaced concurrently")
	}
	return err
}

// withFreshToken assigns a new token to user and persists it, retrying with
// another token when the store reports a collision.
func (s *accountService) withFreshToken(user *domain.User, persist func() error) error {
	var err error
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, genErr := s.tokens.Generate()
		if genErr != nil {
			return fmt.Errorf("generate token: %w", genErr)
		}
		user.SetToken(token)

		err = persist()
		if !errors.Is(err, domain.ErrTokenCollision) {
			return err
		}
		s.log.Warn().Str("user_id", user.ID).Int("attempt", attempt).Msg("token collision, regenerating")
	}
	return err
}

// notify hands the email to the notifier. Failures are logged but never
// reach the caller; the dispatcher owns the mail_dispatched_total counter.
func (s *accountService) notify(ctx context.Context, kind string, user *domain.User, send func(context.Context, ports.Recipient) error) {
	to := ports.Recipient{Email: user.Email, Name: user.Name, Token: *user.Token}
	if err := send(ctx, to); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Str("kind", kind).Msg("failed to dispatch account email")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// resultOf maps an operation outcome to its metric label.
func resultOf(err error) string {
	if _, ok := domain.AsValidationError(err); ok {
		return metrics.ResultInvalid
	}
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, domain.ErrUserExists):
		return metrics.ResultConflict
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrTokenNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrAccountNotConfirmed), errors.Is(err, domain.ErrIncorrectPassword):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
