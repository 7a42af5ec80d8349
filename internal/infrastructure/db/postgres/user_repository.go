package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/guiapractica/cuentas/internal/core/domain"
	"github.com/guiapractica/cuentas/internal/core/ports"
)

const (
	emailConstraint = "users_email_key"
	tokenConstraint = "users_token_key"

	userColumns = `id, nombre, email, password, confirmado, token, created_at, updated_at`
)

// UserRepository is the PostgreSQL credential store.
type UserRepository struct {
	pool pool
}

func NewUserRepository(p pool) *UserRepository {
	return &UserRepository{pool: p}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) FindByToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE token = $1`, token)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Confirmed, u.Token, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return mapError("insert user", err)
	}
	return nil
}

func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET nombre = $2, email = $3, password = $4, confirmado = $5, token = $6, updated_at = $7
		 WHERE id = $1`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Confirmed, u.Token, u.UpdatedAt,
	)
	if err != nil {
		return mapError("save user", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ConsumeToken(ctx context.Context, u *domain.User, token string) error {
	if token == "" {
		return domain.ErrTokenNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET nombre = $2, email = $3, password = $4, confirmado = $5, token = $6, updated_at = $7
		 WHERE id = $1 AND token = $8`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Confirmed, u.Token, u.UpdatedAt, token,
	)
	if err != nil {
		return mapError("consume token", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var (
		u     domain.User
		token sql.NullString
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Confirmed, &token, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if token.Valid {
		u.SetToken(token.String)
	}
	return &u, nil
}

// mapError translates unique violations by the constraint that rejected the write.
func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case tokenConstraint:
			return domain.ErrTokenCollision
		case emailConstraint:
			return domain.ErrUserExists
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
