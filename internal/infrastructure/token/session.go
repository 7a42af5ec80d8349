package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/guiapractica/cuentas/internal/core/domain"
	"github.com/guiapractica/cuentas/internal/core/ports"
)

// DefaultIssuer is the iss claim of session credentials.
const DefaultIssuer = "guiapractica"

// JWTSessionIssuer issues and verifies HS256 session credentials.
type JWTSessionIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTSessionIssuer constructs an issuer with the provided secret and lifetime.
func NewJWTSessionIssuer(secret string, ttl time.Duration, issuer string) *JWTSessionIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &JWTSessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

var _ ports.SessionIssuer = (*JWTSessionIssuer)(nil)

// sessionClaims is the JWT payload.
type sessionClaims struct {
	UserID string `json:"uid"`
	Name   string `json:"nombre"`
	jwt.RegisteredClaims
}

// Issue signs a credential binding the user id and display name.
func (m *JWTSessionIssuer) Issue(userID, name string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("issue session: empty user id")
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	claims := sessionClaims{
		UserID: userID,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue session: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses the credential and rejects non-HMAC algorithms, bad
// signatures, foreign issuers and expired tokens with domain.ErrInvalidSession.
func (m *JWTSessionIssuer) Verify(tokenString string) (*ports.SessionClaims, error) {
	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tkn.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSession, err)
	}

	return &ports.SessionClaims{
		UserID:    claims.UserID,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
