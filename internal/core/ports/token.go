package ports

import "time"

// TokenGenerator produces unguessable single-use tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

// SessionClaims is the identity bound into a session credential.
type SessionClaims struct {
	UserID    string
	Name      string
	ExpiresAt time.Time
}

// SessionIssuer signs and verifies session credentials.
type SessionIssuer interface {
	Issue(userID, name string) (token string, expiresAt time.Time, err error)
	// Verify rejects expired or tampered credentials with domain.ErrInvalidSession.
	Verify(token string) (*SessionClaims, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify returns (false, nil) on mismatch and an error only for malformed hashes.
	Verify(password, hash string) (bool, error)
}
