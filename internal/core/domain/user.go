package domain

import "time"

// User is a registered account. A non-nil Token means a confirmation or a
// password reset is waiting for that token to be presented.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"nombre"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Confirmed    bool      `json:"confirmado"`
	Token        *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPendingToken reports whether the user is waiting on a confirmation or reset link.
func (u *User) HasPendingToken() bool {
	return u.Token != nil && *u.Token != ""
}

// SetToken replaces any pending token, invalidating the previous one.
func (u *User) SetToken(token string) {
	u.Token = &token
}

// ClearToken consumes the pending token.
func (u *User) ClearToken() {
	u.Token = nil
}

// Confirm marks the account as confirmed and consumes the confirmation token.
// Confirmed never reverts to false.
func (u *User) Confirm() {
	u.Confirmed = true
	u.ClearToken()
}
