package domain

import (
	"errors"
	"strings"
)

var (
	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the email or id.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound is returned when no pending operation matches the token.
	ErrTokenNotFound = errors.New("token not found")
	// ErrAccountNotConfirmed is returned on login before the email was confirmed.
	ErrAccountNotConfirmed = errors.New("account not confirmed")
	// ErrIncorrectPassword is returned when the password does not match the stored hash.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrTokenCollision is returned by stores when a generated token is already in use.
	ErrTokenCollision = errors.New("token already in use")
	// ErrInvalidSession is returned when a session credential is missing, expired or tampered.
	ErrInvalidSession = errors.New("invalid session")
)

// FieldError is a single failed rule on a form field. Msg is user-facing.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationError carries the failed rules of a form in the order they were checked.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewValidationError builds a ValidationError with a single failed field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Msg: msg}}}
}

// AsValidationError unwraps err into a ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
