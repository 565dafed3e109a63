package account

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidLogin is returned for an unknown email and for a wrong password alike.
	ErrInvalidLogin = errors.New("invalid login attempt")
	// ErrDuplicateEmail is returned by a UserStore when the normalized email is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUserNotFound is returned by a UserStore lookup that matches nothing.
	ErrUserNotFound = errors.New("user not found")
)

// RegistrationError carries the user-facing reasons a registration was refused.
type RegistrationError struct {
	Problems []string
	Err      error
}

func (e *RegistrationError) Error() string {
	return "registration failed: " + strings.Join(e.Problems, " ")
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}
