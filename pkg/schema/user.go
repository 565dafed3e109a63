// Package schema defines the data structures shared by the Celerix Contacts server and SDK.
package schema

import "time"

// User is an account in the credential store.
// Contacts reference it only by ID.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	UserName     string    `json:"user_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is returned by the account endpoints after a successful login or registration.
type Session struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Remember  bool      `json:"remember"`
}

// Identity describes who the server believes the caller is.
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"`
}
