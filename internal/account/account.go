// Package account registers users, checks their credentials and turns session
// tokens into the ownership scope contact operations run under.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/logging"
	"github.com/celerix-dev/celerix-contacts/internal/session"
	"github.com/celerix-dev/celerix-contacts/internal/vault"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// UserStore persists user accounts. Emails are unique after NormalizeEmail.
type UserStore interface {
	CreateUser(ctx context.Context, u schema.User) error
	UserByEmail(ctx context.Context, email string) (schema.User, error)
	UserByID(ctx context.Context, id string) (schema.User, error)
	CountUsers(ctx context.Context) (int, error)
}

// Sessions issues and checks session tokens.
type Sessions interface {
	Issue(userID string, remember bool) (session.Token, error)
	Resolve(raw string) (string, error)
	Revoke(raw string) error
}

// NormalizeEmail is the form emails are compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var emailCheck = validator.New()

// Service is the credential store adapter used by the HTTP layer.
type Service struct {
	users    UserStore
	sessions Sessions
	logger   *zap.Logger
	now      func() time.Time

	// dummyHash is compared against when the email is unknown so both login
	// failures cost one bcrypt comparison.
	dummyHash string
}

func NewService(users UserStore, sessions Sessions, logger *zap.Logger) (*Service, error) {
	dummy, err := vault.HashPassword(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare login check: %w", err)
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		logger:    logging.Component(logger, "account"),
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates a user whose user name is its email.
func (s *Service) Register(ctx context.Context, email, password string) (schema.User, error) {
	email = strings.TrimSpace(email)

	var problems []string
	if email == "" || emailCheck.Var(email, "required,email") != nil {
		problems = append(problems, fmt.Sprintf("Email '%s' is invalid.", email))
	}
	problems = append(problems, CheckPasswordPolicy(password)...)
	if len(problems) > 0 {
		return schema.User{}, &RegistrationError{Problems: problems}
	}

	hash, err := vault.HashPassword(password)
	if err != nil {
		return schema.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := schema.User{
		ID:           uuid.NewString(),
		Email:        email,
		UserName:     email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return schema.User{}, &RegistrationError{
				Problems: []string{fmt.Sprintf("Username '%s' is already taken.", email)},
				Err:      err,
			}
		}
		return schema.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Login checks the credentials and issues a session.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (schema.Session, error) {
	u, err := s.users.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		vault.CheckPassword(s.dummyHash, password)
		return schema.Session{}, ErrInvalidLogin
	case err != nil:
		return schema.Session{}, fmt.Errorf("look up user: %w", err)
	}
	if !vault.CheckPassword(u.PasswordHash, password) {
		return schema.Session{}, ErrInvalidLogin
	}
	return s.StartSession(u.ID, remember)
}

// StartSession issues a session for a known user id.
func (s *Service) StartSession(userID string, remember bool) (schema.Session, error) {
	tok, err := s.sessions.Issue(userID, remember)
	if err != nil {
		return schema.Session{}, fmt.Errorf("issue session: %w", err)
	}
	return schema.Session{
		UserID:    tok.UserID,
		Token:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
		Remember:  tok.Remember,
	}, nil
}

// Logout revokes token. Unknown tokens are ignored.
func (s *Service) Logout(_ context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Revoke(token)
}

// Identify returns the scope of the caller holding token. Anything that does not
// resolve to an existing user is anonymous.
func (s *Service) Identify(ctx context.Context, token string) contact.Owner {
	if token == "" {
		return contact.Anonymous()
	}
	userID, err := s.sessions.Resolve(token)
	if err != nil {
		return contact.Anonymous()
	}
	if _, err := s.users.UserByID(ctx, userID); err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.logger.Warn("identify caller", zap.String("user_id", userID), zap.Error(err))
		}
		return contact.Anonymous()
	}
	return contact.OwnedBy(userID)
}

// HasUsers reports whether any account exists.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}
