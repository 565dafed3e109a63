// Package session issues and verifies the signed tokens that identify a logged-in
// caller between requests.
package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "celerix-contacts"

var (
	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrRevoked is returned for tokens that were signed out.
	ErrRevoked = errors.New("session revoked")
)

// Token is an issued session.
type Token struct {
	Value     string
	UserID    string
	ExpiresAt time.Time
	Remember  bool
}

type claims struct {
	Remember bool `json:"rmb,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs session tokens with HS256 and tracks revoked token ids until
// they expire.
type Manager struct {
	secret      []byte
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

// NewManager returns a Manager. Tokens live for ttl, or rememberTTL when the
// caller asked to be remembered.
func NewManager(secret []byte, ttl, rememberTTL time.Duration) (*Manager, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("session secret must be at least 16 bytes")
	}
	if ttl <= 0 || rememberTTL <= 0 {
		return nil, fmt.Errorf("session lifetimes must be positive")
	}
	return &Manager{
		secret:      secret,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
		revoked:     make(map[string]time.Time),
	}, nil
}

// RandomSecret returns 32 random bytes for deployments without a configured secret.
func RandomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Issue signs a new token for userID.
func (m *Manager) Issue(userID string, remember bool) (Token, error) {
	if userID == "" {
		return Token{}, fmt.Errorf("user id is required")
	}
	now := m.now()
	ttl := m.ttl
	if remember {
		ttl = m.rememberTTL
	}
	expires := now.Add(ttl).Truncate(time.Second)

	c := claims{
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session: %w", err)
	}
	return Token{Value: signed, UserID: userID, ExpiresAt: expires, Remember: remember}, nil
}

// Resolve returns the user id carried by a valid, unrevoked token.
func (m *Manager) Resolve(raw string) (string, error) {
	c, err := m.parse(raw)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	_, revoked := m.revoked[c.ID]
	m.mu.Unlock()
	if revoked {
		return "", ErrRevoked
	}
	return c.Subject, nil
}

// Revoke signs a token out. Revoking an invalid or expired token is a no-op.
func (m *Manager) Revoke(raw string) error {
	c, err := m.parse(raw)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil
		}
		return err
	}

	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	m.revoked[c.ID] = c.ExpiresAt.Time
	return nil
}

func (m *Manager) parse(raw string) (*claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" || c.ID == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
