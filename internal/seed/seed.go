// Package seed fills the sandbox pool and creates the demo account on an empty
// installation.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/logging"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// SandboxSize is the number of contacts ResetSandbox creates.
const SandboxSize = 10

// Demo account credentials.
const (
	DemoEmail    = "testuser@example.com"
	DemoPassword = "Password123!"
)

// Accounts is the part of the account service seeding needs.
type Accounts interface {
	HasUsers(ctx context.Context) (bool, error)
	Register(ctx context.Context, email, password string) (schema.User, error)
}

// Seeder writes sample data through a contact repository.
type Seeder struct {
	repo     contact.Repository
	accounts Accounts
	logger   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Seeder drawing phone numbers from src, or from a time-seeded
// source when src is nil.
func New(repo contact.Repository, accounts Accounts, src rand.Source, logger *zap.Logger) *Seeder {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>1|1)
	}
	return &Seeder{
		repo:     repo,
		accounts: accounts,
		logger:   logging.Component(logger, "seed"),
		rng:      rand.New(src),
	}
}

// ResetSandbox replaces every sandbox contact with SandboxSize fresh ones.
// Readers may observe the pool part way through the reset.
func (s *Seeder) ResetSandbox(ctx context.Context) error {
	removed, err := s.repo.DeleteSandbox(ctx)
	if err != nil {
		return fmt.Errorf("clear sandbox: %w", err)
	}
	for i := 1; i <= SandboxSize; i++ {
		c := schema.Contact{
			FirstName:   fmt.Sprintf("Sandbox%d", i),
			LastName:    fmt.Sprintf("User%d", i),
			PhoneNumber: s.phoneNumber(),
			Email:       fmt.Sprintf("sandbox.user%d@example.com", i),
		}
		if _, err := s.repo.Create(ctx, contact.Anonymous(), c); err != nil {
			return fmt.Errorf("create sandbox contact %d: %w", i, err)
		}
	}
	s.logger.Info("sandbox reset", zap.Int("removed", removed), zap.Int("created", SandboxSize))
	return nil
}

// EnsureSandbox resets the sandbox only when it holds no contacts.
func (s *Seeder) EnsureSandbox(ctx context.Context) error {
	page, err := s.repo.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(1, 1))
	if err != nil {
		return fmt.Errorf("inspect sandbox: %w", err)
	}
	if page.TotalCount > 0 {
		return nil
	}
	return s.ResetSandbox(ctx)
}

// SeedDemoUserIfEmpty registers the demo account with two contacts when no user
// exists. It reports whether it seeded anything.
//
// Two instances starting against the same empty database can both pass the
// emptiness check; the loser gets a duplicate email and treats the store as seeded.
// Registration and the demo contacts are separate writes: if a contact write fails
// the demo user stays without contacts and later calls do not retry.
func (s *Seeder) SeedDemoUserIfEmpty(ctx context.Context) (bool, error) {
	has, err := s.accounts.HasUsers(ctx)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}

	u, err := s.accounts.Register(ctx, DemoEmail, DemoPassword)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			s.logger.Warn("demo user created concurrently, skipping", zap.String("email", DemoEmail))
			return false, nil
		}
		return false, fmt.Errorf("register demo user: %w", err)
	}

	owner := contact.OwnedBy(u.ID)
	for _, c := range []schema.Contact{
		{FirstName: "John", LastName: "Doe", PhoneNumber: "1234567890", Email: "john.doe@example.com"},
		{FirstName: "Jane", LastName: "Doe", PhoneNumber: "0987654321", Email: "jane.doe@example.com"},
	} {
		if _, err := s.repo.Create(ctx, owner, c); err != nil {
			return false, fmt.Errorf("create demo contact: %w", err)
		}
	}
	s.logger.Info("demo user seeded", zap.String("user_id", u.ID), zap.String("email", DemoEmail))
	return true, nil
}

// phoneNumber returns ten digits in three groups drawn from [100,999],
// [100,999] and [1000,9999].
func (s *Seeder) phoneNumber() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%d%d%d",
		100+s.rng.IntN(900),
		100+s.rng.IntN(900),
		1000+s.rng.IntN(9000),
	)
}
