package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/bcrypt"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/engine"
	"github.com/celerix-dev/celerix-contacts/internal/session"
	"github.com/celerix-dev/celerix-contacts/internal/vault"
)

func init() {
	vault.Cost = bcrypt.MinCost
}

type fixture struct {
	svc      *account.Service
	store    *engine.MemStore
	sessions *session.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := engine.NewMemStore(nil, nil)
	sessions, err := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	svc, err := account.NewService(store, sessions, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return fixture{svc: svc, store: store, sessions: sessions}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, " Alice@Example.com ", "Secret1!")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.ID == "" || u.Email != "Alice@Example.com" || u.UserName != u.Email {
		t.Errorf("Unexpected user: %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "Secret1!" {
		t.Error("Password must be stored hashed")
	}

	sess, err := f.svc.Login(ctx, "alice@example.com", "Secret1!", false)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if sess.UserID != u.ID || sess.Token == "" {
		t.Errorf("Unexpected session: %+v", sess)
	}

	owner := f.svc.Identify(ctx, sess.Token)
	if owner.IsAnonymous() || owner.UserID() != u.ID {
		t.Errorf("Expected owner %s, got %s", u.ID, owner)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), "not-an-email", "abc")
	var regErr *account.RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("Expected RegistrationError, got %v", err)
	}
	want := []string{
		"Email 'not-an-email' is invalid.",
		"Passwords must be at least 6 characters.",
		"Passwords must have at least one non alphanumeric character.",
		"Passwords must have at least one digit ('0'-'9').",
		"Passwords must have at least one uppercase ('A'-'Z').",
	}
	if diff := cmp.Diff(want, regErr.Problems); diff != "" {
		t.Errorf("Problems mismatch (-want +got):\n%s", diff)
	}

	if n, _ := f.store.CountUsers(context.Background()); n != 0 {
		t.Errorf("Rejected registration must not create a user, found %d", n)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, "bob@example.com", "Secret1!"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	_, err := f.svc.Register(ctx, "BOB@example.com", "Secret2!")

	var regErr *account.RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("Expected RegistrationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"Username 'BOB@example.com' is already taken."}, regErr.Problems); diff != "" {
		t.Errorf("Problems mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, account.ErrDuplicateEmail) {
		t.Error("Duplicate registration should unwrap to ErrDuplicateEmail")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, "carol@example.com", "Secret1!"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, wrongPw := f.svc.Login(ctx, "carol@example.com", "Wrong1!", false)
	_, unknown := f.svc.Login(ctx, "nobody@example.com", "Secret1!", false)

	if !errors.Is(wrongPw, account.ErrInvalidLogin) || !errors.Is(unknown, account.ErrInvalidLogin) {
		t.Fatalf("Expected ErrInvalidLogin for both, got %v and %v", wrongPw, unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Errorf("Login failures differ: %q vs %q", wrongPw, unknown)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, "dave@example.com", "Secret1!"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sess, err := f.svc.Login(ctx, "dave@example.com", "Secret1!", true)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !sess.Remember {
		t.Error("Expected remembered session")
	}

	if err := f.svc.Logout(ctx, sess.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if owner := f.svc.Identify(ctx, sess.Token); !owner.IsAnonymous() {
		t.Errorf("Revoked token should identify as anonymous, got %s", owner)
	}
	if err := f.svc.Logout(ctx, ""); err != nil {
		t.Errorf("Logout without a token should succeed, got %v", err)
	}
}

func TestIdentifyFallsBackToAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if owner := f.svc.Identify(ctx, ""); !owner.IsAnonymous() {
		t.Errorf("Empty token: expected anonymous, got %s", owner)
	}
	if owner := f.svc.Identify(ctx, "garbage"); !owner.IsAnonymous() {
		t.Errorf("Garbage token: expected anonymous, got %s", owner)
	}

	// A valid signature for a user the store does not know.
	tok, err := f.sessions.Issue("ghost", false)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if owner := f.svc.Identify(ctx, tok.Value); !owner.IsAnonymous() {
		t.Errorf("Unknown user: expected anonymous, got %s", owner)
	}
}

func TestHasUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	has, err := f.svc.HasUsers(ctx)
	if err != nil || has {
		t.Fatalf("Expected no users, got %v (err %v)", has, err)
	}
	if _, err := f.svc.Register(ctx, "erin@example.com", "Secret1!"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if has, _ := f.svc.HasUsers(ctx); !has {
		t.Error("Expected HasUsers after registration")
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	tests := []struct {
		password string
		problems int
	}{
		{"Password123!", 0},
		{"Aa1!aa", 0},
		{"password", 3},
		{"PASSWORD1!", 1},
		{"", 5},
	}
	for _, tt := range tests {
		got := account.CheckPasswordPolicy(tt.password)
		if len(got) != tt.problems {
			t.Errorf("CheckPasswordPolicy(%q) = %v, want %d problems", tt.password, got, tt.problems)
		}
	}
}
