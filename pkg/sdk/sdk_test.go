package sdk_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/api"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/engine"
	"github.com/celerix-dev/celerix-contacts/internal/seed"
	"github.com/celerix-dev/celerix-contacts/internal/server"
	"github.com/celerix-dev/celerix-contacts/internal/session"
	"github.com/celerix-dev/celerix-contacts/internal/vault"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
	"github.com/celerix-dev/celerix-contacts/pkg/sdk"
)

func init() {
	vault.Cost = bcrypt.MinCost
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := engine.NewMemStore(nil, nil)
	sessions, err := session.NewManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	accounts, err := account.NewService(store, sessions, nil)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	h := &api.Handler{
		Contacts: contact.NewService(store, 10),
		Accounts: accounts,
		Sandbox:  seed.New(store, accounts, rand.NewPCG(3, 4), nil),
	}
	ts := httptest.NewServer(server.NewRouter(h, server.Options{}))
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, ts *httptest.Server) *sdk.Client {
	t.Helper()
	c, err := sdk.New(ts.URL, sdk.Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func sampleContact(first string) schema.Contact {
	return schema.Contact{
		FirstName:   first,
		LastName:    "Tester",
		PhoneNumber: "5551234567",
		Email:       first + "@example.com",
	}
}

func TestClientContactLifecycle(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)
	ctx := context.Background()

	created, err := c.CreateContact(ctx, sampleContact("Ann"))
	if err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	got, err := c.GetContact(ctx, created.ID)
	if err != nil || got.FirstName != "Ann" {
		t.Fatalf("GetContact = %+v (err %v)", got, err)
	}

	got.LastName = "Updated"
	updated, err := c.UpdateContact(ctx, got)
	if err != nil || updated.LastName != "Updated" {
		t.Fatalf("UpdateContact = %+v (err %v)", updated, err)
	}

	page, err := c.SearchContacts(ctx, "updat", 1)
	if err != nil || page.TotalCount != 1 {
		t.Fatalf("SearchContacts = %+v (err %v)", page, err)
	}

	if err := c.DeleteContact(ctx, created.ID); err != nil {
		t.Fatalf("DeleteContact failed: %v", err)
	}
	if _, err := c.GetContact(ctx, created.ID); !errors.Is(err, sdk.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestClientValidationError(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)

	bad := sampleContact("Ann")
	bad.Email = "nope"
	_, err := c.CreateContact(context.Background(), bad)

	var apiErr *sdk.APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, sdk.ErrInvalid) {
		t.Fatalf("Expected invalid APIError, got %v", err)
	}
	if apiErr.Fields["email"] == "" {
		t.Errorf("Expected email field error, got %+v", apiErr)
	}
}

func TestClientAccountsScopeContacts(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := newClient(t, ts)
	if _, err := alice.Register(ctx, "alice@example.com", "Secret1!"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if alice.Token() == "" {
		t.Fatal("Expected token after Register")
	}
	mine, err := alice.CreateContact(ctx, sampleContact("Private"))
	if err != nil {
		t.Fatalf("CreateContact failed: %v", err)
	}

	anon := newClient(t, ts)
	if _, err := anon.GetContact(ctx, mine.ID); !errors.Is(err, sdk.ErrNotFound) {
		t.Errorf("Anonymous caller must not see Alice's contact, got %v", err)
	}

	// A fresh client logging in as Alice sees it again.
	again := newClient(t, ts)
	if _, err := again.Login(ctx, "alice@example.com", "wrong", false); !errors.Is(err, sdk.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if _, err := again.Login(ctx, "alice@example.com", "Secret1!", true); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	page, err := again.ListContacts(ctx, schema.SortByLastName, 1)
	if err != nil || page.TotalCount != 1 {
		t.Fatalf("ListContacts = %+v (err %v)", page, err)
	}

	me, err := again.WhoAmI(ctx)
	if err != nil || !me.Authenticated {
		t.Fatalf("WhoAmI = %+v (err %v)", me, err)
	}
	if err := again.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if me, _ := again.WhoAmI(ctx); me.Authenticated {
		t.Error("Expected anonymous after Logout")
	}
}

func TestClientResetSandbox(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t, ts)
	ctx := context.Background()

	if err := c.ResetSandbox(ctx); err != nil {
		t.Fatalf("ResetSandbox failed: %v", err)
	}
	page, err := c.ListContacts(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListContacts failed: %v", err)
	}
	if page.TotalCount != seed.SandboxSize || len(page.Items) != 10 {
		t.Errorf("Expected %d sandbox contacts, got %d", seed.SandboxSize, page.TotalCount)
	}
}

func TestClientRetriesGet(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Drop the connection to force a transport error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				http.Error(w, "hijacking not supported", http.StatusInternalServerError)
				return
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"authenticated":false}`))
	}))
	defer ts.Close()

	c := newClient(t, ts)
	if _, err := c.WhoAmI(context.Background()); err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("Expected 2 attempts, got %d", n)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := sdk.New("ftp://example.com", sdk.Options{}); err == nil {
		t.Error("Expected error for non-http scheme")
	}
}
