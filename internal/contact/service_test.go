package contact_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/contact/contacttest"
	"github.com/celerix-dev/celerix-contacts/internal/engine"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

func newService(t *testing.T, pageSize int, users ...string) (*contact.Service, *engine.MemStore) {
	t.Helper()
	store := engine.NewMemStore(nil, nil)
	for _, id := range users {
		if err := store.CreateUser(context.Background(), schema.User{ID: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}
	return contact.NewService(store, pageSize), store
}

func TestServiceCreateValidates(t *testing.T) {
	svc, store := newService(t, 10)
	ctx := context.Background()

	_, err := svc.Create(ctx, contact.Anonymous(), schema.Contact{
		FirstName:   "  ",
		LastName:    "Lee",
		PhoneNumber: "12345",
		Email:       "not-an-email",
	})
	var verr *contact.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	want := map[string]string{
		"first_name":   "The First Name field is required.",
		"phone_number": "Please enter a valid 10-digit telephone number.",
		"email":        "The Email field is not a valid e-mail address.",
	}
	if diff := cmp.Diff(want, verr.Fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}

	page, _ := store.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(1, 10))
	if page.TotalCount != 0 {
		t.Errorf("Invalid contact must not be stored, found %d", page.TotalCount)
	}
}

func TestServiceCreateNormalizes(t *testing.T) {
	svc, _ := newService(t, 10)

	c, err := svc.Create(context.Background(), contact.Anonymous(), schema.Contact{
		ID:          99,
		FirstName:   " Ann ",
		LastName:    "Lee",
		PhoneNumber: "15551234567",
		Email:       "ann@example.com ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.ID == 99 || c.FirstName != "Ann" || c.Email != "ann@example.com" {
		t.Errorf("Unexpected contact: %+v", c)
	}
	if !c.IsSandbox() {
		t.Error("Anonymous create should land in the sandbox")
	}
}

func TestServiceAnonymousCreateIsInvisibleToUsers(t *testing.T) {
	svc, _ := newService(t, 10, "user-a")
	ctx := context.Background()

	ann, err := svc.Create(ctx, contact.Anonymous(), contacttest.NewContact("Ann", "Lee"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	anon, _ := svc.List(ctx, contact.Anonymous(), "", 1)
	if len(anon.Items) != 1 || anon.Items[0].ID != ann.ID {
		t.Errorf("Expected Ann in the anonymous list, got %+v", anon.Items)
	}
	owned, _ := svc.List(ctx, contact.OwnedBy("user-a"), "", 1)
	if len(owned.Items) != 0 {
		t.Errorf("Expected empty user list, got %+v", owned.Items)
	}
}

func TestServiceCrossUserMutationFails(t *testing.T) {
	svc, _ := newService(t, 10, "user-a", "user-b")
	ctx := context.Background()
	a, b := contact.OwnedBy("user-a"), contact.OwnedBy("user-b")

	c, err := svc.Create(ctx, a, contacttest.NewContact("Alice", "Smith"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(ctx, b, c.ID); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting another user's contact, got %v", err)
	}
	edit := c
	edit.FirstName = "Mallory"
	if _, err := svc.Update(ctx, b, edit); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating another user's contact, got %v", err)
	}

	got, err := svc.Get(ctx, a, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("Contact changed (-want +got):\n%s", diff)
	}
}

func TestServiceUpdate(t *testing.T) {
	svc, _ := newService(t, 10, "user-a")
	ctx := context.Background()
	a := contact.OwnedBy("user-a")

	c, _ := svc.Create(ctx, a, contacttest.NewContact("Alice", "Smith"))

	bad := c
	bad.Email = ""
	var verr *contact.ValidationError
	if _, err := svc.Update(ctx, a, bad); !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}

	c.LastName = "Jones"
	updated, err := svc.Update(ctx, a, c)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.LastName != "Jones" || updated.UserID == nil || *updated.UserID != "user-a" {
		t.Errorf("Unexpected update result: %+v", updated)
	}
}

func TestServiceRejectsNonPositiveIDs(t *testing.T) {
	svc, _ := newService(t, 10)
	ctx := context.Background()

	if _, err := svc.Get(ctx, contact.Anonymous(), 0); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Get(0): expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, contact.Anonymous(), -1); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Delete(-1): expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, contact.Anonymous(), contacttest.NewContact("Ann", "Lee")); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Update without id: expected ErrNotFound, got %v", err)
	}
}

func TestServicePaging(t *testing.T) {
	svc, _ := newService(t, 2)
	ctx := context.Background()
	for _, n := range []string{"Dan", "Cat", "Bea", "Abe", "Eve"} {
		if _, err := svc.Create(ctx, contact.Anonymous(), contacttest.NewContact(n, "Doe")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	page, err := svc.List(ctx, contact.Anonymous(), "firstname", 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].FirstName != "Eve" || !page.HasPrevious() || page.HasNext() {
		t.Errorf("Unexpected last page: %+v", page)
	}

	// Page numbers below 1 read the first page.
	first, _ := svc.List(ctx, contact.Anonymous(), "", 0)
	if first.PageNumber != 1 || first.Items[0].FirstName != "Abe" {
		t.Errorf("Unexpected first page: %+v", first)
	}

	found, err := svc.Search(ctx, contact.Anonymous(), "E", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// Every contact matches "e" through the shared last name.
	if found.TotalCount != 5 || len(found.Items) != 2 {
		t.Errorf("Unexpected search page: %+v", found)
	}
	if empty, _ := svc.Search(ctx, contact.Anonymous(), "", 1); empty.TotalCount != 0 {
		t.Errorf("Empty term should return an empty page, got %d", empty.TotalCount)
	}
}

type failingRepo struct {
	contact.Repository
	err error
}

func (f failingRepo) List(context.Context, contact.Owner, schema.SortField, schema.PageRequest) (schema.Page[schema.Contact], error) {
	return schema.Page[schema.Contact]{}, f.err
}

func (f failingRepo) Get(context.Context, contact.Owner, int64) (schema.Contact, error) {
	return schema.Contact{}, f.err
}

func TestServiceWrapsStoreErrors(t *testing.T) {
	cause := errors.New("database is locked")
	svc := contact.NewService(failingRepo{err: cause}, 0)
	if svc.PageSize() != schema.DefaultPageSize {
		t.Errorf("Expected default page size, got %d", svc.PageSize())
	}

	_, err := svc.List(context.Background(), contact.Anonymous(), "", 1)
	if !errors.Is(err, contact.ErrStore) || !errors.Is(err, cause) {
		t.Errorf("Expected ErrStore wrapping cause, got %v", err)
	}

	canceled := contact.NewService(failingRepo{err: context.Canceled}, 10)
	if _, err := canceled.Get(context.Background(), contact.Anonymous(), 1); !errors.Is(err, context.Canceled) || errors.Is(err, contact.ErrStore) {
		t.Errorf("Expected bare context.Canceled, got %v", err)
	}
}
