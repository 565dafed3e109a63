// Package contacttest provides a conformance suite for contact.Repository
// implementations.
package contacttest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// Fixture is a fresh, empty repository under test.
type Fixture struct {
	Repo contact.Repository
	// AddUser makes userID a valid contact owner in the backing store.
	AddUser func(t *testing.T, userID string)
}

// Run exercises repo scoping, paging, search and mutation rules. open must return
// an empty store on every call.
func Run(t *testing.T, open func(t *testing.T) Fixture) {
	tests := []struct {
		name string
		fn   func(t *testing.T, f Fixture)
	}{
		{"CreateAssignsOwnerAndID", testCreateAssignsOwnerAndID},
		{"ListIsOwnerScoped", testListIsOwnerScoped},
		{"ListSortsAndPages", testListSortsAndPages},
		{"SearchEmptyTerm", testSearchEmptyTerm},
		{"SearchMatchesAnyField", testSearchMatchesAnyField},
		{"SearchIsLiteral", testSearchIsLiteral},
		{"SearchFoldsUnicodeCase", testSearchFoldsUnicodeCase},
		{"GetHidesOtherOwners", testGetHidesOtherOwners},
		{"UpdateIsScoped", testUpdateIsScoped},
		{"DeleteIsScoped", testDeleteIsScoped},
		{"DeleteSandboxKeepsOwned", testDeleteSandboxKeepsOwned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

// NewContact returns a valid contact with the given names.
func NewContact(first, last string) schema.Contact {
	return schema.Contact{
		FirstName:   first,
		LastName:    last,
		PhoneNumber: "5551234567",
		Email:       fmt.Sprintf("%s.%s@example.com", first, last),
	}
}

func mustCreate(t *testing.T, repo contact.Repository, owner contact.Owner, c schema.Contact) schema.Contact {
	t.Helper()
	created, err := repo.Create(context.Background(), owner, c)
	if err != nil {
		t.Fatalf("create %s %s as %s: %v", c.FirstName, c.LastName, owner, err)
	}
	return created
}

func names(items []schema.Contact) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.FirstName+" "+c.LastName)
	}
	return out
}

func testCreateAssignsOwnerAndID(t *testing.T, f Fixture) {
	f.AddUser(t, "user-a")
	ctx := context.Background()

	anon := mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Ann", "Lee"))
	if anon.ID <= 0 {
		t.Errorf("Expected positive id, got %d", anon.ID)
	}
	if anon.UserID != nil {
		t.Errorf("Expected sandbox contact, got owner %q", *anon.UserID)
	}

	owned := mustCreate(t, f.Repo, contact.OwnedBy("user-a"), NewContact("Bob", "Ray"))
	if owned.ID == anon.ID {
		t.Errorf("Expected distinct ids, both were %d", owned.ID)
	}
	if owned.UserID == nil || *owned.UserID != "user-a" {
		t.Errorf("Expected owner user-a, got %v", owned.UserID)
	}

	got, err := f.Repo.Get(ctx, contact.OwnedBy("user-a"), owned.ID)
	if err != nil {
		t.Fatalf("get owned: %v", err)
	}
	if diff := cmp.Diff(owned, got); diff != "" {
		t.Errorf("stored contact mismatch (-want +got):\n%s", diff)
	}
}

func testListIsOwnerScoped(t *testing.T, f Fixture) {
	f.AddUser(t, "user-a")
	f.AddUser(t, "user-b")
	ctx := context.Background()

	mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Ann", "Lee"))
	mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Sam", "Hill"))
	mustCreate(t, f.Repo, contact.OwnedBy("user-a"), NewContact("Alice", "Smith"))
	mustCreate(t, f.Repo, contact.OwnedBy("user-b"), NewContact("Bruno", "Costa"))

	req := schema.NewPageRequest(1, 10)
	scopes := map[contact.Owner][]string{
		contact.Anonymous():       {"Ann Lee", "Sam Hill"},
		contact.OwnedBy("user-a"): {"Alice Smith"},
		contact.OwnedBy("user-b"): {"Bruno Costa"},
	}
	for owner, want := range scopes {
		page, err := f.Repo.List(ctx, owner, schema.SortByFirstName, req)
		if err != nil {
			t.Fatalf("list as %s: %v", owner, err)
		}
		if diff := cmp.Diff(want, names(page.Items)); diff != "" {
			t.Errorf("list as %s (-want +got):\n%s", owner, diff)
		}
		if page.TotalCount != len(want) {
			t.Errorf("list as %s: total = %d, want %d", owner, page.TotalCount, len(want))
		}
		for _, c := range page.Items {
			if !owner.Matches(c) {
				t.Errorf("list as %s returned out-of-scope contact %d", owner, c.ID)
			}
		}
	}
}

func testListSortsAndPages(t *testing.T, f Fixture) {
	ctx := context.Background()
	for _, n := range [][2]string{
		{"Carol", "Adams"}, {"Alice", "Zane"}, {"Bob", "Miller"},
		{"Dave", "Brown"}, {"Eve", "Clark"},
	} {
		mustCreate(t, f.Repo, contact.Anonymous(), NewContact(n[0], n[1]))
	}

	page, err := f.Repo.List(ctx, contact.Anonymous(), schema.SortByLastName, schema.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("list by last name: %v", err)
	}
	want := []string{"Carol Adams", "Dave Brown", "Eve Clark", "Bob Miller", "Alice Zane"}
	if diff := cmp.Diff(want, names(page.Items)); diff != "" {
		t.Errorf("sort by last name (-want +got):\n%s", diff)
	}

	second, err := f.Repo.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(2, 2))
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if diff := cmp.Diff([]string{"Carol Adams", "Dave Brown"}, names(second.Items)); diff != "" {
		t.Errorf("page 2 (-want +got):\n%s", diff)
	}
	if second.TotalCount != 5 || second.PageNumber != 2 || second.PageSize != 2 {
		t.Errorf("Unexpected page metadata: %+v", second)
	}
	if second.PageCount() != 3 {
		t.Errorf("Expected 3 pages, got %d", second.PageCount())
	}

	beyond, err := f.Repo.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(9, 2))
	if err != nil {
		t.Fatalf("list beyond end: %v", err)
	}
	if len(beyond.Items) != 0 || beyond.TotalCount != 5 {
		t.Errorf("Expected empty page with total 5, got %d items total %d", len(beyond.Items), beyond.TotalCount)
	}

	last, err := f.Repo.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(math.MaxInt, 2))
	if err != nil {
		t.Fatalf("list max page: %v", err)
	}
	if len(last.Items) != 0 || last.TotalCount != 5 {
		t.Errorf("Expected empty max page with total 5, got %d items total %d", len(last.Items), last.TotalCount)
	}
}

func testSearchEmptyTerm(t *testing.T, f Fixture) {
	mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Ann", "Lee"))

	page, err := f.Repo.Search(context.Background(), contact.Anonymous(), "", schema.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("search empty: %v", err)
	}
	if len(page.Items) != 0 || page.TotalCount != 0 {
		t.Errorf("Expected empty page, got %d items total %d", len(page.Items), page.TotalCount)
	}
}

func testSearchMatchesAnyField(t *testing.T, f Fixture) {
	f.AddUser(t, "user-a")
	ctx := context.Background()

	mustCreate(t, f.Repo, contact.Anonymous(), schema.Contact{
		FirstName: "Zoe", LastName: "Quinn", PhoneNumber: "5550001111", Email: "zq@mail.test",
	})
	mustCreate(t, f.Repo, contact.Anonymous(), schema.Contact{
		FirstName: "Adam", LastName: "Ball", PhoneNumber: "15559998888", Email: "QUINNFAN@mail.test",
	})
	mustCreate(t, f.Repo, contact.Anonymous(), schema.Contact{
		FirstName: "Mia", LastName: "Ford", PhoneNumber: "5554443333", Email: "mia@other.test",
	})
	mustCreate(t, f.Repo, contact.OwnedBy("user-a"), schema.Contact{
		FirstName: "Quincy", LastName: "Owned", PhoneNumber: "5550001111", Email: "q@mail.test",
	})

	tests := []struct {
		term string
		want []string
	}{
		{"quinn", []string{"Adam Ball", "Zoe Quinn"}},
		{"MAIL.TEST", []string{"Adam Ball", "Zoe Quinn"}},
		{"9998", []string{"Adam Ball"}},
		{"for", []string{"Mia Ford"}},
		{"nobody", []string{}},
	}
	for _, tt := range tests {
		page, err := f.Repo.Search(ctx, contact.Anonymous(), tt.term, schema.NewPageRequest(1, 10))
		if err != nil {
			t.Fatalf("search %q: %v", tt.term, err)
		}
		if diff := cmp.Diff(tt.want, names(page.Items)); diff != "" {
			t.Errorf("search %q (-want +got):\n%s", tt.term, diff)
		}
		if page.TotalCount != len(tt.want) {
			t.Errorf("search %q: total = %d, want %d", tt.term, page.TotalCount, len(tt.want))
		}
	}

	owned, err := f.Repo.Search(ctx, contact.OwnedBy("user-a"), "quin", schema.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("search owned: %v", err)
	}
	if diff := cmp.Diff([]string{"Quincy Owned"}, names(owned.Items)); diff != "" {
		t.Errorf("owned search (-want +got):\n%s", diff)
	}
}

func testSearchFoldsUnicodeCase(t *testing.T, f Fixture) {
	mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Ann", "Lee"))
	mustCreate(t, f.Repo, contact.Anonymous(), schema.Contact{
		FirstName: "Émile", LastName: "Ångström", PhoneNumber: "5551234567", Email: "emile@example.com",
	})

	for _, term := range []string{"émile", "ÉMILE", "ÅNGSTRÖM", "ngstr"} {
		page, err := f.Repo.Search(context.Background(), contact.Anonymous(), term, schema.NewPageRequest(1, 10))
		if err != nil {
			t.Fatalf("search %q: %v", term, err)
		}
		if diff := cmp.Diff([]string{"Émile Ångström"}, names(page.Items)); diff != "" {
			t.Errorf("search %q (-want +got):\n%s", term, diff)
		}
	}
}

func testSearchIsLiteral(t *testing.T, f Fixture) {
	mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Ann", "Lee"))
	mustCreate(t, f.Repo, contact.Anonymous(), schema.Contact{
		FirstName: "Per%cent", LastName: "Sign", PhoneNumber: "5551234567", Email: "p@example.com",
	})

	for _, term := range []string{"%", "_"} {
		page, err := f.Repo.Search(context.Background(), contact.Anonymous(), term, schema.NewPageRequest(1, 10))
		if err != nil {
			t.Fatalf("search %q: %v", term, err)
		}
		for _, c := range page.Items {
			if !contact.MatchesTerm(c, term) {
				t.Errorf("search %q returned non-matching %s %s", term, c.FirstName, c.LastName)
			}
		}
	}
}

func testGetHidesOtherOwners(t *testing.T, f Fixture) {
	f.AddUser(t, "user-a")
	f.AddUser(t, "user-b")
	ctx := context.Background()

	owned := mustCreate(t, f.Repo, contact.OwnedBy("user-a"), NewContact("Alice", "Smith"))
	sandbox := mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Ann", "Lee"))

	_, missingErr := f.Repo.Get(ctx, contact.OwnedBy("user-b"), owned.ID+sandbox.ID+1000)
	_, foreignErr := f.Repo.Get(ctx, contact.OwnedBy("user-b"), owned.ID)
	if !errors.Is(missingErr, contact.ErrNotFound) || !errors.Is(foreignErr, contact.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for both, got %v and %v", missingErr, foreignErr)
	}
	if missingErr.Error() != foreignErr.Error() {
		t.Errorf("missing and foreign lookups differ: %q vs %q", missingErr, foreignErr)
	}

	if _, err := f.Repo.Get(ctx, contact.Anonymous(), owned.ID); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Anonymous caller should not see owned contact, got %v", err)
	}
	if _, err := f.Repo.Get(ctx, contact.OwnedBy("user-a"), sandbox.ID); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Owner should not see sandbox contact, got %v", err)
	}
}

func testUpdateIsScoped(t *testing.T, f Fixture) {
	f.AddUser(t, "user-a")
	f.AddUser(t, "user-b")
	ctx := context.Background()
	owner := contact.OwnedBy("user-a")

	original := mustCreate(t, f.Repo, owner, NewContact("Alice", "Smith"))

	edit := original
	edit.FirstName = "Mallory"
	edit.UserID = nil
	if _, err := f.Repo.Update(ctx, contact.OwnedBy("user-b"), edit); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating another owner's contact, got %v", err)
	}
	if _, err := f.Repo.Update(ctx, contact.Anonymous(), edit); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Expected ErrNotFound updating owned contact anonymously, got %v", err)
	}

	unchanged, err := f.Repo.Get(ctx, owner, original.ID)
	if err != nil {
		t.Fatalf("get after rejected update: %v", err)
	}
	if diff := cmp.Diff(original, unchanged); diff != "" {
		t.Errorf("rejected update changed the record (-want +got):\n%s", diff)
	}

	edit.FirstName = "Alicia"
	edit.PhoneNumber = "15550001111"
	updated, err := f.Repo.Update(ctx, owner, edit)
	if err != nil {
		t.Fatalf("update own contact: %v", err)
	}
	if updated.FirstName != "Alicia" || updated.PhoneNumber != "15550001111" {
		t.Errorf("update not applied: %+v", updated)
	}
	if updated.UserID == nil || *updated.UserID != "user-a" {
		t.Errorf("update must not change ownership, got %v", updated.UserID)
	}
}

func testDeleteIsScoped(t *testing.T, f Fixture) {
	f.AddUser(t, "user-a")
	f.AddUser(t, "user-b")
	ctx := context.Background()

	target := mustCreate(t, f.Repo, contact.OwnedBy("user-a"), NewContact("Alice", "Smith"))

	if err := f.Repo.Delete(ctx, contact.OwnedBy("user-b"), target.ID); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting another owner's contact, got %v", err)
	}
	if err := f.Repo.Delete(ctx, contact.Anonymous(), target.ID); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting owned contact anonymously, got %v", err)
	}

	page, err := f.Repo.List(ctx, contact.OwnedBy("user-a"), schema.SortByFirstName, schema.NewPageRequest(1, 10))
	if err != nil {
		t.Fatalf("list after rejected delete: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != target.ID {
		t.Fatalf("Contact should survive rejected delete, got %v", names(page.Items))
	}

	if err := f.Repo.Delete(ctx, contact.OwnedBy("user-a"), target.ID); err != nil {
		t.Fatalf("delete own contact: %v", err)
	}
	if _, err := f.Repo.Get(ctx, contact.OwnedBy("user-a"), target.ID); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := f.Repo.Delete(ctx, contact.OwnedBy("user-a"), target.ID); !errors.Is(err, contact.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func testDeleteSandboxKeepsOwned(t *testing.T, f Fixture) {
	f.AddUser(t, "user-a")
	ctx := context.Background()

	mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Ann", "Lee"))
	mustCreate(t, f.Repo, contact.Anonymous(), NewContact("Sam", "Hill"))
	mustCreate(t, f.Repo, contact.OwnedBy("user-a"), NewContact("Alice", "Smith"))

	n, err := f.Repo.DeleteSandbox(ctx)
	if err != nil {
		t.Fatalf("delete sandbox: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 sandbox contacts removed, got %d", n)
	}

	anon, _ := f.Repo.List(ctx, contact.Anonymous(), schema.SortByFirstName, schema.NewPageRequest(1, 10))
	if anon.TotalCount != 0 {
		t.Errorf("Expected empty sandbox, got %d", anon.TotalCount)
	}
	owned, _ := f.Repo.List(ctx, contact.OwnedBy("user-a"), schema.SortByFirstName, schema.NewPageRequest(1, 10))
	if owned.TotalCount != 1 {
		t.Errorf("Owned contacts should be untouched, got %d", owned.TotalCount)
	}
}
