package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// Service applies the caller's ownership scope to every contact operation.
type Service struct {
	repo     Repository
	pageSize int
}

// NewService returns a Service paging results by pageSize (schema.DefaultPageSize
// when pageSize < 1).
func NewService(repo Repository, pageSize int) *Service {
	if pageSize < 1 {
		pageSize = schema.DefaultPageSize
	}
	return &Service{repo: repo, pageSize: pageSize}
}

func (s *Service) PageSize() int {
	return s.pageSize
}

// List returns page number page of the caller's contacts sorted by sortBy.
func (s *Service) List(ctx context.Context, owner Owner, sortBy string, page int) (schema.Page[schema.Contact], error) {
	req := schema.NewPageRequest(page, s.pageSize)
	p, err := s.repo.List(ctx, owner, schema.ParseSortField(sortBy), req)
	if err != nil {
		return schema.Page[schema.Contact]{}, storeError("list contacts", err)
	}
	return p, nil
}

// Search returns page number page of the caller's contacts matching term.
func (s *Service) Search(ctx context.Context, owner Owner, term string, page int) (schema.Page[schema.Contact], error) {
	req := schema.NewPageRequest(page, s.pageSize)
	p, err := s.repo.Search(ctx, owner, term, req)
	if err != nil {
		return schema.Page[schema.Contact]{}, storeError("search contacts", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, owner Owner, id int64) (schema.Contact, error) {
	if id <= 0 {
		return schema.Contact{}, ErrNotFound
	}
	c, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return schema.Contact{}, storeError("get contact", err)
	}
	return c, nil
}

// Create validates c and stores it under the caller's scope.
func (s *Service) Create(ctx context.Context, owner Owner, c schema.Contact) (schema.Contact, error) {
	c = Normalize(c)
	if err := Validate(c); err != nil {
		return schema.Contact{}, err
	}
	c.ID = 0
	created, err := s.repo.Create(ctx, owner, c)
	if err != nil {
		return schema.Contact{}, storeError("create contact", err)
	}
	return created, nil
}

// Update validates c and overwrites the caller's contact with id c.ID.
func (s *Service) Update(ctx context.Context, owner Owner, c schema.Contact) (schema.Contact, error) {
	if c.ID <= 0 {
		return schema.Contact{}, ErrNotFound
	}
	c = Normalize(c)
	if err := Validate(c); err != nil {
		return schema.Contact{}, err
	}
	if _, err := s.repo.Get(ctx, owner, c.ID); err != nil {
		return schema.Contact{}, storeError("update contact", err)
	}
	updated, err := s.repo.Update(ctx, owner, c)
	if err != nil {
		return schema.Contact{}, storeError("update contact", err)
	}
	return updated, nil
}

// Delete removes the caller's contact with the given id.
func (s *Service) Delete(ctx context.Context, owner Owner, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if _, err := s.repo.Get(ctx, owner, id); err != nil {
		return storeError("delete contact", err)
	}
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		return storeError("delete contact", err)
	}
	return nil
}

// storeError passes not-found and cancellation through and marks everything else
// as a store failure.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
}
