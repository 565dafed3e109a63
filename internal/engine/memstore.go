package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// MemStore is a thread-safe contact repository and user store held in memory.
type MemStore struct {
	mu       sync.RWMutex
	contacts map[int64]schema.Contact
	users    map[string]schema.User // keyed by user id
	emails   map[string]string      // normalized email -> user id
	nextID   int64
	version  uint64

	persister *Persistence
	wg        sync.WaitGroup
}

// NewMemStore initializes a store from a snapshot (from Persistence.Load) and an
// optional persister. Every write is saved in the background when p is not nil.
func NewMemStore(initial *Snapshot, p *Persistence) *MemStore {
	m := &MemStore{
		contacts:  make(map[int64]schema.Contact),
		users:     make(map[string]schema.User),
		emails:    make(map[string]string),
		nextID:    1,
		persister: p,
	}
	if initial == nil {
		return m
	}

	m.version = initial.Version
	for _, c := range initial.Contacts {
		m.contacts[c.ID] = cloneContact(c)
		if c.ID >= m.nextID {
			m.nextID = c.ID + 1
		}
	}
	if initial.NextID > m.nextID {
		m.nextID = initial.NextID
	}
	for _, r := range initial.Users {
		u := schema.User{
			ID:           r.ID,
			Email:        r.Email,
			UserName:     r.UserName,
			PasswordHash: r.PasswordHash,
		}
		if t, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
			u.CreatedAt = t
		}
		m.users[u.ID] = u
		m.emails[account.NormalizeEmail(u.Email)] = u.ID
	}
	return m
}

// Wait waits for all background persistence tasks to complete.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Close flushes pending snapshots.
func (m *MemStore) Close() error {
	m.Wait()
	return nil
}

// --- contact.Repository ---

func (m *MemStore) List(ctx context.Context, owner contact.Owner, sort schema.SortField, req schema.PageRequest) (schema.Page[schema.Contact], error) {
	if err := ctx.Err(); err != nil {
		return schema.Page[schema.Contact]{}, err
	}
	matched := m.selectContacts(owner, func(schema.Contact) bool { return true })
	sortContacts(matched, sort)
	return pageOf(matched, req), nil
}

func (m *MemStore) Search(ctx context.Context, owner contact.Owner, term string, req schema.PageRequest) (schema.Page[schema.Contact], error) {
	if err := ctx.Err(); err != nil {
		return schema.Page[schema.Contact]{}, err
	}
	if term == "" {
		return schema.EmptyPage[schema.Contact](req), nil
	}
	matched := m.selectContacts(owner, func(c schema.Contact) bool {
		return contact.MatchesTerm(c, term)
	})
	sortContacts(matched, schema.SortByFirstName)
	return pageOf(matched, req), nil
}

func (m *MemStore) Get(ctx context.Context, owner contact.Owner, id int64) (schema.Contact, error) {
	if err := ctx.Err(); err != nil {
		return schema.Contact{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contacts[id]
	if !ok || !owner.Matches(c) {
		return schema.Contact{}, contact.ErrNotFound
	}
	return cloneContact(c), nil
}

func (m *MemStore) Create(ctx context.Context, owner contact.Owner, c schema.Contact) (schema.Contact, error) {
	if err := ctx.Err(); err != nil {
		return schema.Contact{}, err
	}
	m.mu.Lock()
	if !owner.IsAnonymous() {
		if _, ok := m.users[owner.UserID()]; !ok {
			m.mu.Unlock()
			return schema.Contact{}, fmt.Errorf("create contact for %s: %w", owner, ErrUnknownOwner)
		}
	}
	c.ID = m.nextID
	c.UserID = owner.Ref()
	m.nextID++
	m.contacts[c.ID] = c
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snap)
	return cloneContact(c), nil
}

func (m *MemStore) Update(ctx context.Context, owner contact.Owner, c schema.Contact) (schema.Contact, error) {
	if err := ctx.Err(); err != nil {
		return schema.Contact{}, err
	}
	m.mu.Lock()
	existing, ok := m.contacts[c.ID]
	if !ok || !owner.Matches(existing) {
		m.mu.Unlock()
		return schema.Contact{}, contact.ErrNotFound
	}
	existing.FirstName = c.FirstName
	existing.LastName = c.LastName
	existing.PhoneNumber = c.PhoneNumber
	existing.Email = c.Email
	m.contacts[c.ID] = existing
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snap)
	return cloneContact(existing), nil
}

func (m *MemStore) Delete(ctx context.Context, owner contact.Owner, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	existing, ok := m.contacts[id]
	if !ok || !owner.Matches(existing) {
		m.mu.Unlock()
		return contact.ErrNotFound
	}
	delete(m.contacts, id)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snap)
	return nil
}

func (m *MemStore) DeleteSandbox(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	removed := 0
	for id, c := range m.contacts {
		if c.IsSandbox() {
			delete(m.contacts, id)
			removed++
		}
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snap)
	return removed, nil
}

// --- account.UserStore ---

func (m *MemStore) CreateUser(ctx context.Context, u schema.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := account.NormalizeEmail(u.Email)

	m.mu.Lock()
	if _, taken := m.emails[key]; taken {
		m.mu.Unlock()
		return account.ErrDuplicateEmail
	}
	if _, taken := m.users[u.ID]; taken {
		m.mu.Unlock()
		return fmt.Errorf("user id %s already exists", u.ID)
	}
	m.users[u.ID] = u
	m.emails[key] = u.ID
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(snap)
	return nil
}

func (m *MemStore) UserByEmail(ctx context.Context, email string) (schema.User, error) {
	if err := ctx.Err(); err != nil {
		return schema.User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[account.NormalizeEmail(email)]
	if !ok {
		return schema.User{}, account.ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *MemStore) UserByID(ctx context.Context, id string) (schema.User, error) {
	if err := ctx.Err(); err != nil {
		return schema.User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return schema.User{}, account.ErrUserNotFound
	}
	return u, nil
}

func (m *MemStore) CountUsers(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// --- helpers ---

func (m *MemStore) selectContacts(owner contact.Owner, keep func(schema.Contact) bool) []schema.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schema.Contact
	for _, c := range m.contacts {
		if owner.Matches(c) && keep(c) {
			out = append(out, cloneContact(c))
		}
	}
	return out
}

// snapshotLocked copies the store state for background persistence.
// It MUST be called while holding m.mu.Lock.
func (m *MemStore) snapshotLocked() *Snapshot {
	if m.persister == nil {
		return nil
	}
	m.version++
	snap := &Snapshot{
		Version:  m.version,
		NextID:   m.nextID,
		Contacts: make([]schema.Contact, 0, len(m.contacts)),
		Users:    make([]UserRecord, 0, len(m.users)),
	}
	for _, c := range m.contacts {
		snap.Contacts = append(snap.Contacts, cloneContact(c))
	}
	slices.SortFunc(snap.Contacts, func(a, b schema.Contact) int { return cmp.Compare(a.ID, b.ID) })
	for _, u := range m.users {
		snap.Users = append(snap.Users, UserRecord{
			ID:           u.ID,
			Email:        u.Email,
			UserName:     u.UserName,
			PasswordHash: u.PasswordHash,
			CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	slices.SortFunc(snap.Users, func(a, b UserRecord) int { return strings.Compare(a.ID, b.ID) })
	return snap
}

func (m *MemStore) persist(snap *Snapshot) {
	if m.persister == nil || snap == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.persister.Save(snap)
	}()
}

func sortContacts(items []schema.Contact, sort schema.SortField) {
	key := func(c schema.Contact) string { return c.FirstName }
	if sort == schema.SortByLastName {
		key = func(c schema.Contact) string { return c.LastName }
	}
	slices.SortFunc(items, func(a, b schema.Contact) int {
		if n := strings.Compare(key(a), key(b)); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func pageOf(items []schema.Contact, req schema.PageRequest) schema.Page[schema.Contact] {
	lo, hi := req.Bounds(len(items))
	return schema.NewPage(items[lo:hi], req, len(items))
}

func cloneContact(c schema.Contact) schema.Contact {
	if c.UserID != nil {
		id := *c.UserID
		c.UserID = &id
	}
	return c
}
