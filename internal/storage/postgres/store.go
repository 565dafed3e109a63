// Package postgres stores contacts and user accounts in PostgreSQL through gorm.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

// Store is a contact.Repository and account.UserStore backed by PostgreSQL.
type Store struct {
	db *gorm.DB
}

var (
	_ contact.Repository = (*Store)(nil)
	_ account.UserStore  = (*Store)(nil)
)

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&userModel{}, &contactModel{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// ownedBy restricts a contact query to the caller's scope.
func ownedBy(owner contact.Owner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if owner.IsAnonymous() {
			return db.Where("user_id IS NULL")
		}
		return db.Where("user_id = ?", owner.UserID())
	}
}

func (s *Store) contacts(ctx context.Context, owner contact.Owner) *gorm.DB {
	return s.db.WithContext(ctx).Model(&contactModel{}).Scopes(ownedBy(owner))
}

func (s *Store) List(ctx context.Context, owner contact.Owner, sort schema.SortField, req schema.PageRequest) (schema.Page[schema.Contact], error) {
	column := "first_name"
	if sort == schema.SortByLastName {
		column = "last_name"
	}
	return s.page(s.contacts(ctx, owner), column, req)
}

func (s *Store) Search(ctx context.Context, owner contact.Owner, term string, req schema.PageRequest) (schema.Page[schema.Contact], error) {
	if term == "" {
		return schema.EmptyPage[schema.Contact](req), nil
	}
	q := s.contacts(ctx, owner).Where(
		`(strpos(lower(first_name), @t) > 0 OR strpos(lower(last_name), @t) > 0
		  OR strpos(lower(email), @t) > 0 OR strpos(lower(phone_number), @t) > 0)`,
		sql.Named("t", strings.ToLower(term)),
	)
	return s.page(q, "first_name", req)
}

func (s *Store) page(q *gorm.DB, orderBy string, req schema.PageRequest) (schema.Page[schema.Contact], error) {
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return schema.Page[schema.Contact]{}, fmt.Errorf("count contacts: %w", err)
	}
	if total == 0 {
		return schema.EmptyPage[schema.Contact](req), nil
	}

	var rows []contactModel
	err := q.Order(orderBy + ", id").Limit(req.Size).Offset(req.Offset()).Find(&rows).Error
	if err != nil {
		return schema.Page[schema.Contact]{}, fmt.Errorf("query contacts: %w", err)
	}
	items := make([]schema.Contact, 0, len(rows))
	for _, m := range rows {
		items = append(items, toContact(m))
	}
	return schema.NewPage(items, req, int(total)), nil
}

func (s *Store) Get(ctx context.Context, owner contact.Owner, id int64) (schema.Contact, error) {
	var m contactModel
	err := s.contacts(ctx, owner).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schema.Contact{}, contact.ErrNotFound
	}
	if err != nil {
		return schema.Contact{}, fmt.Errorf("get contact %d: %w", id, err)
	}
	return toContact(m), nil
}

func (s *Store) Create(ctx context.Context, owner contact.Owner, c schema.Contact) (schema.Contact, error) {
	m := contactModel{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		UserID:      owner.Ref(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return schema.Contact{}, fmt.Errorf("insert contact for %s: %w", owner, err)
	}
	return toContact(m), nil
}

func (s *Store) Update(ctx context.Context, owner contact.Owner, c schema.Contact) (schema.Contact, error) {
	res := s.contacts(ctx, owner).Where("id = ?", c.ID).Updates(map[string]any{
		"first_name":   c.FirstName,
		"last_name":    c.LastName,
		"phone_number": c.PhoneNumber,
		"email":        c.Email,
	})
	if res.Error != nil {
		return schema.Contact{}, fmt.Errorf("update contact %d: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return schema.Contact{}, contact.ErrNotFound
	}
	c.UserID = owner.Ref()
	return c, nil
}

func (s *Store) Delete(ctx context.Context, owner contact.Owner, id int64) error {
	res := s.db.WithContext(ctx).Scopes(ownedBy(owner)).Where("id = ?", id).Delete(&contactModel{})
	if res.Error != nil {
		return fmt.Errorf("delete contact %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSandbox(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).Where("user_id IS NULL").Delete(&contactModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete sandbox contacts: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) CreateUser(ctx context.Context, u schema.User) error {
	m := userModel{
		ID:              u.ID,
		Email:           u.Email,
		NormalizedEmail: account.NormalizeEmail(u.Email),
		UserName:        u.UserName,
		PasswordHash:    u.PasswordHash,
		CreatedAt:       u.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return account.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (schema.User, error) {
	return s.user(ctx, "normalized_email = ?", account.NormalizeEmail(email))
}

func (s *Store) UserByID(ctx context.Context, id string) (schema.User, error) {
	return s.user(ctx, "id = ?", id)
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&userModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int(n), nil
}

func (s *Store) user(ctx context.Context, query string, arg any) (schema.User, error) {
	var m userModel
	err := s.db.WithContext(ctx).Where(query, arg).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schema.User{}, account.ErrUserNotFound
	}
	if err != nil {
		return schema.User{}, fmt.Errorf("query user: %w", err)
	}
	return schema.User{
		ID:           m.ID,
		Email:        m.Email,
		UserName:     m.UserName,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.UTC(),
	}, nil
}

func toContact(m contactModel) schema.Contact {
	return schema.Contact{
		ID:          m.ID,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		PhoneNumber: m.PhoneNumber,
		Email:       m.Email,
		UserID:      m.UserID,
	}
}
