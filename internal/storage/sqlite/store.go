// Package sqlite stores contacts and user accounts in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/celerix-dev/celerix-contacts/internal/account"
	"github.com/celerix-dev/celerix-contacts/internal/contact"
	"github.com/celerix-dev/celerix-contacts/internal/storage/sqlite/migrations"
	"github.com/celerix-dev/celerix-contacts/pkg/schema"
)

const contactColumns = `id, first_name, last_name, phone_number, email, user_id`

// SQLite's lower() folds ASCII only; search goes through contact.ContainsFold instead.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("contains_fold", 2, containsFold)
}

func containsFold(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if contact.ContainsFold(textArg(args[0]), textArg(args[1])) {
		return int64(1), nil
	}
	return int64(0), nil
}

func textArg(v driver.Value) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// Store is a contact.Repository and account.UserStore backed by SQLite.
type Store struct {
	db *sql.DB
}

var (
	_ contact.Repository = (*Store)(nil)
	_ account.UserStore  = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := "file:" + clean + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ownerClause renders the ownership predicate and its arguments.
func ownerClause(owner contact.Owner) (string, []any) {
	if owner.IsAnonymous() {
		return "user_id IS NULL", nil
	}
	return "user_id = ?", []any{owner.UserID()}
}

func sortColumn(sort schema.SortField) string {
	if sort == schema.SortByLastName {
		return "last_name"
	}
	return "first_name"
}

func (s *Store) List(ctx context.Context, owner contact.Owner, sort schema.SortField, req schema.PageRequest) (schema.Page[schema.Contact], error) {
	where, args := ownerClause(owner)
	return s.page(ctx, where, args, sortColumn(sort), req)
}

func (s *Store) Search(ctx context.Context, owner contact.Owner, term string, req schema.PageRequest) (schema.Page[schema.Contact], error) {
	if term == "" {
		return schema.EmptyPage[schema.Contact](req), nil
	}
	where, args := ownerClause(owner)
	where += ` AND (contains_fold(first_name, ?)
	  OR contains_fold(last_name, ?)
	  OR contains_fold(email, ?)
	  OR contains_fold(phone_number, ?))`
	args = append(args, term, term, term, term)
	return s.page(ctx, where, args, "first_name", req)
}

func (s *Store) page(ctx context.Context, where string, args []any, orderBy string, req schema.PageRequest) (schema.Page[schema.Contact], error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact_models WHERE `+where, args...).Scan(&total); err != nil {
		return schema.Page[schema.Contact]{}, fmt.Errorf("count contacts: %w", err)
	}
	if total == 0 {
		return schema.EmptyPage[schema.Contact](req), nil
	}

	query := `SELECT ` + contactColumns + ` FROM contact_models WHERE ` + where +
		` ORDER BY ` + orderBy + `, id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, req.Size, req.Offset())...)
	if err != nil {
		return schema.Page[schema.Contact]{}, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var items []schema.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return schema.Page[schema.Contact]{}, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return schema.Page[schema.Contact]{}, fmt.Errorf("iterate contacts: %w", err)
	}
	return schema.NewPage(items, req, total), nil
}

func (s *Store) Get(ctx context.Context, owner contact.Owner, id int64) (schema.Contact, error) {
	where, args := ownerClause(owner)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contact_models WHERE id = ? AND `+where,
		append([]any{id}, args...)...,
	)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Contact{}, contact.ErrNotFound
	}
	return c, err
}

func (s *Store) Create(ctx context.Context, owner contact.Owner, c schema.Contact) (schema.Contact, error) {
	c.UserID = owner.Ref()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_models (first_name, last_name, phone_number, email, user_id)
		 VALUES (?, ?, ?, ?, ?)`,
		c.FirstName, c.LastName, c.PhoneNumber, c.Email, nullString(c.UserID),
	)
	if err != nil {
		return schema.Contact{}, fmt.Errorf("insert contact for %s: %w", owner, err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return schema.Contact{}, fmt.Errorf("read contact id: %w", err)
	}
	return c, nil
}

func (s *Store) Update(ctx context.Context, owner contact.Owner, c schema.Contact) (schema.Contact, error) {
	where, args := ownerClause(owner)
	res, err := s.db.ExecContext(ctx,
		`UPDATE contact_models
		 SET first_name = ?, last_name = ?, phone_number = ?, email = ?
		 WHERE id = ? AND `+where,
		append([]any{c.FirstName, c.LastName, c.PhoneNumber, c.Email, c.ID}, args...)...,
	)
	if err != nil {
		return schema.Contact{}, fmt.Errorf("update contact %d: %w", c.ID, err)
	}
	if err := requireRow(res); err != nil {
		return schema.Contact{}, err
	}
	c.UserID = owner.Ref()
	return c, nil
}

func (s *Store) Delete(ctx context.Context, owner contact.Owner, id int64) error {
	where, args := ownerClause(owner)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contact_models WHERE id = ? AND `+where,
		append([]any{id}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("delete contact %d: %w", id, err)
	}
	return requireRow(res)
}

func (s *Store) DeleteSandbox(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contact_models WHERE user_id IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("delete sandbox contacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted contacts: %w", err)
	}
	return int(n), nil
}

func (s *Store) CreateUser(ctx context.Context, u schema.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, normalized_email, user_name, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, account.NormalizeEmail(u.Email), u.UserName, u.PasswordHash, u.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isDuplicateEmail(err) {
			return account.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (schema.User, error) {
	return s.user(ctx, `normalized_email = ?`, account.NormalizeEmail(email))
}

func (s *Store) UserByID(ctx context.Context, id string) (schema.User, error) {
	return s.user(ctx, `id = ?`, id)
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Store) user(ctx context.Context, where string, arg any) (schema.User, error) {
	var (
		u         schema.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, user_name, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Email, &u.UserName, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.User{}, account.ErrUserNotFound
	}
	if err != nil {
		return schema.User{}, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(createdAt).UTC()
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (schema.Contact, error) {
	var (
		c      schema.Contact
		userID sql.NullString
	)
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.PhoneNumber, &c.Email, &userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schema.Contact{}, err
		}
		return schema.Contact{}, fmt.Errorf("scan contact: %w", err)
	}
	if userID.Valid {
		id := userID.String
		c.UserID = &id
	}
	return c, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func isDuplicateEmail(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "users.normalized_email")
}
