// Package store persists authenticated users for the auth service.
package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/smuassist/learnmate/auth"
)

// Store is the sqlite-backed authenticated-user store. One row per telegram
// user; re-authentication overwrites in place.
type Store struct {
	db *sql.DB
}

// New opens the database at the given DSN. Pragmas follow the usual sqlite
// serving setup: WAL journal, busy timeout, foreign keys off.
func New(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}
	db, err := sql.Open("sqlite", dsn+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", dsn)
	}
	return &Store{db: db}, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS authenticated_user (
			telegram_id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			authenticated_at TEXT NOT NULL
		)
	`)
	return errors.Wrap(err, "migrate authenticated_user")
}

// Upsert stores or replaces the user's authentication record.
func (s *Store) Upsert(ctx context.Context, telegramID string, user auth.UserInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO authenticated_user (telegram_id, email, name, authenticated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			authenticated_at = excluded.authenticated_at
	`, telegramID, user.Email, user.Name, user.AuthenticatedAt)
	return errors.Wrapf(err, "upsert user %s", telegramID)
}

// Get returns the user's record, or nil when the user never authenticated.
func (s *Store) Get(ctx context.Context, telegramID string) (*auth.UserInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT email, name, authenticated_at
		FROM authenticated_user
		WHERE telegram_id = ?
	`, telegramID)

	var user auth.UserInfo
	if err := row.Scan(&user.Email, &user.Name, &user.AuthenticatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get user %s", telegramID)
	}
	return &user, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
