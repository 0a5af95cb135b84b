package prefstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages preference persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
    namespace TEXT NOT NULL,
    key       TEXT NOT NULL,
    value     TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
);
CREATE TABLE IF NOT EXISTS preference_set_members (
    namespace TEXT NOT NULL,
    key       TEXT NOT NULL,
    member    TEXT NOT NULL,
    PRIMARY KEY (namespace, key, member)
);
`

// Open initializes or connects to the preference database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure preference directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Namespace scopes preference access to one independent partition.
func (s *Store) Namespace(name string) Namespace {
	return Namespace{store: s, name: name}
}

// Namespace provides typed access to one preference partition.
type Namespace struct {
	store *Store
	name  string
}

// GetString returns the stored value for key, or fallback when absent.
func (n Namespace) GetString(ctx context.Context, key, fallback string) (string, error) {
	ctx = ensureContext(ctx)
	var value string
	err := n.store.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE namespace = ? AND key = ?`,
		n.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s/%s: %w", n.name, key, err)
	}
	return value, nil
}

// PutString stores value under key.
func (n Namespace) PutString(ctx context.Context, key, value string) error {
	ctx = ensureContext(ctx)
	return n.store.execWithRetry(ctx,
		`INSERT INTO preferences (namespace, key, value) VALUES (?, ?, ?)
         ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value`,
		n.name, key, value,
	)
}

// GetBool returns the stored boolean for key, or fallback when absent.
func (n Namespace) GetBool(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, err := n.GetString(ctx, key, "")
	if err != nil {
		return false, err
	}
	switch raw {
	case "":
		return fallback, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("get %s/%s: malformed boolean %q", n.name, key, raw)
	}
}

// PutBool stores a boolean under key.
func (n Namespace) PutBool(ctx context.Context, key string, value bool) error {
	if value {
		return n.PutString(ctx, key, "true")
	}
	return n.PutString(ctx, key, "false")
}

// GetStringSet returns all members stored under key. Order is unspecified.
func (n Namespace) GetStringSet(ctx context.Context, key string) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := n.store.db.QueryContext(ctx,
		`SELECT member FROM preference_set_members WHERE namespace = ? AND key = ?`,
		n.name, key,
	)
	if err != nil {
		return nil, fmt.Errorf("get set %s/%s: %w", n.name, key, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("scan set member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate set %s/%s: %w", n.name, key, err)
	}
	return members, nil
}

// PutStringSet atomically replaces the full member set stored under key.
func (n Namespace) PutStringSet(ctx context.Context, key string, members []string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := n.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin set replace: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM preference_set_members WHERE namespace = ? AND key = ?`,
			n.name, key,
		); err != nil {
			return fmt.Errorf("clear set %s/%s: %w", n.name, key, err)
		}
		for _, member := range members {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO preference_set_members (namespace, key, member) VALUES (?, ?, ?)`,
				n.name, key, member,
			); err != nil {
				return fmt.Errorf("insert set member: %w", err)
			}
		}
		return tx.Commit()
	})
}

// Reset removes every value and set stored in this namespace.
func (n Namespace) Reset(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := n.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin reset: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx, `DELETE FROM preferences WHERE namespace = ?`, n.name); err != nil {
			return fmt.Errorf("reset values %s: %w", n.name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM preference_set_members WHERE namespace = ?`, n.name); err != nil {
			return fmt.Errorf("reset sets %s: %w", n.name, err)
		}
		return tx.Commit()
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
