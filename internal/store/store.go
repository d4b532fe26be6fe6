package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store persists user profiles, favorites, and the activity log in SQLite.
// It replaces the document-store collections the dashboard previously used.
type Store struct {
	conn *sql.DB
	path string
}

// Preferences are the dashboard defaults kept per user.
type Preferences struct {
	DefaultTimeRange string `json:"defaultTimeRange"`
	DefaultSymbols   string `json:"defaultSymbols"`
}

// Profile is a user's stored profile plus favorites.
type Profile struct {
	UID         string      `json:"uid"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	Favorites   []string    `json:"favorites"`
	Preferences Preferences `json:"preferences"`
	LastLogin   time.Time   `json:"lastLogin"`
}

func defaultPreferences() Preferences {
	return Preferences{DefaultTimeRange: "1M", DefaultSymbols: "AAPL,MSFT,GOOGL"}
}

// Open creates the database file (and parent directory) if needed and
// returns a ready store.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers alongside the writer.
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &Store{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping reports backend reachability for the health surface.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uid                TEXT PRIMARY KEY,
			email              TEXT NOT NULL DEFAULT '',
			display_name       TEXT NOT NULL DEFAULT '',
			default_time_range TEXT NOT NULL DEFAULT '1M',
			default_symbols    TEXT NOT NULL DEFAULT 'AAPL,MSFT,GOOGL',
			created_at         TIMESTAMP NOT NULL,
			last_login         TIMESTAMP NOT NULL,
			last_updated       TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			uid      TEXT NOT NULL,
			symbol   TEXT NOT NULL,
			added_at TIMESTAMP NOT NULL,
			PRIMARY KEY (uid, symbol)
		)`,
		`CREATE TABLE IF NOT EXISTS user_activity (
			id         TEXT PRIMARY KEY,
			uid        TEXT NOT NULL,
			action     TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activity_uid ON user_activity(uid, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// GetOrCreateProfile returns the stored profile for a user, creating a
// default one on first access and touching last_login either way.
func (s *Store) GetOrCreateProfile(ctx context.Context, uid, email, displayName string) (Profile, error) {
	now := time.Now().UTC()
	p := Profile{UID: uid, Email: email, Preferences: defaultPreferences(), LastLogin: now}

	row := s.conn.QueryRowContext(ctx,
		`SELECT email, display_name, default_time_range, default_symbols, last_login FROM users WHERE uid = ?`, uid)
	var storedEmail, storedName string
	err := row.Scan(&storedEmail, &storedName, &p.Preferences.DefaultTimeRange, &p.Preferences.DefaultSymbols, &p.LastLogin)
	switch {
	case err == sql.ErrNoRows:
		if displayName == "" {
			displayName, _, _ = strings.Cut(email, "@")
		}
		p.DisplayName = displayName
		_, err = s.conn.ExecContext(ctx,
			`INSERT INTO users (uid, email, display_name, created_at, last_login, last_updated) VALUES (?, ?, ?, ?, ?, ?)`,
			uid, email, displayName, now, now, now)
		if err != nil {
			return Profile{}, fmt.Errorf("create profile: %w", err)
		}
	case err != nil:
		return Profile{}, fmt.Errorf("load profile: %w", err)
	default:
		if storedEmail != "" {
			p.Email = storedEmail
		}
		p.DisplayName = storedName
		if _, err := s.conn.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE uid = ?`, now, uid); err != nil {
			return Profile{}, fmt.Errorf("touch last_login: %w", err)
		}
	}

	favs, err := s.Favorites(ctx, uid)
	if err != nil {
		return Profile{}, err
	}
	p.Favorites = favs
	return p, nil
}

// ProfileUpdate carries the fields a client is allowed to change. Nil fields
// are left untouched.
type ProfileUpdate struct {
	DisplayName *string      `json:"displayName"`
	Preferences *Preferences `json:"preferences"`
	Favorites   *[]string    `json:"favorites"`
}

// UpdateProfile applies a partial profile update.
func (s *Store) UpdateProfile(ctx context.Context, uid string, upd ProfileUpdate) error {
	now := time.Now().UTC()
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	defer tx.Rollback()

	if upd.DisplayName != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET display_name = ?, last_updated = ? WHERE uid = ?`, *upd.DisplayName, now, uid); err != nil {
			return fmt.Errorf("update display name: %w", err)
		}
	}
	if upd.Preferences != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET default_time_range = ?, default_symbols = ?, last_updated = ? WHERE uid = ?`,
			upd.Preferences.DefaultTimeRange, upd.Preferences.DefaultSymbols, now, uid); err != nil {
			return fmt.Errorf("update preferences: %w", err)
		}
	}
	if upd.Favorites != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE uid = ?`, uid); err != nil {
			return fmt.Errorf("replace favorites: %w", err)
		}
		for _, sym := range *upd.Favorites {
			sym = strings.ToUpper(strings.TrimSpace(sym))
			if sym == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO favorites (uid, symbol, added_at) VALUES (?, ?, ?)`, uid, sym, now); err != nil {
				return fmt.Errorf("replace favorites: %w", err)
			}
		}
	}
	return tx.Commit()
}

// AddFavorite adds a symbol to a user's favorites. Adding a duplicate is a
// no-op.
func (s *Store) AddFavorite(ctx context.Context, uid, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (uid, symbol, added_at) VALUES (?, ?, ?)`,
		uid, symbol, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite removes a symbol from a user's favorites.
func (s *Store) RemoveFavorite(ctx context.Context, uid, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	_, err := s.conn.ExecContext(ctx, `DELETE FROM favorites WHERE uid = ? AND symbol = ?`, uid, symbol)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// Favorites lists a user's favorite symbols in alphabetical order.
func (s *Store) Favorites(ctx context.Context, uid string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT symbol FROM favorites WHERE uid = ? ORDER BY symbol`, uid)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("list favorites: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// LogActivity records a user action for analytics. Callers treat this as
// fire-and-forget; a write failure must never fail the request it annotates.
func (s *Store) LogActivity(ctx context.Context, uid, action string, metadata map[string]any) error {
	meta := "{}"
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("log activity: %w", err)
		}
		meta = string(b)
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO user_activity (id, uid, action, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), uid, action, meta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}
