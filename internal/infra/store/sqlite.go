// Package store persists preference blobs and link session history in a
// SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/packlink/internal/protocol"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the database.
	DefaultDBPath = "data/packlink.db"
)

// ErrNotOpen is returned when the database is used before Open.
var ErrNotOpen = errors.New("database not open")

// DB represents the SQLite store.
type DB struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Stats summarizes what the store holds.
type Stats struct {
	SchemaVersion string
	PrefsCount    int
	SessionCount  int
	LastUpdated   time.Time
}

// NewDB creates a new database instance.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{
		path: path,
	}
}

// Open opens the database and initializes the schema.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open store database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d.db = db

	if err := d.initSchema(); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", d.path).Msg("Store database opened")
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

func (d *DB) initSchema() error {
	currentVersion := d.getSchemaVersion()

	if currentVersion == "" {
		if err := d.createSchema(); err != nil {
			return err
		}
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	if currentVersion != CurrentSchemaVersion {
		log.Info().
			Str("current", currentVersion).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating store schema")
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	return nil
}

func (d *DB) createSchema() error {
	schema := `
	-- One framed blob per preference kind
	CREATE TABLE IF NOT EXISTS prefs (
		tag INTEGER PRIMARY KEY,
		frame BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Link sessions, one row per completed sync
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT
	);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info().Msg("Store schema created")
	return nil
}

func (d *DB) getSchemaVersion() string {
	var version string
	err := d.db.QueryRow("SELECT value FROM store_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

func (d *DB) setMeta(key, value string) error {
	now := time.Now().Format(time.RFC3339)
	_, err := d.db.Exec(`
		INSERT INTO store_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = ?
	`, key, value, now, value, now)
	return err
}

func (d *DB) getMeta(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM store_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SavePrefs stores the frame for a preference kind, replacing any older one.
func (d *DB) SavePrefs(tag protocol.Tag, frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}

	now := time.Now().Format(time.RFC3339)
	_, err := d.db.Exec(`
		INSERT INTO prefs (tag, frame, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(tag) DO UPDATE SET frame = ?, updated_at = ?
	`, int(tag), frame, now, frame, now)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", tag, err)
	}
	if err := d.setMeta("last_updated", now); err != nil {
		log.Warn().Err(err).Msg("Failed to update store metadata")
	}
	return nil
}

// LoadPrefs returns the stored frame for a preference kind, or nil when
// none was saved.
func (d *DB) LoadPrefs(tag protocol.Tag) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	var frame []byte
	err := d.db.QueryRow("SELECT frame FROM prefs WHERE tag = ?", int(tag)).Scan(&frame)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", tag, err)
	}
	return frame, nil
}

// Session is one synced period with a peer.
type Session struct {
	ID        string
	Role      string
	StartedAt time.Time
	EndedAt   time.Time // zero while open
}

// StartSession records the start of a session.
func (d *DB) StartSession(id, role string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}

	_, err := d.db.Exec("INSERT INTO sessions (id, role, started_at) VALUES (?, ?, ?)",
		id, role, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// EndSession closes an open session.
func (d *DB) EndSession(id string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}

	_, err := d.db.Exec("UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL",
		at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (d *DB) RecentSessions(limit int) ([]Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := d.db.Query(`
		SELECT id, role, started_at, COALESCE(ended_at, '')
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var started, ended string
		if err := rows.Scan(&s.ID, &s.Role, &started, &ended); err != nil {
			return nil, err
		}
		s.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if ended != "" {
			s.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetStats returns store statistics.
func (d *DB) GetStats() (*Stats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	stats := &Stats{}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM prefs").Scan(&stats.PrefsCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.SessionCount); err != nil {
		return nil, err
	}

	stats.SchemaVersion, _ = d.getMeta("schema_version")
	if lastUpdated, _ := d.getMeta("last_updated"); lastUpdated != "" {
		stats.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	}
	return stats, nil
}
