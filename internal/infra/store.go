// Package infra implements infrastructure concerns (platform probes,
// encrypted local store, remote HTTP client).
package infra

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/shoreagents/staffmon/internal/domain"
)

const stateDBName = "state.db"

// Store implements domain.StateStore on a SQLCipher encrypted SQLite
// database. It holds the last-acknowledged sync baseline, the open
// break session, the bound identity, and the per-install device ID.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (or creates) the encrypted state database. The key is
// used as the SQLCipher passphrase via PRAGMA key.
func NewStore(dataDir string, key []byte) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, stateDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const (
	keyBaseline  = "sync_baseline"
	keyOpenBreak = "open_break"
	keyStaffID   = "staff_id"
	keyDeviceID  = "device_id"
)

func (s *Store) put(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	return err
}

func (s *Store) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// SaveBaseline persists the last-acknowledged snapshot as JSON.
func (s *Store) SaveBaseline(snap domain.MetricSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.put(keyBaseline, string(raw))
}

// LoadBaseline returns the persisted baseline, nil if none.
func (s *Store) LoadBaseline() (*domain.MetricSnapshot, error) {
	raw, ok, err := s.get(keyBaseline)
	if err != nil || !ok {
		return nil, err
	}
	var snap domain.MetricSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("corrupt baseline record: %w", err)
	}
	return &snap, nil
}

// ClearBaseline discards the persisted baseline.
func (s *Store) ClearBaseline() error {
	return s.delete(keyBaseline)
}

// SaveOpenBreak persists the currently-open break session.
func (s *Store) SaveOpenBreak(b domain.BreakSession) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.put(keyOpenBreak, string(raw))
}

// LoadOpenBreak returns the open break session, nil if none.
func (s *Store) LoadOpenBreak() (*domain.BreakSession, error) {
	raw, ok, err := s.get(keyOpenBreak)
	if err != nil || !ok {
		return nil, err
	}
	var b domain.BreakSession
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("corrupt break record: %w", err)
	}
	return &b, nil
}

// ClearOpenBreak removes the open break session.
func (s *Store) ClearOpenBreak() error {
	return s.delete(keyOpenBreak)
}

// SaveIdentity persists the resolved staff identifier.
func (s *Store) SaveIdentity(staffID string) error {
	if staffID == "" {
		return s.delete(keyStaffID)
	}
	return s.put(keyStaffID, staffID)
}

// LoadIdentity returns the persisted staff identifier, "" if none.
func (s *Store) LoadIdentity() (string, error) {
	raw, _, err := s.get(keyStaffID)
	return raw, err
}

// DeviceID returns the stable per-install identifier, creating one on
// first call.
func (s *Store) DeviceID() (string, error) {
	id, ok, err := s.get(keyDeviceID)
	if err != nil {
		return "", err
	}
	if ok {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.put(keyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

// Path returns the database file path (for tests and status output).
func (s *Store) Path() string { return s.dbPath }

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure Store implements domain.StateStore.
var _ domain.StateStore = (*Store)(nil)
