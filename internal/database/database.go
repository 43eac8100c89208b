package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vincentbai/visionui-beacon/internal/session"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// Database persists tab-scoped storage so a tab keeps its entries across page
// loads served by the bridge.
type Database struct {
	db  *sql.DB
	now func() time.Time
}

func NewDatabase(databasePath string) (*Database, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", databasePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS tab_storage(
	  tab_id     TEXT    NOT NULL,
	  key        TEXT    NOT NULL,
	  value      TEXT    NOT NULL,
	  updated_at INTEGER NOT NULL,
	  PRIMARY KEY (tab_id, key)
	);
	CREATE INDEX IF NOT EXISTS idx_tab_storage_updated ON tab_storage(updated_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func ValidateKey(tabID, key string) error {
	if tabID == "" {
		return errors.New("tab id cannot be empty")
	}
	if key == "" {
		return errors.New("key cannot be empty")
	}
	return nil
}

// Tab returns the storage of one tab.
func (d *Database) Tab(tabID string) session.Store {
	return &tabStore{d: d, tabID: tabID}
}

func (d *Database) get(tabID, key string) (string, bool, error) {
	if err := ValidateKey(tabID, key); err != nil {
		return "", false, err
	}
	var value string
	err := d.db.QueryRow(`SELECT value FROM tab_storage WHERE tab_id = ? AND key = ?`, tabID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s/%s: %w", tabID, key, err)
	}
	return value, true, nil
}

func (d *Database) set(tabID, key, value string) error {
	if err := ValidateKey(tabID, key); err != nil {
		return err
	}
	_, err := d.db.Exec(`
	INSERT INTO tab_storage(tab_id, key, value, updated_at) VALUES(?,?,?,?)
	ON CONFLICT(tab_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		tabID, key, value, d.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", tabID, key, err)
	}
	return nil
}

// Touch marks a tab as alive so PurgeIdle leaves it alone.
func (d *Database) Touch(tabID string) error {
	if _, err := d.db.Exec(`UPDATE tab_storage SET updated_at = ? WHERE tab_id = ?`, d.now().UnixMilli(), tabID); err != nil {
		return fmt.Errorf("failed to touch tab %s: %w", tabID, err)
	}
	return nil
}

// ClearTab drops every entry of a tab.
func (d *Database) ClearTab(tabID string) error {
	if _, err := d.db.Exec(`DELETE FROM tab_storage WHERE tab_id = ?`, tabID); err != nil {
		return fmt.Errorf("failed to clear tab %s: %w", tabID, err)
	}
	return nil
}

// PurgeIdle removes tabs whose entries were last written more than ttl ago and
// reports how many rows were dropped.
func (d *Database) PurgeIdle(ttl time.Duration) (int64, error) {
	cutoff := d.now().Add(-ttl).UnixMilli()
	result, err := d.db.Exec(`
	DELETE FROM tab_storage WHERE tab_id IN (
	  SELECT tab_id FROM tab_storage GROUP BY tab_id HAVING MAX(updated_at) < ?
	)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge idle tabs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged rows: %w", err)
	}
	return n, nil
}

type tabStore struct {
	d     *Database
	tabID string
}

func (t *tabStore) Get(key string) (string, bool, error) { return t.d.get(t.tabID, key) }

func (t *tabStore) Set(key, value string) error { return t.d.set(t.tabID, key, value) }
