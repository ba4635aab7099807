package sheets

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

// StateStore remembers the fingerprint of the last published version of
// each tab. It lives in a local SQLite file so skip decisions survive
// process restarts.
type StateStore struct {
	db *sql.DB
}

func NewStateStore(path string) (*StateStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sync_state (
		tab TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		published_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create sync_state table: %w", err)
	}

	logger.Info("sync state store initialized", zap.String("path", path))
	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error {
	return s.db.Close()
}

// LastFingerprint returns the fingerprint recorded for a tab, or "" when
// the tab has never been published.
func (s *StateStore) LastFingerprint(tab string) (string, error) {
	var fp string
	err := s.db.QueryRow("SELECT fingerprint FROM sync_state WHERE tab = ?", tab).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read sync state for %s: %w", tab, err)
	}
	return fp, nil
}

// RecordPublish stores the fingerprint and row count of a publish that
// just succeeded.
func (s *StateStore) RecordPublish(tab, fingerprint string, rowCount int) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_state (tab, fingerprint, row_count, published_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tab) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			row_count = excluded.row_count,
			published_at = excluded.published_at`,
		tab, fingerprint, rowCount, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record publish for %s: %w", tab, err)
	}
	return nil
}
