package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteNotifyState persists the chime memory so a daemon restart does not
// re-ring every order already alerted before the crash.
type SQLiteNotifyState struct {
	db *sql.DB
}

func NewSQLiteNotifyState(dbPath string) (*SQLiteNotifyState, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable WAL mode for crash recovery
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS notify_state (
		order_id   TEXT PRIMARY KEY,
		status     TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteNotifyState{db: db}, nil
}

func (s *SQLiteNotifyState) LastNotified(orderID string) (string, bool) {
	var status string
	err := s.db.QueryRow(`SELECT status FROM notify_state WHERE order_id = ?`, orderID).Scan(&status)
	if err != nil {
		return "", false
	}
	return status, true
}

func (s *SQLiteNotifyState) Record(orderID, status string) error {
	query := `INSERT OR REPLACE INTO notify_state (order_id, status, updated_at) VALUES (?, ?, ?)`
	if _, err := s.db.Exec(query, orderID, status, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to record notify state: %w", err)
	}
	return nil
}

func (s *SQLiteNotifyState) Forget(orderID string) error {
	if _, err := s.db.Exec(`DELETE FROM notify_state WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("failed to delete notify state: %w", err)
	}
	return nil
}

func (s *SQLiteNotifyState) Known() []string {
	rows, err := s.db.Query(`SELECT order_id FROM notify_state`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *SQLiteNotifyState) Close() error {
	return s.db.Close()
}
