/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package leaderboard

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the table in a single SQLite table, rewritten in one
// transaction on every save.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS leaderboard (
		position INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		score INTEGER NOT NULL,
		timestamp TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT name, score, timestamp FROM leaderboard ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Score, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *SQLiteStore) Save(entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM leaderboard`); err != nil {
		return fmt.Errorf("failed to clear leaderboard: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO leaderboard (position, name, score, timestamp) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.Exec(i, e.Name, e.Score, e.Timestamp); err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}

	return tx.Commit()
}
