package incident

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the ledger database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("incident store: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("incident store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS incidents (
			id                TEXT PRIMARY KEY,
			number            TEXT NOT NULL UNIQUE,
			caller_email      TEXT NOT NULL,
			short_description TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			urgency           TEXT NOT NULL DEFAULT '3',
			created_at        TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_incidents_created ON incidents(created_at);
	`)
	if err != nil {
		return fmt.Errorf("incident store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(rec Record) (*Record, error) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()

	// Number assignment and insert run in one transaction so concurrent
	// submissions cannot take the same INC number.
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("incident store: begin: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM incidents`).Scan(&n); err != nil {
		return nil, fmt.Errorf("incident store: number: %w", err)
	}
	rec.Number = fmt.Sprintf("INC%07d", n+1)

	_, err = tx.Exec(`
		INSERT INTO incidents (id, number, caller_email, short_description, description, urgency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Number, rec.CallerEmail, rec.ShortDescription, rec.Description, rec.Urgency,
		rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("incident store: append: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("incident store: commit: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) List(limit int) ([]*Record, error) {
	query := `SELECT id, number, caller_email, short_description, description, urgency, created_at
		FROM incidents ORDER BY created_at DESC, number DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("incident store: list: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&rec.ID, &rec.Number, &rec.CallerEmail, &rec.ShortDescription,
			&rec.Description, &rec.Urgency, &ts); err != nil {
			return nil, fmt.Errorf("incident store: scan: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM incidents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("incident store: count: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
