// Package storage persists papers and relationships in SQLite, with JSONL
// for backups.
package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			paper_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors_json TEXT NOT NULL,
			abstract TEXT,
			key_finding TEXT,
			published TEXT,
			updated TEXT,
			pdf_path TEXT,
			page_count INTEGER,
			arxiv_id TEXT,
			created_at TEXT
		);

		CREATE TABLE IF NOT EXISTS relationships (
			relationship_id TEXT PRIMARY KEY,
			source_paper_id TEXT NOT NULL,
			target_paper_id TEXT NOT NULL,
			relationship_type TEXT NOT NULL,
			confidence REAL NOT NULL,
			evidence TEXT,
			detected_at TEXT,
			similarity_score REAL
		);

		CREATE INDEX IF NOT EXISTS idx_rel_source ON relationships(source_paper_id);
		CREATE INDEX IF NOT EXISTS idx_rel_target ON relationships(target_paper_id);
		CREATE INDEX IF NOT EXISTS idx_rel_type ON relationships(relationship_type);
	`
	_, err := db.Exec(schema)
	return err
}
