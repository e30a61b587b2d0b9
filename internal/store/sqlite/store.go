// internal/store/sqlite/store.go
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shrimpsizemoose/kardemumma/internal/store"
)

// schema is the SQLite rendition of migrations/00001_init.sql. The goose
// files target the Postgres deployment; the SQLite store is the local-dev
// and test backend and bootstraps its schema directly.
const schema = `
	CREATE TABLE IF NOT EXISTS attendance (
		date TEXT NOT NULL,
		username TEXT NOT NULL,
		present BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (date, username)
	);

	CREATE TABLE IF NOT EXISTS test_grades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		test_number INTEGER NOT NULL,
		points INTEGER NOT NULL,
		reasoning TEXT NOT NULL DEFAULT '',
		images_count INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT 'ai',
		needs_review BOOLEAN NOT NULL DEFAULT 0,
		graded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS test_grades_latest_idx
		ON test_grades (username, test_number, graded_at DESC, id DESC);

	CREATE TABLE IF NOT EXISTS progress (
		username TEXT PRIMARY KEY,
		test1 INTEGER,
		test2 INTEGER,
		test3 INTEGER,
		test4 INTEGER,
		assignment_task_checked BOOLEAN,
		assignment_midterm_ok BOOLEAN,
		assignment_topic TEXT,
		assignment_partner TEXT,
		assignment_final_points INTEGER,
		auth_code TEXT
	);`

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
	}}, nil
}

// ApplyMigrations ignores the goose directory and execs the built-in schema.
func (s *SQLiteStore) ApplyMigrations(dir string) error {
	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to bootstrap sqlite schema: %w", err)
	}
	return nil
}
