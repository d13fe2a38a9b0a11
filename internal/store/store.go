package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// layoutVersion is the user_version stamped on databases created from
// schema.sql. Opening a database stamped with a newer version fails.
const layoutVersion = 1

// tables lists the tables a build store must contain.
var tables = []string{"builds", "models", "model_path"}

// Store persists resolved builds in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the build store at path. A new file gets the full
// layout; an existing one must carry the build tables at a layout version
// this binary understands.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open build store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open build store %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and reads that stream
	// model rows must not interleave with path lookups on another conn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open build store %s: %w", path, err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init() error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read layout version: %w", err)
	}
	switch {
	case version > layoutVersion:
		return fmt.Errorf("layout version %d is newer than supported version %d", version, layoutVersion)
	case version == 0:
		existing, err := s.existingTables()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("not a build store: found tables %v without a layout version", existing)
		}
		if err := s.create(); err != nil {
			return err
		}
	}
	return s.checkTables()
}

// create applies schema.sql and stamps the layout version in one
// transaction.
func (s *Store) create() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("create layout: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create layout: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", layoutVersion)); err != nil {
		return fmt.Errorf("stamp layout version: %w", err)
	}
	return tx.Commit()
}

// existingTables returns the user tables already in the database.
func (s *Store) existingTables() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// checkTables fails unless every build table exists.
func (s *Store) checkTables() error {
	existing, err := s.existingTables()
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	for _, name := range tables {
		if !have[name] {
			return fmt.Errorf("missing table %q", name)
		}
	}
	return nil
}

// pragma returns the current value of a pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}
