package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/domainimport/domainimport/internal/record"
)

// SQLiteStore is a SQLite-backed implementation of Store.
type SQLiteStore struct {
	db     *sql.DB
	insert string
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// One connection: concurrent inserts queue in the pool rather than
	// failing with SQLITE_BUSY, and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	// WAL mode for better concurrent read performance.
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err = db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		insert: insertSQL(func(int) string { return "?" }),
	}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS domain (
			id                TEXT PRIMARY KEY,
			domain_name       TEXT NOT NULL,
			domain_age        INTEGER,
			order_no          INTEGER,
			start_at          DATETIME,
			end_at            DATETIME,
			title             TEXT,
			language          TEXT,
			score             INTEGER,
			dns               TEXT,
			registrar_name    TEXT,
			registrar_address TEXT,
			registrar_by      TEXT,
			email             TEXT,
			registrar_at      DATETIME,
			expire_at         DATETIME,
			updated_at        DATETIME,
			record_status     TEXT,
			record_at         DATETIME,
			record_main_body  TEXT,
			record_type       TEXT,
			record_no         TEXT,
			record_name       TEXT,
			created_at        DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_domain_name       ON domain(domain_name);
		CREATE INDEX IF NOT EXISTS idx_domain_created_at ON domain(created_at);
	`)
	return err
}

func (s *SQLiteStore) Insert(ctx context.Context, r *record.Record) (string, error) {
	id := uuid.New().String()
	args := append([]any{id}, values(r)...)
	args = append(args, time.Now().UTC())

	if _, err := s.db.ExecContext(ctx, s.insert, args...); err != nil {
		return "", fmt.Errorf("insert domain %s: %w", r.DomainName, err)
	}
	return id, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM domain`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// insertSQL builds the domain INSERT statement using placeholder(n) for the
// n-th (1-based) bind parameter.
func insertSQL(placeholder func(n int) string) string {
	cols := append([]string{"id"}, columns...)
	cols = append(cols, "created_at")

	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO domain (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(marks, ", "))
}
