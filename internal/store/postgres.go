package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/domainimport/domainimport/internal/record"
)

// PostgresStore is a PostgreSQL-backed implementation of Store.
type PostgresStore struct {
	pool   *pgxpool.Pool
	insert string
}

// NewPostgresStore connects to the database at url, verifies the connection
// and runs migrations.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "domainimport"

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		insert: insertSQL(func(n int) string { return "$" + strconv.Itoa(n) }),
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS domain (
			id                UUID PRIMARY KEY,
			domain_name       TEXT NOT NULL,
			domain_age        SMALLINT,
			order_no          SMALLINT,
			start_at          TIMESTAMP,
			end_at            TIMESTAMP,
			title             TEXT,
			language          TEXT,
			score             SMALLINT,
			dns               TEXT,
			registrar_name    TEXT,
			registrar_address TEXT,
			registrar_by      TEXT,
			email             TEXT,
			registrar_at      TIMESTAMP,
			expire_at         TIMESTAMP,
			updated_at        TIMESTAMP,
			record_status     TEXT,
			record_at         TIMESTAMP,
			record_main_body  TEXT,
			record_type       TEXT,
			record_no         TEXT,
			record_name       TEXT,
			created_at        TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_domain_name       ON domain(domain_name);
		CREATE INDEX IF NOT EXISTS idx_domain_created_at ON domain(created_at);
	`)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, r *record.Record) (string, error) {
	id := uuid.New().String()
	args := append([]any{id}, values(r)...)
	args = append(args, time.Now().UTC())

	if _, err := s.pool.Exec(ctx, s.insert, args...); err != nil {
		return "", fmt.Errorf("insert domain %s: %w", r.DomainName, err)
	}
	return id, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM domain`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
