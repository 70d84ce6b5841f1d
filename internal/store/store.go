package store

import (
	"context"
	"strings"
	"time"

	"github.com/domainimport/domainimport/internal/record"
)

// Store persists imported records. Implementations are safe for concurrent use.
type Store interface {
	// Insert stores r and returns its generated id.
	Insert(ctx context.Context, r *record.Record) (string, error)
	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open picks the backend from the URL: postgres:// and postgresql:// use
// pgx, anything else is treated as a SQLite path or DSN.
func Open(ctx context.Context, url string) (Store, error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		s, err := NewPostgresStore(ctx, url)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := NewSQLiteStore(strings.TrimPrefix(url, "sqlite://"))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// columns lists the domain table columns after id, in insert order.
var columns = []string{
	"domain_name", "domain_age", "order_no", "start_at", "end_at",
	"title", "language", "score", "dns", "registrar_name",
	"registrar_address", "registrar_by", "email", "registrar_at", "expire_at",
	"updated_at", "record_status", "record_at", "record_main_body", "record_type",
	"record_no", "record_name",
}

// values returns the column values of r matching columns, with nil for
// absent fields.
func values(r *record.Record) []any {
	return []any{
		r.DomainName, num(r.Age), num(r.OrderNo), ts(r.StartAt), ts(r.EndAt),
		text(r.Title), text(r.Language), num(r.Score), text(r.DNS), text(r.RegistrarName),
		text(r.RegistrarAddress), text(r.RegistrarBy), text(r.Email), ts(r.RegistrarAt), ts(r.ExpireAt),
		ts(r.UpdatedAt), text(r.RecordStatus), ts(r.RecordAt), text(r.RecordMainBody), text(r.RecordType),
		text(r.RecordNo), text(r.RecordName),
	}
}

func num(p *uint8) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func text(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func ts(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
