// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/domainimport/domainimport/internal/record"
)

// ErrInjected is returned by the insert selected with FailAt.
var ErrInjected = errors.New("injected insert failure")

// Memory keeps inserted records in order. When Gate is non-nil every insert
// first receives from it, so tests can hold a worker mid-import. FailAt
// (1-based) makes that insert return ErrInjected.
type Memory struct {
	Gate   chan struct{}
	FailAt int

	mu      sync.Mutex
	calls   int
	records []record.Record
}

func (m *Memory) Insert(ctx context.Context, r *record.Record) (string, error) {
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls == m.FailAt {
		return "", ErrInjected
	}
	m.records = append(m.records, *r)
	return strconv.Itoa(len(m.records)), nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *Memory) Close() error { return nil }

// Domains returns the inserted domain names in insert order.
func (m *Memory) Domains() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.records))
	for i, r := range m.records {
		out[i] = r.DomainName
	}
	return out
}

// Records returns a copy of the inserted records.
func (m *Memory) Records() []record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]record.Record(nil), m.records...)
}
