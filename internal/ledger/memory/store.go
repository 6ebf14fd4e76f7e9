// Package memory provides an in-memory ledger store for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/smorales/jobharvester/internal/ledger"
)

// Store keeps ledgers in process memory. Only ledgers named at
// construction exist; touching any other name errors, mirroring a real
// store's missing-table failure.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]ledger.Row
}

// NewStore creates a Store with the given (empty) ledgers.
func NewStore(names ...string) *Store {
	tables := make(map[string][]ledger.Row, len(names))
	for _, name := range names {
		tables[name] = nil
	}
	return &Store{tables: tables}
}

// Seed replaces a ledger's contents wholesale. Test helper.
func (s *Store) Seed(name string, rows []ledger.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = copyRows(rows)
}

// ReadAllRows returns a copy of the ledger's rows in table order.
func (s *Store) ReadAllRows(_ context.Context, name string) ([]ledger.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("ledger %q does not exist", name)
	}
	return copyRows(rows), nil
}

// AppendRows appends rows in input order.
func (s *Store) AppendRows(_ context.Context, name string, rows []ledger.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tables[name]
	if !ok {
		return fmt.Errorf("ledger %q does not exist", name)
	}
	s.tables[name] = append(existing, copyRows(rows)...)
	return nil
}

// Clear removes every row, header included.
func (s *Store) Clear(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("ledger %q does not exist", name)
	}
	s.tables[name] = nil
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func copyRows(rows []ledger.Row) []ledger.Row {
	out := make([]ledger.Row, len(rows))
	for i, row := range rows {
		cp := make(ledger.Row, len(row))
		copy(cp, row)
		out[i] = cp
	}
	return out
}
