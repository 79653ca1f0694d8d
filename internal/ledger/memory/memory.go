// Package memory is an in-process ledger backend used for development, the
// CLI and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"consultcrm/internal/core"
	"consultcrm/internal/ledger"
)

type Store struct {
	mu           sync.RWMutex
	transactions []core.Transaction
	liabilities  []core.Liability
	contacts     []core.Contact
	now          func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: func() time.Time { return time.Now().UTC() }}
}

// Seed replaces the store content. Records without an id get one.
func (s *Store) Seed(transactions []core.Transaction, liabilities []core.Liability, contacts []core.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = withIDs(transactions, func(t *core.Transaction) *string { return &t.ID })
	s.liabilities = withIDs(liabilities, func(l *core.Liability) *string { return &l.ID })
	s.contacts = withIDs(contacts, func(c *core.Contact) *string { return &c.ID })
}

func withIDs[T any](in []T, id func(*T) *string) []T {
	out := slices.Clone(in)
	for i := range out {
		if p := id(&out[i]); *p == "" {
			*p = uuid.NewString()
		}
	}
	return out
}

func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.transactions), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.transactionIndex(id)
	if i < 0 {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return s.transactions[i], nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(t.ID)
	if i < 0 {
		return core.Transaction{}, ledger.ErrNotFound
	}
	t.CreatedAt = s.transactions[i].CreatedAt
	t.UpdatedAt = s.now()
	s.transactions[i] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.transactionIndex(id)
	if i < 0 {
		return ledger.ErrNotFound
	}
	s.transactions = slices.Delete(s.transactions, i, i+1)
	return nil
}

func (s *Store) transactionIndex(id string) int {
	return slices.IndexFunc(s.transactions, func(t core.Transaction) bool { return t.ID == id })
}

func (s *Store) ListLiabilities(_ context.Context) ([]core.Liability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.liabilities), nil
}

func (s *Store) CreateLiability(_ context.Context, l core.Liability) (core.Liability, error) {
	if err := l.Validate(); err != nil {
		return core.Liability{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uuid.NewString()
	l.CreatedAt = s.now()
	s.liabilities = append(s.liabilities, l)
	return l, nil
}

func (s *Store) DeleteLiability(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.liabilities, func(l core.Liability) bool { return l.ID == id })
	if i < 0 {
		return ledger.ErrNotFound
	}
	s.liabilities = slices.Delete(s.liabilities, i, i+1)
	return nil
}

func (s *Store) ListContacts(_ context.Context) ([]core.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.contacts), nil
}

func (s *Store) CreateContact(_ context.Context, c core.Contact) (core.Contact, error) {
	if err := c.Validate(); err != nil {
		return core.Contact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	s.contacts = append(s.contacts, c)
	return c, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
