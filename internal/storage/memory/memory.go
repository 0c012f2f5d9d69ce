// Package memory is an in-process implementation of the storage ports, used
// by the memory backend and by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/ports"
)

type Store struct {
	mu         sync.Mutex
	identities []core.Identity
	items      map[int64]core.Expense
	nextUser   int64
	nextItem   int64
	now        func() time.Time
}

func New() *Store {
	return &Store{
		items: make(map[int64]core.Expense),
		now:   time.Now,
	}
}

// FindIdentityByEmail matches email exactly, case included.
func (s *Store) FindIdentityByEmail(_ context.Context, email string) (core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.identities {
		if id.Email == email {
			return id, nil
		}
	}
	return core.Identity{}, core.ErrNotFound
}

func (s *Store) FindIdentityByID(_ context.Context, id int64) (core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ident := range s.identities {
		if ident.ID == id {
			return ident, nil
		}
	}
	return core.Identity{}, core.ErrNotFound
}

func (s *Store) InsertIdentity(_ context.Context, ident core.Identity) (core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.identities {
		if existing.Email == ident.Email {
			return core.Identity{}, core.ErrDuplicateEmail
		}
	}
	s.nextUser++
	ident.ID = s.nextUser
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = s.now().UTC()
	}
	s.identities = append(s.identities, ident)
	return ident, nil
}

// InsertExpense stores the expense and assigns the next id.
func (s *Store) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextItem++
	e.ID = s.nextItem
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) FindExpenses(_ context.Context, owner int64, f core.Filter, offset, limit int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.filtered(owner, f)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []core.Expense{}, nil
	}
	end := len(matched)
	if limit >= 0 && limit < end-offset {
		end = offset + limit
	}
	return append([]core.Expense(nil), matched[offset:end]...), nil
}

func (s *Store) CountExpenses(_ context.Context, owner int64, f core.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.filtered(owner, f)), nil
}

func (s *Store) FindExpense(_ context.Context, id, owner int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok || e.OwnerID != owner {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[e.ID]
	if !ok || existing.OwnerID != e.OwnerID {
		return core.Expense{}, core.ErrNotFound
	}
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[e.ID]
	if !ok || existing.OwnerID != e.OwnerID {
		return core.ErrNotFound
	}
	delete(s.items, e.ID)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, owner int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filtered(owner, core.Filter{}), nil
}

// Len returns the total number of stored expenses across all owners.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// filtered returns owner's matching expenses in id order. Caller holds mu.
func (s *Store) filtered(owner int64, f core.Filter) []core.Expense {
	out := make([]core.Expense, 0)
	for _, e := range s.items {
		if e.OwnerID == owner && f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ ports.Store = (*Store)(nil)
