package order

import "sync"

// Store hands out one draft Builder per operator. Drafts are created empty on
// first access and dropped on logout; they are never persisted.
type Store struct {
	sales     SaleCreator
	refresher CatalogRefresher

	mu     sync.Mutex
	drafts map[string]*Builder
}

func NewStore(sales SaleCreator, refresher CatalogRefresher) *Store {
	return &Store{
		sales:     sales,
		refresher: refresher,
		drafts:    make(map[string]*Builder),
	}
}

// Get returns the operator's draft, creating an empty one if needed.
func (s *Store) Get(operator string) *Builder {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.drafts[operator]
	if !ok {
		b = NewBuilder(s.sales, s.refresher)
		s.drafts[operator] = b
	}
	return b
}

// Drop discards the operator's draft entirely.
func (s *Store) Drop(operator string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, operator)
}
