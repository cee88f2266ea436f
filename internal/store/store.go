package store

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/trading-services/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrOwnerMismatch = errors.New("record not owned by specified user")
)

// Filter narrows List. Empty fields match everything; Limit <= 0 means no limit.
type Filter struct {
	Sector string
	Owner  string
	Limit  int
}

// Store is the in-memory record set. Iteration follows the order records had
// in the document they were loaded from.
type Store struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]*models.Stock
	version uint64
}

func New(stocks []models.Stock) *Store {
	s := &Store{byID: make(map[string]*models.Stock, len(stocks))}
	for i := range stocks {
		st := stocks[i]
		if _, dup := s.byID[st.ID]; !dup {
			s.order = append(s.order, st.ID)
		}
		s.byID[st.ID] = &st
	}
	return s
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) Get(id string) (models.Stock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[id]
	if !ok {
		return models.Stock{}, false
	}
	return *st, true
}

func (s *Store) List(f Filter) []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Stock, 0)
	for _, id := range s.order {
		st := s.byID[id]
		if f.Sector != "" && st.Sector != f.Sector {
			continue
		}
		if f.Owner != "" && st.Owned != f.Owner {
			continue
		}
		out = append(out, *st)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func (s *Store) Portfolio(owner string) models.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := models.Portfolio{OwnerID: owner, Stocks: make([]models.Stock, 0)}
	total := decimal.Zero
	for _, id := range s.order {
		st := s.byID[id]
		if st.Owned != owner {
			continue
		}
		p.Stocks = append(p.Stocks, *st)
		total = total.Add(decimal.NewFromFloat(st.Price))
	}
	p.StockCount = len(p.Stocks)
	p.TotalValue = total.InexactFloat64()
	return p
}

func (s *Store) SectorStats() map[string]models.SectorStat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]decimal.Decimal)
	stats := make(map[string]models.SectorStat)
	for _, id := range s.order {
		st := s.byID[id]
		stat := stats[st.Sector]
		stat.Count++
		stat.Stocks = append(stat.Stocks, st.ID)
		stats[st.Sector] = stat
		totals[st.Sector] = totals[st.Sector].Add(decimal.NewFromFloat(st.Price))
	}
	for sector, stat := range stats {
		total := totals[sector]
		stat.TotalValue = total.InexactFloat64()
		stat.AvgPrice = total.Div(decimal.NewFromInt(int64(stat.Count))).InexactFloat64()
		stats[sector] = stat
	}
	return stats
}

// Reassign moves a record from one owner to another. The owner check and the
// write happen under the same lock.
func (s *Store) Reassign(id, from, to string) (models.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byID[id]
	if !ok {
		return models.Stock{}, ErrNotFound
	}
	if st.Owned != from {
		return *st, ErrOwnerMismatch
	}
	st.Owned = to
	s.version++
	return *st, nil
}

// Version increases with every successful Reassign. Read results can be
// cached under the version they were computed at.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns an ordered copy of every record.
func (s *Store) Snapshot() []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Stock, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}
