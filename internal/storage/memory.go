package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/CortexFolio/internal/models"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]models.TradingRecord
	users      map[string]models.UserDoc
	portfolios []models.PortfolioDoc
	trades     []models.TradeDoc
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.TradingRecord),
		users:   make(map[string]models.UserDoc),
		now:     time.Now,
	}
}

func (s *MemoryStore) SaveTradingRecord(ctx context.Context, rec models.TradingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UserEmail] = rec
	return nil
}

func (s *MemoryStore) GetTradingRecord(ctx context.Context, email string) (*models.TradingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) ListUserEmails(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for email := range s.records {
		out = append(out, email)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) SaveAnalysis(ctx context.Context, email string, a models.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok {
		return ErrNotFound
	}
	rec.Apply(a)
	s.records[email] = rec
	return nil
}

func (s *MemoryStore) SavePortfolio(ctx context.Context, doc models.PortfolioDoc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios = append(s.portfolios, doc)
	return nil
}

func (s *MemoryStore) SaveTrade(ctx context.Context, doc models.TradeDoc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, doc)
	return nil
}

func (s *MemoryStore) EnsureUser(ctx context.Context, email string) (models.UserDoc, error) {
	if err := ctx.Err(); err != nil {
		return models.UserDoc{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	u, ok := s.users[email]
	if !ok {
		u = models.UserDoc{ID: uuid.NewString(), Email: email, CreatedAt: now}
	}
	u.LastUpdated = now
	s.users[email] = u
	return u, nil
}

// Portfolios returns the saved portfolio documents for email.
func (s *MemoryStore) Portfolios(email string) []models.PortfolioDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PortfolioDoc
	for _, p := range s.portfolios {
		if p.UserEmail == email {
			out = append(out, p)
		}
	}
	return out
}

// Trades returns the saved trade documents for email.
func (s *MemoryStore) Trades(email string) []models.TradeDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TradeDoc
	for _, t := range s.trades {
		if t.UserEmail == email {
			out = append(out, t)
		}
	}
	return out
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
