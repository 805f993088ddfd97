package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pricecheck/backend/internal/domain"
)

// MockSessionRepository is an in-memory implementation of domain.SessionRepository
type MockSessionRepository struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Session
	products  map[string][]domain.ProductRecord
	nextID    int
	appendErr error
	updateErr error
	createErr error
	sweepErr  error
	appends   int
	updates   int
	cutoffs   []time.Time
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]*domain.Session),
		products: make(map[string][]domain.ProductRecord),
	}
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, totalTerms int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("session-%d", m.nextID)
	now := time.Now()
	m.sessions[id] = &domain.Session{ID: id, CreatedAt: now, LastAccessed: now, TotalTerms: totalTerms}
	return id, nil
}

func (m *MockSessionRepository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSessionRepository) UpdateProgress(ctx context.Context, id string, processedDelta, productsDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.ProcessedTerms += processedDelta
	s.TotalProducts += productsDelta
	return nil
}

func (m *MockSessionRepository) AppendProducts(ctx context.Context, id string, records []domain.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appends++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.products[id] = append(m.products[id], records...)
	return nil
}

func (m *MockSessionRepository) GetProducts(ctx context.Context, id string) ([]domain.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ProductRecord(nil), m.products[id]...), nil
}

func (m *MockSessionRepository) GetStats(ctx context.Context, id string) (domain.SessionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats domain.SessionStats
	for _, r := range m.products[id] {
		stats.Total++
		if r.Found {
			stats.Found++
		} else {
			stats.NotFound++
		}
	}
	return stats, nil
}

func (m *MockSessionRepository) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.products, id)
	return nil
}

func (m *MockSessionRepository) DeleteSessionsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs = append(m.cutoffs, cutoff)
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	n := 0
	for id, s := range m.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			delete(m.products, id)
			n++
		}
	}
	return n, nil
}

func (m *MockSessionRepository) Close() error { return nil }

// MockProductFetcher returns canned results per term
type MockProductFetcher struct {
	mu      sync.Mutex
	results map[string]domain.FetchResult
	panics  map[string]bool
	calls   []string
	delay   time.Duration

	inFlight    int
	maxInFlight int
}

func NewMockProductFetcher() *MockProductFetcher {
	return &MockProductFetcher{
		results: make(map[string]domain.FetchResult),
		panics:  make(map[string]bool),
	}
}

func (m *MockProductFetcher) FetchProducts(ctx context.Context, term, credential string) domain.FetchResult {
	m.mu.Lock()
	m.calls = append(m.calls, term)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	res, ok := m.results[term]
	shouldPanic := m.panics[term]
	delay := m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}
	if shouldPanic {
		panic("boom: " + term)
	}
	if !ok {
		return domain.FetchResult{Outcome: domain.OutcomeNoMatch}
	}
	return res
}

// found builds a FetchResult holding products with the given ids
func found(ids ...string) domain.FetchResult {
	set := domain.NewProductSet()
	for _, id := range ids {
		set.Put(id, domain.RawProduct{"productId": id, "name": "Product " + id, "available": true})
	}
	return domain.FetchResult{Outcome: domain.OutcomeFound, Products: set}
}

// MockRegionResolver returns a fixed region and counts calls
type MockRegionResolver struct {
	mu     sync.Mutex
	region domain.RegionInfo
	calls  int
}

func (m *MockRegionResolver) ResolveRegion(ctx context.Context, credential string) domain.RegionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.region
}

// MockRegionCache is a map-backed domain.RegionCache
type MockRegionCache struct {
	data     map[string]domain.RegionInfo
	setCalls int
	lastTTL  time.Duration
}

func NewMockRegionCache() *MockRegionCache {
	return &MockRegionCache{data: make(map[string]domain.RegionInfo)}
}

func (m *MockRegionCache) Get(ctx context.Context, key string) (domain.RegionInfo, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return domain.RegionInfo{}, domain.ErrCacheMiss
}

func (m *MockRegionCache) Set(ctx context.Context, key string, value domain.RegionInfo, ttl time.Duration) error {
	m.setCalls++
	m.lastTTL = ttl
	m.data[key] = value
	return nil
}
