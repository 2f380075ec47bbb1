package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/query"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockPropertyRepository is a mock implementation of domain.PropertyRepository
type MockPropertyRepository struct {
	defs     map[string]domain.PropertyDefinition
	getError error
	getCalls int32
}

func NewMockPropertyRepository(defs ...domain.PropertyDefinition) *MockPropertyRepository {
	m := &MockPropertyRepository{defs: make(map[string]domain.PropertyDefinition)}
	for _, d := range defs {
		m.defs[d.Key] = d
	}
	return m
}

func (m *MockPropertyRepository) GetByKey(ctx context.Context, key string) (*domain.PropertyDefinition, error) {
	atomic.AddInt32(&m.getCalls, 1)
	if m.getError != nil {
		return nil, m.getError
	}
	def, ok := m.defs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, key)
	}
	return &def, nil
}

func (m *MockPropertyRepository) List(ctx context.Context) ([]domain.PropertyDefinition, error) {
	out := make([]domain.PropertyDefinition, 0, len(m.defs))
	for _, d := range m.defs {
		out = append(out, d)
	}
	return out, nil
}

func (m *MockPropertyRepository) Save(ctx context.Context, def *domain.PropertyDefinition) error {
	m.defs[def.Key] = *def
	return nil
}

// MockResolver fails for keys listed in errs and counts calls
type MockResolver struct {
	byKey map[string]domain.PropertyMeta
	errs  map[string]error
	calls int32
}

func (m *MockResolver) Resolve(ctx context.Context, key string) (domain.PropertyMeta, error) {
	atomic.AddInt32(&m.calls, 1)
	if err, ok := m.errs[key]; ok {
		return domain.PropertyMeta{}, err
	}
	if meta, ok := m.byKey[key]; ok {
		return meta, nil
	}
	return domain.PropertyMeta{}, domain.ErrPropertyNotFound
}

// MockProductRepository filters an in-memory slice with query.Match
type MockProductRepository struct {
	products  []domain.Product
	findError error
	lastNode  query.Node
	lastPage  domain.Page
}

func (m *MockProductRepository) Find(ctx context.Context, predicate query.Node, page domain.Page) ([]domain.Product, error) {
	m.lastNode = predicate
	m.lastPage = page
	if m.findError != nil {
		return nil, m.findError
	}
	var out []domain.Product
	for _, p := range m.products {
		if query.Match(predicate, p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockProductRepository) Insert(ctx context.Context, products ...domain.Product) error {
	m.products = append(m.products, products...)
	return nil
}
