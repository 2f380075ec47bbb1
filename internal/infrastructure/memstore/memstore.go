// Package memstore holds in-process repositories used when no database is configured.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/query"
)

// UnitRepository implements domain.UnitCatalogRepository
type UnitRepository struct {
	mu    sync.RWMutex
	units map[string]domain.Unit
}

// NewUnitRepository creates an empty unit catalog
func NewUnitRepository() *UnitRepository {
	return &UnitRepository{units: make(map[string]domain.Unit)}
}

// GetByCode returns the unit with code, ignoring case and surrounding space
func (r *UnitRepository) GetByCode(ctx context.Context, code string) (*domain.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, code)
	}
	return &u, nil
}

// List returns every unit ordered by measurement type, factor and code
func (r *UnitRepository) List(ctx context.Context) ([]domain.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeasurementType != out[j].MeasurementType {
			return out[i].MeasurementType < out[j].MeasurementType
		}
		if out[i].ConversionFactor != out[j].ConversionFactor {
			return out[i].ConversionFactor < out[j].ConversionFactor
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// Save stores unit, replacing any unit with the same code
func (r *UnitRepository) Save(ctx context.Context, unit *domain.Unit) error {
	if unit == nil || strings.TrimSpace(unit.Code) == "" {
		return fmt.Errorf("%w: unit code is required", domain.ErrInvalidRequest)
	}
	u := *unit
	u.Code = strings.ToLower(strings.TrimSpace(u.Code))
	r.mu.Lock()
	r.units[u.Code] = u
	r.mu.Unlock()
	return nil
}

// PropertyRepository implements domain.PropertyRepository
type PropertyRepository struct {
	mu   sync.RWMutex
	defs map[string]domain.PropertyDefinition
}

// NewPropertyRepository creates an empty property definition store
func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{defs: make(map[string]domain.PropertyDefinition)}
}

// GetByKey returns the definition for key
func (r *PropertyRepository) GetByKey(ctx context.Context, key string) (*domain.PropertyDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, key)
	}
	return &def, nil
}

// List returns every definition ordered by key
func (r *PropertyRepository) List(ctx context.Context) ([]domain.PropertyDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PropertyDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Save stores def, replacing any definition with the same key
func (r *PropertyRepository) Save(ctx context.Context, def *domain.PropertyDefinition) error {
	if def == nil || strings.TrimSpace(def.Key) == "" {
		return fmt.Errorf("%w: property key is required", domain.ErrInvalidRequest)
	}
	r.mu.Lock()
	r.defs[def.Key] = *def
	r.mu.Unlock()
	return nil
}

// ProductRepository implements domain.ProductRepository by evaluating
// predicates with query.Match, in id order
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewProductRepository creates an empty product store
func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]domain.Product)}
}

// Find returns the products matching predicate within page
func (r *ProductRepository) Find(ctx context.Context, predicate query.Node, page domain.Page) ([]domain.Product, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := []domain.Product{}
	skipped := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			r.mu.RUnlock()
			return nil, err
		}
		p := r.products[id]
		if !query.Match(predicate, p) {
			continue
		}
		if skipped < page.Offset {
			skipped++
			continue
		}
		out = append(out, p)
		if page.Limit > 0 && len(out) == page.Limit {
			break
		}
	}
	r.mu.RUnlock()
	return out, nil
}

// Insert stores products by id, replacing existing ones; a missing id is generated
func (r *ProductRepository) Insert(ctx context.Context, products ...domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		if p == nil {
			continue
		}
		id := p.ID()
		if id == "" {
			id = uuid.NewString()
			p["id"] = id
		}
		r.products[id] = p
	}
	return nil
}

// Len reports the number of stored products
func (r *ProductRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}
