package domain

import (
	"context"
	"time"

	"github.com/buildledger/unitfilter/internal/query"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PropertyRepository provides read/write access to the property-definition catalog
type PropertyRepository interface {
	GetByKey(ctx context.Context, key string) (*PropertyDefinition, error)
	List(ctx context.Context) ([]PropertyDefinition, error)
	Save(ctx context.Context, def *PropertyDefinition) error
}

// UnitCatalogRepository stores the richer per-unit reference data
type UnitCatalogRepository interface {
	GetByCode(ctx context.Context, code string) (*Unit, error)
	List(ctx context.Context) ([]Unit, error)
	Save(ctx context.Context, unit *Unit) error
}

// ProductRepository runs a composed predicate against a product store
type ProductRepository interface {
	Find(ctx context.Context, predicate query.Node, page Page) ([]Product, error)
	Insert(ctx context.Context, products ...Product) error
}
