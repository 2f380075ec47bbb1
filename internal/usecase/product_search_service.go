package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/platform/logger"
	"github.com/buildledger/unitfilter/internal/query"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchScope selects which nesting level a filter must match
type SearchScope string

const (
	// ScopeAll matches a property on the product or on any variant, per key
	ScopeAll SearchScope = "all"
	// ScopeVariants requires one variant to match every key
	ScopeVariants SearchScope = "variants"
)

// ParseSearchScope accepts "", "all" or "variants" in any casing
func ParseSearchScope(s string) (SearchScope, error) {
	switch SearchScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeVariants:
		return ScopeVariants, nil
	}
	return "", fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidRequest, s)
}

// SearchRequest is a filtered product listing
type SearchRequest struct {
	Filters domain.FilterSet
	Scope   SearchScope
	Limit   int
	Offset  int
}

// SearchResult is one page of matching products
type SearchResult struct {
	Products []domain.Product `json:"products"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ProductSearchService composes property predicates and runs them against the product store
type ProductSearchService struct {
	builder    *PropertyQueryBuilder
	repo       domain.ProductRepository
	normalizer *DocumentNormalizer
	log        *logger.Logger
}

// NewProductSearchService creates a search service; repo may be nil when only
// predicates are needed
func NewProductSearchService(builder *PropertyQueryBuilder, repo domain.ProductRepository, log *logger.Logger) *ProductSearchService {
	return &ProductSearchService{
		builder: builder,
		repo:    repo,
		log:     logger.OrNop(log).With("service", "ProductSearchService"),
	}
}

// WithNormalizer makes Ingest fill normalized values before storing products
func (s *ProductSearchService) WithNormalizer(n *DocumentNormalizer) *ProductSearchService {
	s.normalizer = n
	return s
}

// BuildPredicate returns the predicate for filters in the requested scope
func (s *ProductSearchService) BuildPredicate(ctx context.Context, filters domain.FilterSet, scope SearchScope) query.Node {
	if scope == ScopeVariants {
		return s.builder.BuildVariantPropertyQuery(ctx, filters)
	}
	return s.builder.BuildPropertyQuery(ctx, filters)
}

// Search runs a filtered listing
func (s *ProductSearchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: no product store configured", domain.ErrUnsupportedStore)
	}
	if req.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidRequest)
	}
	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	predicate := s.BuildPredicate(ctx, req.Filters, req.Scope)
	products, err := s.repo.Find(ctx, predicate, domain.Page{Limit: limit, Offset: req.Offset})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}

	s.log.Debug("product search completed",
		"filters", len(req.Filters),
		"scope", req.Scope,
		"results", len(products),
	)
	return &SearchResult{Products: products, Limit: limit, Offset: req.Offset}, nil
}

// IngestResult reports what Ingest stored
type IngestResult struct {
	Products   int `json:"products"`
	Normalized int `json:"normalized"`
}

// Ingest normalizes and stores products. Every product must be a non-empty document.
func (s *ProductSearchService) Ingest(ctx context.Context, products []domain.Product) (*IngestResult, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("%w: no product store configured", domain.ErrUnsupportedStore)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: no products given", domain.ErrInvalidRequest)
	}
	for i, p := range products {
		if len(p) == 0 {
			return nil, fmt.Errorf("%w: product %d is empty", domain.ErrInvalidRequest, i)
		}
	}

	res := &IngestResult{Products: len(products)}
	if s.normalizer != nil {
		for _, p := range products {
			res.Normalized += s.normalizer.Normalize(p)
		}
	}
	if err := s.repo.Insert(ctx, products...); err != nil {
		return nil, fmt.Errorf("insert products: %w", err)
	}

	s.log.Info("products ingested", "products", res.Products, "normalizedValues", res.Normalized)
	return res, nil
}
