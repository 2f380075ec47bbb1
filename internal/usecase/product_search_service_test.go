package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/query"
)

func TestParseSearchScope(t *testing.T) {
	for input, want := range map[string]SearchScope{"": ScopeAll, "ALL": ScopeAll, " variants ": ScopeVariants} {
		got, err := ParseSearchScope(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseSearchScope("products")
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestProductSearchService_Search(t *testing.T) {
	ctx := context.Background()
	builder := newTestBuilder(catalogResolver())

	t.Run("filters through the repository", func(t *testing.T) {
		repo := &MockProductRepository{products: normalizedWidths()}
		svc := NewProductSearchService(builder, repo, nil)

		result, err := svc.Search(ctx, SearchRequest{
			Filters: domain.FilterSet{"width": domain.RangeFilter(250, 260, "mm")},
		})
		require.NoError(t, err)
		require.Len(t, result.Products, 1)
		assert.Equal(t, "w-254", result.Products[0].ID())
		assert.Equal(t, domain.Page{Limit: 20}, repo.lastPage)
	})

	t.Run("clamps the limit", func(t *testing.T) {
		repo := &MockProductRepository{}
		svc := NewProductSearchService(builder, repo, nil)

		result, err := svc.Search(ctx, SearchRequest{Limit: 1000, Offset: 5})
		require.NoError(t, err)
		assert.Equal(t, 100, result.Limit)
		assert.Equal(t, domain.Page{Limit: 100, Offset: 5}, repo.lastPage)
		assert.NotNil(t, result.Products, "empty results encode as []")
	})

	t.Run("variant scope", func(t *testing.T) {
		repo := &MockProductRepository{products: normalizedWidths()}
		svc := NewProductSearchService(builder, repo, nil)

		result, err := svc.Search(ctx, SearchRequest{
			Filters: domain.FilterSet{"width": domain.RangeFilter(10, 14, "in")},
			Scope:   ScopeVariants,
		})
		require.NoError(t, err)
		require.Len(t, result.Products, 1)
		assert.Equal(t, "w-var", result.Products[0].ID())
		assert.Equal(t, query.KindElemMatch, repo.lastNode.Kind)
	})

	t.Run("rejects negative offset", func(t *testing.T) {
		svc := NewProductSearchService(builder, &MockProductRepository{}, nil)
		_, err := svc.Search(ctx, SearchRequest{Offset: -1})
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	})

	t.Run("returns error when store fails", func(t *testing.T) {
		repo := &MockProductRepository{findError: errors.New("server selection timeout")}
		svc := NewProductSearchService(builder, repo, nil)
		_, err := svc.Search(ctx, SearchRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server selection timeout")
	})

	t.Run("no store configured", func(t *testing.T) {
		svc := NewProductSearchService(builder, nil, nil)
		_, err := svc.Search(ctx, SearchRequest{})
		assert.True(t, errors.Is(err, domain.ErrUnsupportedStore))
	})
}

func TestProductSearchService_Ingest(t *testing.T) {
	ctx := context.Background()
	builder := newTestBuilder(catalogResolver())

	t.Run("normalizes before storing", func(t *testing.T) {
		repo := &MockProductRepository{}
		svc := NewProductSearchService(builder, repo, nil).
			WithNormalizer(NewDocumentNormalizer(nil, DefaultLayout()))

		res, err := svc.Ingest(ctx, []domain.Product{
			product("new", map[string]interface{}{"width": map[string]interface{}{"value": 12, "unit": "in"}}),
			product("plain", map[string]interface{}{"color": "red"}),
		})
		require.NoError(t, err)
		assert.Equal(t, &IngestResult{Products: 2, Normalized: 1}, res)
		require.Len(t, repo.products, 2)

		result, err := svc.Search(ctx, SearchRequest{
			Filters: domain.FilterSet{"width": domain.ValueFilter(304.8, "mm")},
		})
		require.NoError(t, err)
		require.Len(t, result.Products, 1)
		assert.Equal(t, "new", result.Products[0].ID())
	})

	t.Run("without a normalizer stores documents as given", func(t *testing.T) {
		repo := &MockProductRepository{}
		svc := NewProductSearchService(builder, repo, nil)

		res, err := svc.Ingest(ctx, []domain.Product{{"id": "x"}})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Normalized)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		svc := NewProductSearchService(builder, &MockProductRepository{}, nil)

		_, err := svc.Ingest(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

		_, err = svc.Ingest(ctx, []domain.Product{{"id": "ok"}, {}})
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	})

	t.Run("no store configured", func(t *testing.T) {
		svc := NewProductSearchService(builder, nil, nil)
		_, err := svc.Ingest(ctx, []domain.Product{{"id": "x"}})
		assert.True(t, errors.Is(err, domain.ErrUnsupportedStore))
	})
}
