package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/platform/logger"
)

// PropertyMetadataResolver resolves a property key to its measurement type and unit
type PropertyMetadataResolver interface {
	Resolve(ctx context.Context, key string) (domain.PropertyMeta, error)
}

// MetadataMap is a fixed, in-process resolver
type MetadataMap map[string]domain.PropertyMeta

// Resolve implements PropertyMetadataResolver
func (m MetadataMap) Resolve(_ context.Context, key string) (domain.PropertyMeta, error) {
	meta, ok := m[key]
	if !ok {
		return domain.PropertyMeta{}, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, key)
	}
	if meta.Key == "" {
		meta.Key = key
	}
	return meta, nil
}

// PropertyMetadataConfig holds configuration for the metadata service
type PropertyMetadataConfig struct {
	CacheTTL time.Duration
}

// PropertyMetadataService resolves property metadata from the definition catalog.
// Flow: check cache -> load definition -> derive type from unit -> cache -> return
type PropertyMetadataService struct {
	repo     domain.PropertyRepository
	cache    domain.CacheRepository
	registry *UnitRegistry
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewPropertyMetadataService creates a metadata service; cache may be nil
func NewPropertyMetadataService(
	repo domain.PropertyRepository,
	cache domain.CacheRepository,
	registry *UnitRegistry,
	log *logger.Logger,
	config PropertyMetadataConfig,
) *PropertyMetadataService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}
	if registry == nil {
		registry = DefaultUnitRegistry()
	}

	return &PropertyMetadataService{
		repo:     repo,
		cache:    cache,
		registry: registry,
		cacheTTL: cacheTTL,
		log:      logger.OrNop(log).With("service", "PropertyMetadataService"),
	}
}

// Resolve implements PropertyMetadataResolver
func (s *PropertyMetadataService) Resolve(ctx context.Context, key string) (domain.PropertyMeta, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.PropertyMeta{}, domain.ErrInvalidRequest
	}

	cacheKey := metadataCacheKey(key)
	if meta, err := s.getFromCache(ctx, cacheKey); err == nil {
		return meta, nil
	}

	def, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrPropertyNotFound) {
			return domain.PropertyMeta{}, err
		}
		return domain.PropertyMeta{}, fmt.Errorf("load property definition %q: %w", key, err)
	}

	meta := s.MetaFor(def)
	if err := s.setInCache(ctx, cacheKey, meta); err != nil {
		s.log.Warn("failed to cache property metadata", "key", key, "error", err)
	}
	return meta, nil
}

// Invalidate drops the cached metadata of a key, e.g. after its definition changed
func (s *PropertyMetadataService) Invalidate(ctx context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, metadataCacheKey(strings.TrimSpace(key)))
}

// MetaFor derives the query metadata of a definition. An explicit measurement
// type wins; otherwise it is taken from the unit, and a definition with no
// resolvable unit is treated as MeasurementOther.
func (s *PropertyMetadataService) MetaFor(def *domain.PropertyDefinition) domain.PropertyMeta {
	unit := normalizeUnitCode(def.Unit)
	mt := def.MeasurementType
	if !mt.Valid() {
		mt = domain.MeasurementOther
		if unit != "" {
			if inferred, ok := s.registry.MeasurementTypeOf(unit); ok {
				mt = inferred
			}
		}
	}
	return domain.PropertyMeta{Key: def.Key, MeasurementType: mt, Unit: unit}
}

func metadataCacheKey(key string) string {
	return "property-meta:" + key
}

// getFromCache retrieves metadata from cache, accepting any JSON-shaped value
func (s *PropertyMetadataService) getFromCache(ctx context.Context, key string) (domain.PropertyMeta, error) {
	if s.cache == nil {
		return domain.PropertyMeta{}, domain.ErrCacheMiss
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return domain.PropertyMeta{}, err
	}

	var meta domain.PropertyMeta
	switch v := value.(type) {
	case domain.PropertyMeta:
		return v, nil
	case *domain.PropertyMeta:
		return *v, nil
	case string:
		err = json.Unmarshal([]byte(v), &meta)
	case []byte:
		err = json.Unmarshal(v, &meta)
	default:
		// Stored as a decoded map by the memory cache
		raw, marshalErr := json.Marshal(v)
		if marshalErr != nil {
			return domain.PropertyMeta{}, domain.ErrCacheMiss
		}
		err = json.Unmarshal(raw, &meta)
	}
	if err != nil || meta.Key == "" {
		return domain.PropertyMeta{}, domain.ErrCacheMiss
	}
	return meta, nil
}

// setInCache stores metadata in cache
func (s *PropertyMetadataService) setInCache(ctx context.Context, key string, meta domain.PropertyMeta) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, meta, s.cacheTTL)
}
