package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/platform/logger"
	"github.com/buildledger/unitfilter/internal/query"
)

// UnitRepository implements domain.UnitCatalogRepository
type UnitRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewUnitRepository creates a unit catalog backed by db
func NewUnitRepository(db *gorm.DB, baseLog *logger.Logger) *UnitRepository {
	return &UnitRepository{db: db, log: logger.OrNop(baseLog).With("repo", "UnitRepository")}
}

// GetByCode returns the unit with code, ignoring case and surrounding space
func (r *UnitRepository) GetByCode(ctx context.Context, code string) (*domain.Unit, error) {
	var rec UnitRecord
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToLower(strings.TrimSpace(code))).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	u := rec.toDomain()
	return &u, nil
}

// List returns every unit ordered by measurement type, factor and code
func (r *UnitRepository) List(ctx context.Context) ([]domain.Unit, error) {
	var recs []UnitRecord
	if err := r.db.WithContext(ctx).
		Order("measurement_type, conversion_factor, code").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Unit, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, nil
}

// Save upserts by code; codes are stored lowercased
func (r *UnitRepository) Save(ctx context.Context, unit *domain.Unit) error {
	if unit == nil || strings.TrimSpace(unit.Code) == "" {
		return fmt.Errorf("%w: unit code is required", domain.ErrInvalidRequest)
	}
	rec := unitRecordFrom(unit)
	rec.Code = strings.ToLower(strings.TrimSpace(rec.Code))
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"symbol",
				"measurement_type",
				"system",
				"conversion_factor",
				"base_unit",
				"standard_values",
				"updated_at",
			}),
		}).
		Create(rec).Error
}

// PropertyRepository implements domain.PropertyRepository
type PropertyRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPropertyRepository creates a property definition store backed by db
func NewPropertyRepository(db *gorm.DB, baseLog *logger.Logger) *PropertyRepository {
	return &PropertyRepository{db: db, log: logger.OrNop(baseLog).With("repo", "PropertyRepository")}
}

// GetByKey returns the definition for key
func (r *PropertyRepository) GetByKey(ctx context.Context, key string) (*domain.PropertyDefinition, error) {
	var rec PropertyRecord
	err := r.db.WithContext(ctx).Where("property_key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPropertyNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	def := rec.toDomain()
	return &def, nil
}

// List returns every definition ordered by key
func (r *PropertyRepository) List(ctx context.Context) ([]domain.PropertyDefinition, error) {
	var recs []PropertyRecord
	if err := r.db.WithContext(ctx).Order("property_key").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.PropertyDefinition, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, nil
}

// Save upserts by key
func (r *PropertyRepository) Save(ctx context.Context, def *domain.PropertyDefinition) error {
	if def == nil || strings.TrimSpace(def.Key) == "" {
		return fmt.Errorf("%w: property key is required", domain.ErrInvalidRequest)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "property_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"data_type",
				"unit",
				"unit_system",
				"measurement_type",
				"updated_at",
			}),
		}).
		Create(propertyRecordFrom(def)).Error
}

// ProductRepository implements domain.ProductRepository over JSON documents.
// On PostgreSQL the predicate runs in SQL; other dialects scan and match in process.
type ProductRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewProductRepository creates a product store backed by db
func NewProductRepository(db *gorm.DB, baseLog *logger.Logger) *ProductRepository {
	return &ProductRepository{db: db, log: logger.OrNop(baseLog).With("repo", "ProductRepository")}
}

// Find returns the products matching predicate within page, ordered by id
func (r *ProductRepository) Find(ctx context.Context, predicate query.Node, page domain.Page) ([]domain.Product, error) {
	if isPostgres(r.db) {
		return r.findSQL(ctx, predicate, page)
	}
	return r.findScan(ctx, predicate, page)
}

func (r *ProductRepository) findSQL(ctx context.Context, predicate query.Node, page domain.Page) ([]domain.Product, error) {
	q := r.db.WithContext(ctx).Model(&ProductRecord{}).Order("external_id")
	if !predicate.IsMatchAll() {
		expr, err := Render(predicate)
		if err != nil {
			return nil, err
		}
		q = q.Where(expr)
	}
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}

	var recs []ProductRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return toProducts(recs)
}

func (r *ProductRepository) findScan(ctx context.Context, predicate query.Node, page domain.Page) ([]domain.Product, error) {
	var recs []ProductRecord
	if err := r.db.WithContext(ctx).Order("external_id").Find(&recs).Error; err != nil {
		return nil, err
	}
	all, err := toProducts(recs)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Product, 0, len(all))
	skipped := 0
	for _, p := range all {
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
	return out, nil
}

// Insert upserts products by their id
func (r *ProductRepository) Insert(ctx context.Context, products ...domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	recs := make([]*ProductRecord, 0, len(products))
	for _, p := range products {
		rec, err := productRecordFrom(p)
		if err != nil {
			return fmt.Errorf("encode product %q: %w", p.ID(), err)
		}
		recs = append(recs, rec)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document", "updated_at"}),
		}).
		Create(&recs).Error
}

func toProducts(recs []ProductRecord) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(recs))
	for i := range recs {
		p, err := recs[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode product %q: %w", recs[i].ExternalID, err)
		}
		out = append(out, p)
	}
	return out, nil
}
