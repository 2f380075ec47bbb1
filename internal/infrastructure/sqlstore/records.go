package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/buildledger/unitfilter/internal/domain"
)

// UnitRecord is the stored form of a catalog unit
type UnitRecord struct {
	ID               uuid.UUID                                  `gorm:"type:uuid;primaryKey" json:"id"`
	Code             string                                     `gorm:"column:code;not null;uniqueIndex" json:"code"`
	Name             string                                     `gorm:"column:name" json:"name"`
	Symbol           string                                     `gorm:"column:symbol" json:"symbol"`
	MeasurementType  string                                     `gorm:"column:measurement_type;not null;index" json:"measurementType"`
	System           string                                     `gorm:"column:system" json:"system"`
	ConversionFactor float64                                    `gorm:"column:conversion_factor;not null" json:"conversionFactor"`
	BaseUnit         string                                     `gorm:"column:base_unit" json:"baseUnit"`
	StandardValues   datatypes.JSONType[[]domain.StandardValue] `gorm:"column:standard_values" json:"standardValues"`
	CreatedAt        time.Time                                  `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time                                  `gorm:"not null" json:"updatedAt"`
}

func (UnitRecord) TableName() string { return "units" }

func (r *UnitRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func unitRecordFrom(u *domain.Unit) *UnitRecord {
	return &UnitRecord{
		Code:             u.Code,
		Name:             u.Name,
		Symbol:           u.Symbol,
		MeasurementType:  string(u.MeasurementType),
		System:           string(u.System),
		ConversionFactor: u.ConversionFactor,
		BaseUnit:         u.BaseUnit,
		StandardValues:   datatypes.NewJSONType(u.StandardValues),
	}
}

func (r *UnitRecord) toDomain() domain.Unit {
	return domain.Unit{
		Code:             r.Code,
		Name:             r.Name,
		Symbol:           r.Symbol,
		MeasurementType:  domain.MeasurementType(r.MeasurementType),
		System:           domain.UnitSystem(r.System),
		ConversionFactor: r.ConversionFactor,
		BaseUnit:         r.BaseUnit,
		StandardValues:   r.StandardValues.Data(),
	}
}

// PropertyRecord is the stored form of a property definition
type PropertyRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Key             string    `gorm:"column:property_key;not null;uniqueIndex" json:"key"`
	Name            string    `gorm:"column:name" json:"name"`
	DataType        string    `gorm:"column:data_type" json:"dataType"`
	Unit            string    `gorm:"column:unit" json:"unit"`
	UnitSystem      string    `gorm:"column:unit_system" json:"unitSystem"`
	MeasurementType string    `gorm:"column:measurement_type" json:"measurementType"`
	CreatedAt       time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"not null" json:"updatedAt"`
}

func (PropertyRecord) TableName() string { return "property_definitions" }

func (r *PropertyRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func propertyRecordFrom(d *domain.PropertyDefinition) *PropertyRecord {
	return &PropertyRecord{
		Key:             d.Key,
		Name:            d.Name,
		DataType:        string(d.DataType),
		Unit:            d.Unit,
		UnitSystem:      string(d.UnitSystem),
		MeasurementType: string(d.MeasurementType),
	}
}

func (r *PropertyRecord) toDomain() domain.PropertyDefinition {
	return domain.PropertyDefinition{
		Key:             r.Key,
		Name:            r.Name,
		DataType:        domain.DataType(r.DataType),
		Unit:            r.Unit,
		UnitSystem:      domain.UnitSystem(r.UnitSystem),
		MeasurementType: domain.MeasurementType(r.MeasurementType),
	}
}

// ProductRecord stores a product as a JSON document keyed by its external id
type ProductRecord struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID string         `gorm:"column:external_id;not null;uniqueIndex" json:"externalId"`
	Document   datatypes.JSON `gorm:"column:document;not null" json:"document"`
	CreatedAt  time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updatedAt"`
}

func (ProductRecord) TableName() string { return "products" }

func (r *ProductRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func productRecordFrom(p domain.Product) (*ProductRecord, error) {
	doc := make(map[string]interface{}, len(p))
	for k, v := range p {
		doc[k] = v
	}
	externalID := p.ID()
	if externalID == "" {
		externalID = uuid.NewString()
		doc["id"] = externalID
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return &ProductRecord{ExternalID: externalID, Document: datatypes.JSON(raw)}, nil
}

func (r *ProductRecord) toDomain() (domain.Product, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(r.Document, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	if _, ok := doc["id"]; !ok {
		doc["id"] = r.ExternalID
	}
	return domain.Product(doc), nil
}
