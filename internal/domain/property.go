package domain

// DataType is the declared value type of a product property
type DataType string

const (
	DataTypeString    DataType = "string"
	DataTypeNumber    DataType = "number"
	DataTypeBoolean   DataType = "boolean"
	DataTypeDimension DataType = "dimension"
	DataTypeEnum      DataType = "enum"
)

// PropertyDefinition declares a named product attribute and its optional unit
type PropertyDefinition struct {
	Key             string          `json:"key" yaml:"key"`
	Name            string          `json:"name,omitempty" yaml:"name,omitempty"`
	DataType        DataType        `json:"dataType" yaml:"dataType"`
	Unit            string          `json:"unit,omitempty" yaml:"unit,omitempty"`
	UnitSystem      UnitSystem      `json:"unitSystem,omitempty" yaml:"unitSystem,omitempty"`
	MeasurementType MeasurementType `json:"measurementType,omitempty" yaml:"measurementType,omitempty"`
}

// PropertyMeta is the resolved view of a property used by the query builder
type PropertyMeta struct {
	Key             string          `json:"key"`
	MeasurementType MeasurementType `json:"measurementType"`
	Unit            string          `json:"unit"`
}
