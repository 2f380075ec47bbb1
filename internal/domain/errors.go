package domain

import "errors"

var (
	// ErrPropertyNotFound is returned when no property definition exists for a key
	ErrPropertyNotFound = errors.New("property definition not found")

	// ErrUnitNotFound is returned when a unit code is not present in the registry or catalog
	ErrUnitNotFound = errors.New("unit not found")

	// ErrIncompatibleUnits is returned when two units belong to different measurement types
	ErrIncompatibleUnits = errors.New("units belong to different measurement types")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidFilter is returned when a filter map cannot be decoded
	ErrInvalidFilter = errors.New("invalid property filter")

	// ErrInvalidCatalog is returned when a unit catalog violates the one-base-unit-per-type rule
	ErrInvalidCatalog = errors.New("invalid unit catalog")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrUnsupportedStore is returned when a configured backend type is unknown
	ErrUnsupportedStore = errors.New("unsupported store type")
)
