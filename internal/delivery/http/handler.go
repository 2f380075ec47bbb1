package http

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/platform/logger"
	"github.com/buildledger/unitfilter/internal/usecase"
)

const serviceName = "unitfilter"

// Dependencies are the services the handlers call; nil services disable their endpoints
type Dependencies struct {
	Conversion *usecase.ConversionService
	Parser     *usecase.QuantityParser
	Metadata   usecase.PropertyMetadataResolver
	Search     *usecase.ProductSearchService
	Renderers  map[string]Renderer
	Logger     *logger.Logger
	Version    string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	conversion *usecase.ConversionService
	parser     *usecase.QuantityParser
	metadata   usecase.PropertyMetadataResolver
	search     *usecase.ProductSearchService
	renderers  map[string]Renderer
	log        *logger.Logger
	version    string
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies) *Handler {
	conversion := deps.Conversion
	if conversion == nil {
		conversion = usecase.NewConversionService(nil, 0)
	}
	parser := deps.Parser
	if parser == nil {
		parser = usecase.NewQuantityParser(conversion.Registry())
	}
	renderers := deps.Renderers
	if renderers == nil {
		renderers = map[string]Renderer{TargetTree: RenderTree}
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		conversion: conversion,
		parser:     parser,
		metadata:   deps.Metadata,
		search:     deps.Search,
		renderers:  renderers,
		log:        logger.OrNop(deps.Logger).With("component", "http"),
		version:    version,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": h.version,
	})
}

// ListUnits returns every known unit, optionally restricted by ?type=
func (h *Handler) ListUnits(c *gin.Context) {
	var mt domain.MeasurementType
	if raw := c.Query("type"); raw != "" {
		parsed, ok := domain.ParseMeasurementType(raw)
		if !ok {
			h.writeError(c, fmt.Errorf("%w: unknown measurement type %q", domain.ErrInvalidRequest, raw))
			return
		}
		mt = parsed
	}

	units := h.conversion.Registry().Units(mt)
	if units == nil {
		units = []domain.Unit{}
	}
	c.JSON(http.StatusOK, gin.H{"units": units, "count": len(units)})
}

// GetUnit returns one unit; free-form spellings like "inches" are accepted
func (h *Handler) GetUnit(c *gin.Context) {
	code := h.parser.CanonicalUnit(c.Param("code"))
	unit, ok := h.conversion.Registry().Lookup(code)
	if !ok {
		h.writeError(c, fmt.Errorf("%w: %q", domain.ErrUnitNotFound, c.Param("code")))
		return
	}
	c.JSON(http.StatusOK, unit)
}

type convertRequest struct {
	Value           *float64 `json:"value" binding:"required"`
	From            string   `json:"from" binding:"required"`
	To              string   `json:"to" binding:"required"`
	MeasurementType string   `json:"measurementType"`
}

// Convert expresses a value in another unit of the same measurement type
func (h *Handler) Convert(c *gin.Context) {
	var req convertRequest
	if !h.bind(c, &req) {
		return
	}
	mt, ok := h.measurementType(c, req.MeasurementType)
	if !ok {
		return
	}
	from, to := h.parser.CanonicalUnit(req.From), h.parser.CanonicalUnit(req.To)
	if err := h.checkCompatible(from, to); err != nil {
		h.writeError(c, err)
		return
	}

	base := h.conversion.NormalizeToBase(*req.Value, from, mt)
	out := h.conversion.ConvertFromBase(base.Value, to, mt)
	resolution := out.Resolution
	if base.Resolution != usecase.Resolved {
		resolution = base.Resolution
	}

	c.JSON(http.StatusOK, gin.H{
		"value":      *req.Value,
		"from":       from,
		"to":         to,
		"result":     out.Value,
		"formatted":  h.conversion.FormatValue(out.Value, to),
		"resolution": resolution.String(),
	})
}

type compareRequest struct {
	Value1          *float64 `json:"value1" binding:"required"`
	Unit1           string   `json:"unit1"`
	Value2          *float64 `json:"value2" binding:"required"`
	Unit2           string   `json:"unit2"`
	MeasurementType string   `json:"measurementType"`
}

// Compare reports whether two quantities are equal within the tolerance
func (h *Handler) Compare(c *gin.Context) {
	var req compareRequest
	if !h.bind(c, &req) {
		return
	}
	mt, ok := h.measurementType(c, req.MeasurementType)
	if !ok {
		return
	}
	unit1, unit2 := h.parser.CanonicalUnit(req.Unit1), h.parser.CanonicalUnit(req.Unit2)

	c.JSON(http.StatusOK, gin.H{
		"equal":       h.conversion.CompareValues(*req.Value1, unit1, *req.Value2, unit2, mt),
		"normalized1": h.conversion.NormalizeToBase(*req.Value1, unit1, mt).Value,
		"normalized2": h.conversion.NormalizeToBase(*req.Value2, unit2, mt).Value,
		"tolerance":   h.conversion.Tolerance(),
	})
}

type boundRequest struct {
	Value *float64 `json:"value" binding:"required"`
	Unit  string   `json:"unit"`
}

type rangeRequest struct {
	Value           *float64      `json:"value" binding:"required"`
	Unit            string        `json:"unit"`
	Min             *boundRequest `json:"min"`
	Max             *boundRequest `json:"max"`
	MeasurementType string        `json:"measurementType"`
}

// Range reports whether a quantity lies within optional unit-aware bounds
func (h *Handler) Range(c *gin.Context) {
	var req rangeRequest
	if !h.bind(c, &req) {
		return
	}
	mt, ok := h.measurementType(c, req.MeasurementType)
	if !ok {
		return
	}

	toBound := func(b *boundRequest) *usecase.Bound {
		if b == nil || b.Value == nil {
			return nil
		}
		return &usecase.Bound{Value: *b.Value, Unit: h.parser.CanonicalUnit(b.Unit)}
	}
	unit := h.parser.CanonicalUnit(req.Unit)

	c.JSON(http.StatusOK, gin.H{
		"inRange": h.conversion.IsInRange(*req.Value, unit, toBound(req.Min), toBound(req.Max), mt),
	})
}

type parseRequest struct {
	Text string `json:"text" binding:"required"`
	Unit string `json:"unit"`
}

// Parse reads a free-form quantity like `1-1/2"` and normalizes it when the unit is known
func (h *Handler) Parse(c *gin.Context) {
	var req parseRequest
	if !h.bind(c, &req) {
		return
	}
	q, ok := h.parser.Parse(req.Text)
	if !ok {
		h.writeError(c, fmt.Errorf("%w: no quantity in %q", domain.ErrInvalidRequest, req.Text))
		return
	}
	if q.Unit == "" {
		q.Unit = h.parser.CanonicalUnit(req.Unit)
	}

	resp := gin.H{
		"value":     q.Value,
		"unit":      q.Unit,
		"formatted": h.conversion.FormatValue(q.Value, q.Unit),
	}
	if n := h.conversion.NormalizeToBase(q.Value, q.Unit, ""); n.Resolution == usecase.Resolved {
		mt, _ := h.conversion.Registry().MeasurementTypeOf(q.Unit)
		base, _ := h.conversion.Registry().BaseUnitFor(mt)
		resp["measurementType"] = mt
		resp["normalizedValue"] = n.Value
		resp["baseUnit"] = base
	}
	c.JSON(http.StatusOK, resp)
}

// GetProperty returns the resolved query metadata of a property key
func (h *Handler) GetProperty(c *gin.Context) {
	if h.metadata == nil {
		h.writeError(c, fmt.Errorf("%w: no property store configured", domain.ErrUnsupportedStore))
		return
	}
	meta, err := h.metadata.Resolve(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

// QueryProducts renders the predicate for ?filters= in the requested ?target= language
func (h *Handler) QueryProducts(c *gin.Context) {
	if h.search == nil {
		h.writeError(c, fmt.Errorf("%w: search is not configured", domain.ErrUnsupportedStore))
		return
	}
	filters, scope, ok := h.filterParams(c)
	if !ok {
		return
	}

	target := strings.ToLower(c.DefaultQuery("target", TargetTree))
	render, ok := h.renderers[target]
	if !ok {
		h.writeError(c, fmt.Errorf("%w: unknown target %q, want one of %s",
			domain.ErrInvalidRequest, target, strings.Join(h.targets(), ", ")))
		return
	}

	predicate := h.search.BuildPredicate(c.Request.Context(), filters, scope)
	rendered, err := render(predicate)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"target":    target,
		"scope":     scope,
		"matchAll":  predicate.IsMatchAll(),
		"predicate": rendered,
	})
}

// SearchProducts lists products matching ?filters=
func (h *Handler) SearchProducts(c *gin.Context) {
	if h.search == nil {
		h.writeError(c, fmt.Errorf("%w: search is not configured", domain.ErrUnsupportedStore))
		return
	}
	filters, scope, ok := h.filterParams(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.search.Search(c.Request.Context(), usecase.SearchRequest{
		Filters: filters,
		Scope:   scope,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// IngestProducts stores a JSON array of product documents
func (h *Handler) IngestProducts(c *gin.Context) {
	if h.search == nil {
		h.writeError(c, fmt.Errorf("%w: search is not configured", domain.ErrUnsupportedStore))
		return
	}
	var products []domain.Product
	if err := c.ShouldBindJSON(&products); err != nil {
		h.writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	result, err := h.search.Ingest(c.Request.Context(), products)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return false
	}
	return true
}

func (h *Handler) measurementType(c *gin.Context, raw string) (domain.MeasurementType, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	mt, ok := domain.ParseMeasurementType(raw)
	if !ok {
		h.writeError(c, fmt.Errorf("%w: unknown measurement type %q", domain.ErrInvalidRequest, raw))
		return "", false
	}
	return mt, true
}

// checkCompatible rejects two known units of different types; unknown units
// pass through and degrade to an unresolved conversion
func (h *Handler) checkCompatible(from, to string) error {
	registry := h.conversion.Registry()
	fromType, fromKnown := registry.MeasurementTypeOf(from)
	toType, toKnown := registry.MeasurementTypeOf(to)
	if fromKnown && toKnown && fromType != toType {
		return fmt.Errorf("%w: %s is %s, %s is %s", domain.ErrIncompatibleUnits, from, fromType, to, toType)
	}
	return nil
}

func (h *Handler) filterParams(c *gin.Context) (domain.FilterSet, usecase.SearchScope, bool) {
	filters, err := domain.ParseFilterSet(c.Query("filters"))
	if err != nil {
		h.writeError(c, err)
		return nil, "", false
	}
	scope, err := usecase.ParseSearchScope(c.Query("scope"))
	if err != nil {
		h.writeError(c, err)
		return nil, "", false
	}
	return filters, scope, true
}

func (h *Handler) targets() []string {
	names := make([]string, 0, len(h.renderers))
	for name := range h.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidRequest, name)
	}
	return n, nil
}

// writeError maps domain errors to HTTP status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnitNotFound), errors.Is(err, domain.ErrPropertyNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrIncompatibleUnits):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnsupportedStore), errors.Is(err, domain.ErrCacheUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
