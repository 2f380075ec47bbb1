package usecase

import (
	"context"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/platform/logger"
	"github.com/buildledger/unitfilter/internal/query"
)

// Layout names the document fields the builder addresses
type Layout struct {
	// PropertiesField holds the property map on a product and on each variant
	PropertiesField string
	// VariantsField holds the embedded list of variant sub-documents
	VariantsField string
	// NormalizedField is the key of the pre-normalized value inside a property object
	NormalizedField string
}

// DefaultLayout addresses properties.<key>, properties.<key>.normalizedValue and variants[]
func DefaultLayout() Layout {
	return Layout{
		PropertiesField: "properties",
		VariantsField:   "variants",
		NormalizedField: "normalizedValue",
	}
}

func (l Layout) withDefaults() Layout {
	d := DefaultLayout()
	if strings.TrimSpace(l.PropertiesField) != "" {
		d.PropertiesField = strings.TrimSpace(l.PropertiesField)
	}
	if strings.TrimSpace(l.VariantsField) != "" {
		d.VariantsField = strings.TrimSpace(l.VariantsField)
	}
	if strings.TrimSpace(l.NormalizedField) != "" {
		d.NormalizedField = strings.TrimSpace(l.NormalizedField)
	}
	return d
}

// QueryBuilderConfig holds configuration for the property query builder
type QueryBuilderConfig struct {
	Layout Layout
	// LookupConcurrency bounds parallel metadata lookups per build
	LookupConcurrency int
}

// PropertyQueryBuilder turns a property filter map into a predicate tree that
// matches unit-converted values whether they are stored normalized or legacy,
// on the product itself or inside one of its variants.
//
// The builder never fails: unknown units, missing metadata and unusable values
// degrade to exact matching or to skipping the key.
type PropertyQueryBuilder struct {
	resolver    PropertyMetadataResolver
	conversion  *ConversionService
	parser      *QuantityParser
	layout      Layout
	concurrency int
	log         *logger.Logger
}

// NewPropertyQueryBuilder creates a builder; resolver may be nil, in which case
// every object filter is treated as having no unit metadata
func NewPropertyQueryBuilder(
	resolver PropertyMetadataResolver,
	conversion *ConversionService,
	log *logger.Logger,
	config QueryBuilderConfig,
) *PropertyQueryBuilder {
	if conversion == nil {
		conversion = NewConversionService(nil, DefaultTolerance)
	}
	concurrency := config.LookupConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &PropertyQueryBuilder{
		resolver:    resolver,
		conversion:  conversion,
		parser:      NewQuantityParser(conversion.Registry()),
		layout:      config.Layout.withDefaults(),
		concurrency: concurrency,
		log:         logger.OrNop(log).With("service", "PropertyQueryBuilder"),
	}
}

// Layout returns the field layout the builder targets
func (b *PropertyQueryBuilder) Layout() Layout {
	return b.layout
}

// BuildPropertyQuery matches each filtered property on the product or on any of
// its variants. Keys are combined with AND; no usable key yields MatchAll.
func (b *PropertyQueryBuilder) BuildPropertyQuery(ctx context.Context, filters domain.FilterSet) query.Node {
	perKey := b.buildKeys(ctx, filters)
	clauses := make([]query.Node, 0, len(perKey))
	for _, leaves := range perKey {
		clauses = append(clauses, query.Or(b.spread(leaves)...))
	}
	return query.And(clauses...)
}

// BuildVariantPropertyQuery matches only variants: a single variant must satisfy
// every filtered property.
func (b *PropertyQueryBuilder) BuildVariantPropertyQuery(ctx context.Context, filters domain.FilterSet) query.Node {
	perKey := b.buildKeys(ctx, filters)
	if len(perKey) == 0 {
		return query.MatchAll()
	}
	clauses := make([]query.Node, 0, len(perKey))
	for _, leaves := range perKey {
		clauses = append(clauses, query.Or(leaves...))
	}
	return query.ElemMatch(b.variantsPath(), query.And(clauses...))
}

// buildKeys returns, in key order, the alternative leaf predicates of every
// usable key. Leaf paths are relative to a record (product or variant).
func (b *PropertyQueryBuilder) buildKeys(ctx context.Context, filters domain.FilterSet) [][]query.Node {
	keys := make([]string, 0, len(filters))
	var lookups []string
	for key, spec := range filters {
		if spec.Empty() {
			continue
		}
		if !query.ValidSegment(key) {
			b.log.Debug("skipping filter with unsafe property key", "key", key)
			continue
		}
		keys = append(keys, key)
		if spec.IsObject {
			lookups = append(lookups, key)
		}
	}
	sort.Strings(keys)

	metas := b.resolveAll(ctx, lookups)

	out := make([][]query.Node, 0, len(keys))
	for _, key := range keys {
		spec := filters[key]
		var leaves []query.Node
		if spec.IsObject {
			meta, ok := metas[key]
			leaves = b.objectLeaves(key, spec, meta, ok)
		} else {
			leaves = []query.Node{query.Equals(b.rawPath(key), spec.Scalar)}
		}
		if len(leaves) > 0 {
			out = append(out, leaves)
		}
	}
	return out
}

// objectLeaves builds the alternatives for an object filter
func (b *PropertyQueryBuilder) objectLeaves(key string, spec domain.FilterSpec, meta domain.PropertyMeta, known bool) []query.Node {
	unit := b.parser.CanonicalUnit(spec.Unit)
	if unit == "" {
		unit = b.embeddedUnit(spec)
	}
	if unit == "" && known {
		unit = meta.Unit
	}
	mt := meta.MeasurementType
	if !known || mt == "" {
		if inferred, ok := b.conversion.Registry().MeasurementTypeOf(unit); ok {
			mt = inferred
		}
	}

	if unit == "" || !mt.Convertible() {
		if !spec.HasValue() {
			return nil
		}
		b.log.Debug("no unit for property filter, using exact match", "key", key, "measurementType", mt)
		return []query.Node{query.Equals(b.rawPath(key), spec.Value)}
	}

	tolerance := b.conversion.Tolerance()
	normalizedPath := b.normalizedPath(key)
	rawPath := b.rawPath(key)
	var leaves []query.Node

	// Range over normalized values; each bound converts in its own unit
	if spec.HasMin() || spec.HasMax() {
		var lo, hi *float64
		if spec.HasMin() {
			if v, ok := b.normalizeInput(spec.Min, b.unitOr(spec.MinUnit, unit), mt); ok {
				lo = query.Float(v - tolerance)
			}
		}
		if spec.HasMax() {
			if v, ok := b.normalizeInput(spec.Max, b.unitOr(spec.MaxUnit, unit), mt); ok {
				hi = query.Float(v + tolerance)
			}
		}
		if lo != nil || hi != nil {
			leaves = append(leaves, query.Range(normalizedPath, lo, hi))
		}

		// Legacy documents store the raw number only
		if spec.HasMin() && spec.HasMax() {
			rawMin, minOK := b.rawNumber(spec.Min)
			rawMax, maxOK := b.rawNumber(spec.Max)
			if minOK && maxOK {
				leaves = append(leaves, query.Range(rawPath, query.Float(rawMin), query.Float(rawMax)))
			}
		}
	}

	if spec.HasValue() {
		if v, ok := b.normalizeInput(spec.Value, unit, mt); ok {
			leaves = append(leaves, query.Range(normalizedPath, query.Float(v-tolerance), query.Float(v+tolerance)))
		} else {
			b.log.Debug("filter value is not numeric, keeping legacy match only", "key", key)
		}
		leaves = append(leaves, query.Equals(rawPath, spec.Value))
	}

	return leaves
}

// normalizeInput converts a raw filter value. A value that carries its own unit
// (e.g. "12 in") uses that unit instead of the fallback.
func (b *PropertyQueryBuilder) normalizeInput(raw interface{}, unit string, mt domain.MeasurementType) (float64, bool) {
	value, embeddedUnit, ok := b.numeric(raw)
	if !ok {
		return 0, false
	}
	if embeddedUnit != "" {
		unit = embeddedUnit
	}
	n := b.conversion.NormalizeToBase(value, unit, mt)
	return n.Value, n.OK()
}

// embeddedUnit returns the first unit written inside the value or a bound
func (b *PropertyQueryBuilder) embeddedUnit(spec domain.FilterSpec) string {
	for _, raw := range []interface{}{spec.Value, spec.Min, spec.Max} {
		if _, unit, ok := b.numeric(raw); ok && unit != "" {
			return unit
		}
	}
	return ""
}

// rawNumber returns the number of a raw filter value, ignoring any embedded unit
func (b *PropertyQueryBuilder) rawNumber(raw interface{}) (float64, bool) {
	value, _, ok := b.numeric(raw)
	return value, ok
}

func (b *PropertyQueryBuilder) numeric(raw interface{}) (float64, string, bool) {
	switch v := raw.(type) {
	case nil, bool:
		return 0, "", false
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, "", false
		}
		if f, err := cast.ToFloat64E(s); err == nil {
			return f, "", true
		}
		if q, ok := b.parser.Parse(s); ok {
			return q.Value, q.Unit, true
		}
		return 0, "", false
	default:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, "", false
		}
		return f, "", true
	}
}

// resolveAll looks up metadata for keys concurrently. Failed lookups are
// absent from the result; they are not errors.
func (b *PropertyQueryBuilder) resolveAll(ctx context.Context, keys []string) map[string]domain.PropertyMeta {
	out := make(map[string]domain.PropertyMeta, len(keys))
	if b.resolver == nil || len(keys) == 0 {
		return out
	}

	type lookup struct {
		meta domain.PropertyMeta
		ok   bool
	}
	results := make([]lookup, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			meta, err := b.resolver.Resolve(gctx, key)
			if err != nil {
				b.log.Debug("property metadata unavailable", "key", key, "error", err)
				return nil
			}
			results[i] = lookup{meta: meta, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	for i, key := range keys {
		if results[i].ok {
			out[key] = results[i].meta
		}
	}
	return out
}

// spread puts every leaf at both nesting levels: the record itself and any variant
func (b *PropertyQueryBuilder) spread(leaves []query.Node) []query.Node {
	out := make([]query.Node, 0, len(leaves)*2)
	for _, leaf := range leaves {
		out = append(out, leaf, query.ElemMatch(b.variantsPath(), leaf))
	}
	return out
}

func (b *PropertyQueryBuilder) rawPath(key string) query.Path {
	return query.NewPath(b.layout.PropertiesField, key)
}

func (b *PropertyQueryBuilder) normalizedPath(key string) query.Path {
	return query.NewPath(b.layout.PropertiesField, key, b.layout.NormalizedField)
}

func (b *PropertyQueryBuilder) variantsPath() query.Path {
	return query.NewPath(b.layout.VariantsField)
}

func (b *PropertyQueryBuilder) unitOr(unit, fallback string) string {
	if u := b.parser.CanonicalUnit(unit); u != "" {
		return u
	}
	return fallback
}
