// Package mongostore binds product predicates to MongoDB.
package mongostore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/query"
)

// Render converts a predicate tree into a MongoDB filter document
func Render(n query.Node) (bson.D, error) {
	switch n.Kind {
	case query.KindMatchAll:
		return bson.D{}, nil

	case query.KindAnd, query.KindOr:
		op := "$and"
		if n.Kind == query.KindOr {
			op = "$or"
		}
		children := make(bson.A, 0, len(n.Children))
		for _, c := range n.Children {
			doc, err := Render(c)
			if err != nil {
				return nil, err
			}
			children = append(children, doc)
		}
		return bson.D{{Key: op, Value: children}}, nil

	case query.KindEquals:
		field, err := fieldName(n.Path)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: field, Value: n.Value}}, nil

	case query.KindRange:
		field, err := fieldName(n.Path)
		if err != nil {
			return nil, err
		}
		bounds := bson.D{}
		if n.Min != nil {
			bounds = append(bounds, bson.E{Key: "$gte", Value: *n.Min})
		}
		if n.Max != nil {
			bounds = append(bounds, bson.E{Key: "$lte", Value: *n.Max})
		}
		if len(bounds) == 0 {
			// Unbounded range still requires a numeric field
			bounds = bson.D{{Key: "$type", Value: "number"}}
		}
		return bson.D{{Key: field, Value: bounds}}, nil

	case query.KindElemMatch:
		field, err := fieldName(n.Path)
		if err != nil {
			return nil, err
		}
		if n.Elem == nil {
			return nil, fmt.Errorf("%w: elem match on %q has no element predicate", domain.ErrInvalidFilter, field)
		}
		elem, err := Render(*n.Elem)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: field, Value: bson.D{{Key: "$elemMatch", Value: elem}}}}, nil
	}
	return nil, fmt.Errorf("%w: unsupported predicate kind %s", domain.ErrInvalidFilter, n.Kind)
}

// RenderExtJSON renders n as relaxed Extended JSON, as shown by mongosh
func RenderExtJSON(n query.Node) (string, error) {
	doc, err := Render(n)
	if err != nil {
		return "", err
	}
	raw, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func fieldName(p query.Path) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("%w: invalid field path %q", domain.ErrInvalidFilter, p.Dotted())
	}
	return p.Dotted(), nil
}
