package http

import (
	"encoding/json"

	"github.com/buildledger/unitfilter/internal/infrastructure/mongostore"
	"github.com/buildledger/unitfilter/internal/infrastructure/sqlstore"
	"github.com/buildledger/unitfilter/internal/query"
)

// Render targets accepted by GET /products/query
const (
	TargetTree     = "tree"
	TargetMongo    = "mongo"
	TargetPostgres = "postgres"
)

// Renderer turns a predicate into a JSON-encodable value for one store
type Renderer func(query.Node) (interface{}, error)

// DefaultRenderers returns every built-in render target
func DefaultRenderers() map[string]Renderer {
	return map[string]Renderer{
		TargetTree:     RenderTree,
		TargetMongo:    RenderMongo,
		TargetPostgres: RenderPostgres,
	}
}

// RenderTree returns the predicate tree itself
func RenderTree(n query.Node) (interface{}, error) {
	return n, nil
}

// RenderMongo returns the filter document as relaxed extended JSON
func RenderMongo(n query.Node) (interface{}, error) {
	doc, err := mongostore.RenderExtJSON(n)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(doc), nil
}

// RenderPostgres returns the WHERE fragment with its jsonpath and variables
func RenderPostgres(n query.Node) (interface{}, error) {
	f, err := sqlstore.RenderPath(n)
	if err != nil {
		return nil, err
	}
	if f.Path == "" {
		return map[string]interface{}{"where": nil}, nil
	}
	return map[string]interface{}{
		"where": f.SQL(sqlstore.DocumentColumn),
		"path":  f.Path,
		"vars":  f.Vars,
	}, nil
}
