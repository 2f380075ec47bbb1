// Package sqlstore persists the unit catalog, property definitions and products
// through gorm. Products are stored as JSON documents; on PostgreSQL predicates
// run in the database as SQL/JSON path expressions.
package sqlstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/buildledger/unitfilter/internal/domain"
	"github.com/buildledger/unitfilter/internal/query"
)

// DocumentColumn is the JSONB column holding product documents
const DocumentColumn = "document"

// PathFilter is a predicate rendered as a PostgreSQL jsonpath filter with its
// named variables ($v0, $v1, ...)
type PathFilter struct {
	Path string                 `json:"path"`
	Vars map[string]interface{} `json:"vars"`
}

// Expr wraps the filter in jsonb_path_exists over column
func (f PathFilter) Expr(column string) clause.Expr {
	return clause.Expr{
		SQL:  "jsonb_path_exists(" + column + ", ?::jsonpath, ?::jsonb)",
		Vars: []interface{}{f.Path, varsJSON(f.Vars)},
	}
}

// SQL renders the WHERE fragment with placeholders, for display
func (f PathFilter) SQL(column string) string {
	return "jsonb_path_exists(" + column + ", $1::jsonpath, $2::jsonb)"
}

// RenderPath converts a predicate into a jsonpath filter. MatchAll yields an
// empty Path, meaning no WHERE clause is needed.
func RenderPath(n query.Node) (PathFilter, error) {
	if n.IsMatchAll() {
		return PathFilter{Vars: map[string]interface{}{}}, nil
	}
	r := &pathRenderer{vars: map[string]interface{}{}}
	cond, err := r.condition(n)
	if err != nil {
		return PathFilter{}, err
	}
	return PathFilter{Path: "$ ? (" + cond + ")", Vars: r.vars}, nil
}

// Render converts a predicate into a WHERE expression over the document column
func Render(n query.Node) (clause.Expr, error) {
	f, err := RenderPath(n)
	if err != nil {
		return clause.Expr{}, err
	}
	if f.Path == "" {
		return clause.Expr{SQL: "1 = 1"}, nil
	}
	return f.Expr(DocumentColumn), nil
}

type pathRenderer struct {
	vars map[string]interface{}
}

func (r *pathRenderer) bind(v interface{}) string {
	name := fmt.Sprintf("v%d", len(r.vars))
	r.vars[name] = v
	return "$" + name
}

func (r *pathRenderer) condition(n query.Node) (string, error) {
	switch n.Kind {
	case query.KindMatchAll:
		return "true", nil

	case query.KindAnd, query.KindOr:
		op := " && "
		if n.Kind == query.KindOr {
			op = " || "
		}
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			part, err := r.condition(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			if n.Kind == query.KindAnd {
				return "true", nil
			}
			return "false", nil
		}
		return "(" + strings.Join(parts, op) + ")", nil

	case query.KindEquals:
		accessor, err := memberAccessor(n.Path)
		if err != nil {
			return "", err
		}
		if n.Value == nil {
			return accessor + " == null", nil
		}
		return accessor + " == " + r.bind(n.Value), nil

	case query.KindRange:
		accessor, err := memberAccessor(n.Path)
		if err != nil {
			return "", err
		}
		var parts []string
		if n.Min != nil {
			parts = append(parts, accessor+" >= "+r.bind(*n.Min))
		}
		if n.Max != nil {
			parts = append(parts, accessor+" <= "+r.bind(*n.Max))
		}
		if len(parts) == 0 {
			return accessor + `.type() == "number"`, nil
		}
		return "(" + strings.Join(parts, " && ") + ")", nil

	case query.KindElemMatch:
		accessor, err := memberAccessor(n.Path)
		if err != nil {
			return "", err
		}
		if n.Elem == nil {
			return "", fmt.Errorf("%w: elem match on %q has no element predicate", domain.ErrInvalidFilter, n.Path.Dotted())
		}
		elem, err := r.condition(*n.Elem)
		if err != nil {
			return "", err
		}
		return "exists(" + accessor + "[*] ? (" + elem + "))", nil
	}
	return "", fmt.Errorf("%w: unsupported predicate kind %s", domain.ErrInvalidFilter, n.Kind)
}

// memberAccessor renders @."a"."b" with every key quoted
func memberAccessor(p query.Path) (string, error) {
	if !p.Valid() {
		return "", fmt.Errorf("%w: invalid field path %q", domain.ErrInvalidFilter, p.Dotted())
	}
	var b strings.Builder
	b.WriteString("@")
	for _, seg := range p {
		b.WriteString(".")
		b.WriteString(quoteKey(seg))
	}
	return b.String(), nil
}

func quoteKey(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func varsJSON(vars map[string]interface{}) string {
	if len(vars) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(vars)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
