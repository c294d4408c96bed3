package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docuvec/docuvec/pkg/schema"
)

// Translate renders a filter expression as a native SQL predicate against
// the given row schema. Every referenced field must resolve to a declared
// metadata field (or the system id/content fields) and every operator must
// be valid for the field's type, otherwise ErrUnsupportedFilter is
// returned.
//
// String ordering is not supported: <, <=, >, >= apply to int, float and
// timestamp fields only.
func Translate(e *Expr, rs *schema.RowSchema) (string, error) {
	if e == nil {
		return "", fmt.Errorf("%w: nil expression", ErrUnsupportedFilter)
	}
	if e.IsLeaf() {
		return translateCmp(e, rs)
	}
	return translateLogic(e, rs)
}

func translateLogic(e *Expr, rs *schema.RowSchema) (string, error) {
	if len(e.Children) == 0 {
		return "", fmt.Errorf("%w: %s without conditions", ErrUnsupportedFilter, e.Logic)
	}
	raw := make([]string, len(e.Children))
	parts := make([]string, len(e.Children))
	for i, child := range e.Children {
		sql, err := Translate(child, rs)
		if err != nil {
			return "", err
		}
		raw[i] = sql
		parts[i] = "(" + sql + ")"
	}
	switch e.Logic {
	case LogicAnd:
		return strings.Join(parts, " AND "), nil
	case LogicOr:
		return strings.Join(parts, " OR "), nil
	case LogicNot:
		// NOT over several conditions negates their conjunction.
		if len(raw) == 1 {
			return "NOT (" + raw[0] + ")", nil
		}
		return "NOT (" + strings.Join(parts, " AND ") + ")", nil
	default:
		return "", fmt.Errorf("%w: unknown logic operator %q", ErrUnsupportedFilter, e.Logic)
	}
}

func translateCmp(e *Expr, rs *schema.RowSchema) (string, error) {
	typ, subpath, err := rs.ResolveField(e.Field)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFilter, err)
	}
	col := columnExpr(e.Field, subpath)

	switch e.Op {
	case OpEq, OpNe:
		if !typ.IsScalar() {
			return "", opError(e, typ)
		}
		if e.Value == nil {
			if e.Op == OpEq {
				return col + " IS NULL", nil
			}
			return col + " IS NOT NULL", nil
		}
		lit, err := literal(e.Value, typ)
		if err != nil {
			return "", fmt.Errorf("%w: field %q: %v", ErrUnsupportedFilter, e.Field, err)
		}
		if e.Op == OpEq {
			return col + " = " + lit, nil
		}
		return col + " != " + lit, nil

	case OpGt, OpGte, OpLt, OpLte:
		switch typ.Kind {
		case schema.KindInt, schema.KindFloat, schema.KindTimestamp:
		default:
			return "", opError(e, typ)
		}
		lit, err := literal(e.Value, typ)
		if err != nil {
			return "", fmt.Errorf("%w: field %q: %v", ErrUnsupportedFilter, e.Field, err)
		}
		return col + " " + string(e.Op) + " " + lit, nil

	case OpIn:
		if !typ.IsScalar() {
			return "", opError(e, typ)
		}
		items, err := valueList(e.Value)
		if err != nil {
			return "", fmt.Errorf("%w: field %q: 'in' requires a non-empty list", ErrUnsupportedFilter, e.Field)
		}
		lits := make([]string, len(items))
		for i, item := range items {
			lit, err := literal(item, typ)
			if err != nil {
				return "", fmt.Errorf("%w: field %q: %v", ErrUnsupportedFilter, e.Field, err)
			}
			lits[i] = lit
		}
		return col + " IN (" + strings.Join(lits, ", ") + ")", nil

	case OpContains:
		if typ.Kind != schema.KindList || !typ.Elem.IsScalar() {
			return "", opError(e, typ)
		}
		lit, err := literal(e.Value, *typ.Elem)
		if err != nil {
			return "", fmt.Errorf("%w: field %q: %v", ErrUnsupportedFilter, e.Field, err)
		}
		return "EXISTS (SELECT 1 FROM json_each(" + col + ") WHERE json_each.value = " + lit + ")", nil

	default:
		return "", fmt.Errorf("%w: unknown operator %q", ErrUnsupportedFilter, e.Op)
	}
}

// columnExpr renders the SQL expression addressing a field: the quoted
// column for whole-column references, a json_extract for struct members.
func columnExpr(path, subpath string) string {
	if subpath == "" {
		return quoteIdent(path)
	}
	col := strings.TrimSuffix(path, "."+subpath)
	return "json_extract(" + quoteIdent(col) + ", '$." + subpath + "')"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func literal(value any, typ schema.FieldType) (string, error) {
	nv, err := schema.NormalizeValue(value, typ)
	if err != nil {
		return "", err
	}
	switch v := nv.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("value of type %T cannot be rendered as a literal", nv)
	}
}

func valueList(value any) ([]any, error) {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	case []int:
		items = make([]any, len(v))
		for i, n := range v {
			items[i] = n
		}
	case []int64:
		items = make([]any, len(v))
		for i, n := range v {
			items[i] = n
		}
	case []float64:
		items = make([]any, len(v))
		for i, f := range v {
			items[i] = f
		}
	default:
		return nil, fmt.Errorf("not a list")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return items, nil
}

func opError(e *Expr, typ schema.FieldType) error {
	return fmt.Errorf("%w: operator %q is not valid for %s field %q", ErrUnsupportedFilter, e.Op, typ.Kind, e.Field)
}
