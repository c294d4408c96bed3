package schema

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrSchemaMismatch is returned when a document does not conform to the
// declared schema: an undeclared metadata field, an incompatible value
// type, or an embedding whose length differs from the declared dims.
var ErrSchemaMismatch = errors.New("schema mismatch")

// Row is the flat representation of a document, ready to persist.
// Metadata values are normalized: ints and timestamps as int64, floats as
// float64, lists as []any, structs as map[string]any. Declared fields
// absent from the document are simply missing from Meta and persist as
// NULL columns.
type Row struct {
	ID        string
	Content   string
	Embedding []float32 // nil when the document has no embedding
	Meta      map[string]any
}

// ToRow validates a document's fields against the row schema and returns
// its normalized row. Fields outside the declared schema are rejected, not
// dropped.
func (rs *RowSchema) ToRow(id, content string, embedding []float32, meta map[string]any) (Row, error) {
	if embedding != nil && len(embedding) != rs.dims {
		return Row{}, fmt.Errorf("%w: embedding has %d dims, table expects %d", ErrSchemaMismatch, len(embedding), rs.dims)
	}

	normalized := make(map[string]any, len(meta))
	for name, value := range meta {
		typ, ok := rs.meta.Field(name)
		if !ok {
			return Row{}, fmt.Errorf("%w: metadata field %q is not declared", ErrSchemaMismatch, name)
		}
		nv, err := NormalizeValue(value, typ)
		if err != nil {
			return Row{}, fmt.Errorf("%w: field %q: %v", ErrSchemaMismatch, name, err)
		}
		normalized[name] = nv
	}

	var emb []float32
	if embedding != nil {
		emb = make([]float32, len(embedding))
		copy(emb, embedding)
	}
	return Row{ID: id, Content: content, Embedding: emb, Meta: normalized}, nil
}

// FromRow reconstructs the document fields from a row. It is the exact
// inverse of ToRow for any row that conforms to the schema.
func (rs *RowSchema) FromRow(row Row) (id, content string, embedding []float32, meta map[string]any, err error) {
	meta = make(map[string]any, len(row.Meta))
	for name, value := range row.Meta {
		typ, ok := rs.meta.Field(name)
		if !ok {
			return "", "", nil, nil, fmt.Errorf("%w: row carries undeclared field %q", ErrSchemaMismatch, name)
		}
		nv, nerr := NormalizeValue(value, typ)
		if nerr != nil {
			return "", "", nil, nil, fmt.Errorf("%w: field %q: %v", ErrSchemaMismatch, name, nerr)
		}
		meta[name] = nv
	}
	return row.ID, row.Content, row.Embedding, meta, nil
}

// NormalizeValue coerces value into the canonical Go representation of the
// declared type. It accepts the common lossless widenings (any Go integer
// for int fields, integral float64 for ints so JSON-decoded values pass,
// time.Time for timestamps) and rejects everything else.
func NormalizeValue(value any, typ FieldType) (any, error) {
	if value == nil {
		return nil, fmt.Errorf("null value (omit the field instead)")
	}
	switch typ.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return nil, typeError(value, typ)
		}
		return s, nil

	case KindInt:
		return normalizeInt(value, typ)

	case KindTimestamp:
		if t, ok := value.(time.Time); ok {
			return t.Unix(), nil
		}
		return normalizeInt(value, typ)

	case KindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		default:
			return nil, typeError(value, typ)
		}

	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, typeError(value, typ)
		}
		return b, nil

	case KindList:
		items, err := toAnySlice(value)
		if err != nil {
			return nil, typeError(value, typ)
		}
		out := make([]any, len(items))
		for i, item := range items {
			nv, err := NormalizeValue(item, *typ.Elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = nv
		}
		return out, nil

	case KindStruct:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, typeError(value, typ)
		}
		out := make(map[string]any, len(m))
		for name, sub := range m {
			subType, ok := Metadata(typ.Fields).Field(name)
			if !ok {
				return nil, fmt.Errorf("undeclared struct member %q", name)
			}
			nv, err := NormalizeValue(sub, subType)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", name, err)
			}
			out[name] = nv
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown kind %d", typ.Kind)
	}
}

func normalizeInt(value any, typ FieldType) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, typeError(value, typ)
		}
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, typeError(value, typ)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, typeError(value, typ)
		}
		return int64(v), nil
	default:
		return nil, typeError(value, typ)
	}
}

func toAnySlice(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	case []int64:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, nil
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a list")
	}
}

func typeError(value any, typ FieldType) error {
	return fmt.Errorf("value of type %T is not compatible with %s", value, typ.Kind)
}
