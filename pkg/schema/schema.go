// Package schema models the declared metadata schema of a document table
// and the mapping between documents and flat table rows.
//
// A table row always carries the three system columns (id, content,
// embedding) plus one column per declared metadata field. Metadata columns
// live under the "meta." namespace so they can never collide with system
// columns. The declared schema is fixed for the lifetime of a table.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// System column names.
const (
	ColID        = "id"
	ColContent   = "content"
	ColEmbedding = "embedding"

	// MetaPrefix namespaces metadata columns, e.g. "meta.page_number".
	MetaPrefix = "meta."
)

// ErrInvalidSchema is returned when a declared schema cannot form a row schema.
var ErrInvalidSchema = errors.New("invalid schema")

// Kind identifies a metadata value type.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	// KindTimestamp is an instant stored as Unix seconds (int64).
	KindTimestamp
	KindList
	KindStruct
)

// String returns the kind name as used in the JSON/YAML schema encodings.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	default:
		return "invalid"
	}
}

// FieldType is a closed description of a metadata value type: a primitive,
// a list of a FieldType, or a struct of named FieldTypes.
type FieldType struct {
	Kind   Kind
	Elem   *FieldType // set when Kind == KindList
	Fields []Field    // set when Kind == KindStruct
}

// Field is a named, typed metadata field.
type Field struct {
	Name string
	Type FieldType
}

// Primitive constructors.
func String() FieldType    { return FieldType{Kind: KindString} }
func Int() FieldType       { return FieldType{Kind: KindInt} }
func Float() FieldType     { return FieldType{Kind: KindFloat} }
func Bool() FieldType      { return FieldType{Kind: KindBool} }
func Timestamp() FieldType { return FieldType{Kind: KindTimestamp} }

// List returns a list type with the given element type.
func List(elem FieldType) FieldType {
	return FieldType{Kind: KindList, Elem: &elem}
}

// Struct returns a struct type with the given fields.
func Struct(fields ...Field) FieldType {
	return FieldType{Kind: KindStruct, Fields: fields}
}

// IsScalar reports whether the type is a single comparable value.
func (t FieldType) IsScalar() bool {
	switch t.Kind {
	case KindString, KindInt, KindFloat, KindBool, KindTimestamp:
		return true
	}
	return false
}

// Equal reports structural equality of two field types.
func (t FieldType) Equal(other FieldType) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindList:
		return t.Elem.Equal(*other.Elem)
	case KindStruct:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if f.Name != other.Fields[i].Name || !f.Type.Equal(other.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	return true
}

func (t FieldType) validate() error {
	switch t.Kind {
	case KindString, KindInt, KindFloat, KindBool, KindTimestamp:
		return nil
	case KindList:
		if t.Elem == nil {
			return fmt.Errorf("%w: list type without element type", ErrInvalidSchema)
		}
		return t.Elem.validate()
	case KindStruct:
		seen := make(map[string]struct{}, len(t.Fields))
		for _, f := range t.Fields {
			if f.Name == "" {
				return fmt.Errorf("%w: struct field without name", ErrInvalidSchema)
			}
			if _, dup := seen[f.Name]; dup {
				return fmt.Errorf("%w: duplicate struct field %q", ErrInvalidSchema, f.Name)
			}
			seen[f.Name] = struct{}{}
			if err := f.Type.validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidSchema, t.Kind)
	}
}

// Metadata is the declared metadata schema: an ordered list of fields.
type Metadata []Field

// Field returns the declared type of name.
func (m Metadata) Field(name string) (FieldType, bool) {
	for _, f := range m {
		if f.Name == name {
			return f.Type, true
		}
	}
	return FieldType{}, false
}

// Equal reports whether two declared schemas are identical, including order.
func (m Metadata) Equal(other Metadata) bool {
	if len(m) != len(other) {
		return false
	}
	for i, f := range m {
		if f.Name != other[i].Name || !f.Type.Equal(other[i].Type) {
			return false
		}
	}
	return true
}

// RowSchema is the merged flat row layout: system columns plus one column
// per declared metadata field.
type RowSchema struct {
	meta Metadata
	dims int
}

// BuildRowSchema merges the system columns with the declared metadata
// fields. embeddingDims must be positive; metadata field names must be
// unique, non-empty and must not contain the "." namespace separator.
func BuildRowSchema(meta Metadata, embeddingDims int) (*RowSchema, error) {
	if embeddingDims <= 0 {
		return nil, fmt.Errorf("%w: embedding dims must be positive, got %d", ErrInvalidSchema, embeddingDims)
	}
	seen := make(map[string]struct{}, len(meta))
	for _, f := range meta {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: metadata field without name", ErrInvalidSchema)
		}
		if strings.Contains(f.Name, ".") {
			return nil, fmt.Errorf("%w: metadata field %q must not contain '.'", ErrInvalidSchema, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate metadata field %q", ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = struct{}{}
		if err := f.Type.validate(); err != nil {
			return nil, err
		}
	}
	cp := make(Metadata, len(meta))
	copy(cp, meta)
	return &RowSchema{meta: cp, dims: embeddingDims}, nil
}

// Metadata returns the declared metadata schema.
func (rs *RowSchema) Metadata() Metadata { return rs.meta }

// EmbeddingDims returns the fixed embedding vector length.
func (rs *RowSchema) EmbeddingDims() int { return rs.dims }

// MetaColumns returns the namespaced metadata column names in declared order.
func (rs *RowSchema) MetaColumns() []string {
	cols := make([]string, len(rs.meta))
	for i, f := range rs.meta {
		cols[i] = MetaPrefix + f.Name
	}
	return cols
}

// ResolveField resolves a filter field path against the row schema.
// Accepted paths: the system fields "id" and "content" (typed as strings),
// a metadata column "meta.<name>", or a struct member path
// "meta.<name>.<member>...". The second return value is the remaining path
// inside the column (empty for whole-column references).
func (rs *RowSchema) ResolveField(path string) (FieldType, string, error) {
	switch path {
	case ColID, ColContent:
		return String(), "", nil
	case ColEmbedding:
		return FieldType{}, "", fmt.Errorf("%w: field %q is not filterable", ErrInvalidSchema, path)
	}
	if !strings.HasPrefix(path, MetaPrefix) {
		return FieldType{}, "", fmt.Errorf("%w: unknown field %q", ErrInvalidSchema, path)
	}
	rest := strings.TrimPrefix(path, MetaPrefix)
	parts := strings.Split(rest, ".")
	typ, ok := rs.meta.Field(parts[0])
	if !ok {
		return FieldType{}, "", fmt.Errorf("%w: metadata field %q is not declared", ErrInvalidSchema, parts[0])
	}
	for _, part := range parts[1:] {
		if typ.Kind != KindStruct {
			return FieldType{}, "", fmt.Errorf("%w: field %q has no member %q", ErrInvalidSchema, path, part)
		}
		sub, ok := Metadata(typ.Fields).Field(part)
		if !ok {
			return FieldType{}, "", fmt.Errorf("%w: field %q has no member %q", ErrInvalidSchema, path, part)
		}
		typ = sub
	}
	return typ, strings.Join(parts[1:], "."), nil
}
