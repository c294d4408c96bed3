package schema

import (
	"encoding/json"
	"fmt"
)

// The JSON encoding of a declared schema is what gets persisted alongside
// the table, so it must stay stable:
//
//	{"fields":[
//	  {"name":"page_number","type":"int"},
//	  {"name":"topics","type":"list","elem":{"type":"string"}},
//	  {"name":"author","type":"struct","fields":[{"name":"name","type":"string"}]}
//	]}

type fieldJSON struct {
	Name string `json:"name"`
	typeJSON
}

type typeJSON struct {
	Type   string      `json:"type"`
	Elem   *typeJSON   `json:"elem,omitempty"`
	Fields []fieldJSON `json:"fields,omitempty"`
}

type metadataJSON struct {
	Fields []fieldJSON `json:"fields"`
}

func toTypeJSON(t FieldType) typeJSON {
	out := typeJSON{Type: t.Kind.String()}
	if t.Kind == KindList {
		elem := toTypeJSON(*t.Elem)
		out.Elem = &elem
	}
	if t.Kind == KindStruct {
		out.Fields = make([]fieldJSON, len(t.Fields))
		for i, f := range t.Fields {
			out.Fields[i] = fieldJSON{Name: f.Name, typeJSON: toTypeJSON(f.Type)}
		}
	}
	return out
}

func fromTypeJSON(t typeJSON) (FieldType, error) {
	switch t.Type {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "timestamp":
		return Timestamp(), nil
	case "list":
		if t.Elem == nil {
			return FieldType{}, fmt.Errorf("%w: list type without elem", ErrInvalidSchema)
		}
		elem, err := fromTypeJSON(*t.Elem)
		if err != nil {
			return FieldType{}, err
		}
		return List(elem), nil
	case "struct":
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			ft, err := fromTypeJSON(f.typeJSON)
			if err != nil {
				return FieldType{}, err
			}
			fields[i] = Field{Name: f.Name, Type: ft}
		}
		return Struct(fields...), nil
	default:
		return FieldType{}, fmt.Errorf("%w: unknown type %q", ErrInvalidSchema, t.Type)
	}
}

// MarshalJSON encodes the declared schema in its persistent form.
func (m Metadata) MarshalJSON() ([]byte, error) {
	enc := metadataJSON{Fields: make([]fieldJSON, len(m))}
	for i, f := range m {
		enc.Fields[i] = fieldJSON{Name: f.Name, typeJSON: toTypeJSON(f.Type)}
	}
	return json.Marshal(enc)
}

// UnmarshalJSON decodes the persistent schema form.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var dec metadataJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	out := make(Metadata, len(dec.Fields))
	for i, f := range dec.Fields {
		ft, err := fromTypeJSON(f.typeJSON)
		if err != nil {
			return err
		}
		out[i] = Field{Name: f.Name, Type: ft}
	}
	*m = out
	return nil
}
