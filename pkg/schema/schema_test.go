package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func testMeta() Metadata {
	return Metadata{
		{Name: "name", Type: String()},
		{Name: "page_number", Type: Int()},
		{Name: "rating", Type: Float()},
		{Name: "published", Type: Bool()},
		{Name: "date", Type: Timestamp()},
		{Name: "topics", Type: List(String())},
		{Name: "author", Type: Struct(
			Field{Name: "name", Type: String()},
			Field{Name: "age", Type: Int()},
		)},
	}
}

func TestBuildRowSchema(t *testing.T) {
	tests := []struct {
		name    string
		meta    Metadata
		dims    int
		wantErr bool
	}{
		{name: "valid", meta: testMeta(), dims: 4},
		{name: "zero dims", meta: testMeta(), dims: 0, wantErr: true},
		{name: "negative dims", meta: testMeta(), dims: -1, wantErr: true},
		{name: "empty field name", meta: Metadata{{Name: "", Type: String()}}, dims: 2, wantErr: true},
		{name: "dotted field name", meta: Metadata{{Name: "a.b", Type: String()}}, dims: 2, wantErr: true},
		{name: "duplicate field", meta: Metadata{{Name: "a", Type: String()}, {Name: "a", Type: Int()}}, dims: 2, wantErr: true},
		{name: "list without elem", meta: Metadata{{Name: "a", Type: FieldType{Kind: KindList}}}, dims: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := BuildRowSchema(tt.meta, tt.dims)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidSchema) {
					t.Errorf("error = %v, want ErrInvalidSchema", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildRowSchema() error = %v", err)
			}
			if rs.EmbeddingDims() != tt.dims {
				t.Errorf("EmbeddingDims() = %d, want %d", rs.EmbeddingDims(), tt.dims)
			}
		})
	}
}

func TestMetaColumnsNamespaced(t *testing.T) {
	rs, err := BuildRowSchema(Metadata{{Name: "page", Type: Int()}}, 2)
	if err != nil {
		t.Fatal(err)
	}
	cols := rs.MetaColumns()
	if len(cols) != 1 || cols[0] != "meta.page" {
		t.Errorf("MetaColumns() = %v, want [meta.page]", cols)
	}
}

func TestToRowFromRowRoundTrip(t *testing.T) {
	rs, err := BuildRowSchema(testMeta(), 3)
	if err != nil {
		t.Fatal(err)
	}

	meta := map[string]any{
		"name":        "chapter one",
		"page_number": 42,
		"rating":      4.5,
		"published":   true,
		"date":        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		"topics":      []string{"history", "wales"},
		"author":      map[string]any{"name": "Alan", "age": 40},
	}
	row, err := rs.ToRow("doc-1", "some content", []float32{0.1, 0.2, 0.3}, meta)
	if err != nil {
		t.Fatalf("ToRow() error = %v", err)
	}

	id, content, embedding, gotMeta, err := rs.FromRow(row)
	if err != nil {
		t.Fatalf("FromRow() error = %v", err)
	}
	if id != "doc-1" || content != "some content" {
		t.Errorf("round trip id/content = %q/%q", id, content)
	}
	if !reflect.DeepEqual(embedding, []float32{0.1, 0.2, 0.3}) {
		t.Errorf("embedding = %v", embedding)
	}

	want := map[string]any{
		"name":        "chapter one",
		"page_number": int64(42),
		"rating":      4.5,
		"published":   true,
		"date":        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix(),
		"topics":      []any{"history", "wales"},
		"author":      map[string]any{"name": "Alan", "age": int64(40)},
	}
	if !reflect.DeepEqual(gotMeta, want) {
		t.Errorf("meta round trip = %#v, want %#v", gotMeta, want)
	}
}

func TestToRowRejects(t *testing.T) {
	rs, err := BuildRowSchema(testMeta(), 3)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		embedding []float32
		meta      map[string]any
	}{
		{name: "undeclared field", meta: map[string]any{"nope": 1}},
		{name: "wrong scalar type", meta: map[string]any{"name": 7}},
		{name: "non-integral int", meta: map[string]any{"page_number": 4.2}},
		{name: "null value", meta: map[string]any{"name": nil}},
		{name: "wrong list elem", meta: map[string]any{"topics": []any{"ok", 3}}},
		{name: "undeclared struct member", meta: map[string]any{"author": map[string]any{"email": "x"}}},
		{name: "short embedding", embedding: []float32{1, 2}},
		{name: "long embedding", embedding: []float32{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rs.ToRow("id", "content", tt.embedding, tt.meta)
			if !errors.Is(err, ErrSchemaMismatch) {
				t.Errorf("error = %v, want ErrSchemaMismatch", err)
			}
		})
	}
}

func TestToRowAbsentFieldsStayAbsent(t *testing.T) {
	rs, err := BuildRowSchema(testMeta(), 3)
	if err != nil {
		t.Fatal(err)
	}
	row, err := rs.ToRow("id", "content", nil, map[string]any{"name": "x"})
	if err != nil {
		t.Fatalf("ToRow() error = %v", err)
	}
	if row.Embedding != nil {
		t.Error("expected nil embedding")
	}
	if len(row.Meta) != 1 {
		t.Errorf("Meta = %v, want only name", row.Meta)
	}
}

func TestResolveField(t *testing.T) {
	rs, err := BuildRowSchema(testMeta(), 3)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path     string
		wantKind Kind
		wantSub  string
		wantErr  bool
	}{
		{path: "id", wantKind: KindString},
		{path: "content", wantKind: KindString},
		{path: "meta.page_number", wantKind: KindInt},
		{path: "meta.topics", wantKind: KindList},
		{path: "meta.author.name", wantKind: KindString, wantSub: "name"},
		{path: "meta.author.age", wantKind: KindInt, wantSub: "age"},
		{path: "embedding", wantErr: true},
		{path: "page_number", wantErr: true},
		{path: "meta.missing", wantErr: true},
		{path: "meta.author.email", wantErr: true},
		{path: "meta.name.sub", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			typ, sub, err := rs.ResolveField(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveField() error = %v", err)
			}
			if typ.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", typ.Kind, tt.wantKind)
			}
			if sub != tt.wantSub {
				t.Errorf("subpath = %q, want %q", sub, tt.wantSub)
			}
		})
	}
}

func TestMetadataJSONRoundTrip(t *testing.T) {
	meta := testMeta()
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Metadata
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.Equal(meta) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", decoded, meta)
	}
}

func TestMetadataJSONStableEncoding(t *testing.T) {
	meta := Metadata{
		{Name: "page_number", Type: Int()},
		{Name: "topics", Type: List(String())},
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"fields":[{"name":"page_number","type":"int"},{"name":"topics","type":"list","elem":{"type":"string"}}]}`
	if string(data) != want {
		t.Errorf("encoding = %s, want %s", data, want)
	}
}

func TestMetadataEqual(t *testing.T) {
	a := testMeta()
	b := testMeta()
	if !a.Equal(b) {
		t.Error("identical schemas reported unequal")
	}
	b[1].Type = Float()
	if a.Equal(b) {
		t.Error("different schemas reported equal")
	}
	if a.Equal(a[:3]) {
		t.Error("schemas of different length reported equal")
	}
}
