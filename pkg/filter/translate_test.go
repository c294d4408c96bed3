package filter

import (
	"errors"
	"testing"

	"github.com/docuvec/docuvec/pkg/schema"
)

func testRowSchema(t *testing.T) *schema.RowSchema {
	t.Helper()
	rs, err := schema.BuildRowSchema(schema.Metadata{
		{Name: "name", Type: schema.String()},
		{Name: "page_number", Type: schema.Int()},
		{Name: "rating", Type: schema.Float()},
		{Name: "published", Type: schema.Bool()},
		{Name: "date", Type: schema.Timestamp()},
		{Name: "topics", Type: schema.List(schema.String())},
		{Name: "author", Type: schema.Struct(
			schema.Field{Name: "name", Type: schema.String()},
			schema.Field{Name: "age", Type: schema.Int()},
		)},
	}, 2)
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		expr *Expr
		want string
	}{
		{
			name: "int comparison",
			expr: Cmp("meta.page_number", OpGt, 5),
			want: `"meta.page_number" > 5`,
		},
		{
			name: "string equality with escaping",
			expr: Cmp("meta.name", OpEq, "O'Brien"),
			want: `"meta.name" = 'O''Brien'`,
		},
		{
			name: "system field",
			expr: Cmp("content", OpNe, "x"),
			want: `"content" != 'x'`,
		},
		{
			name: "bool equality",
			expr: Cmp("meta.published", OpEq, true),
			want: `"meta.published" = 1`,
		},
		{
			name: "float comparison",
			expr: Cmp("meta.rating", OpLte, 4.5),
			want: `"meta.rating" <= 4.5`,
		},
		{
			name: "null equality",
			expr: Cmp("meta.name", OpEq, nil),
			want: `"meta.name" IS NULL`,
		},
		{
			name: "null inequality",
			expr: Cmp("meta.name", OpNe, nil),
			want: `"meta.name" IS NOT NULL`,
		},
		{
			name: "in list",
			expr: Cmp("meta.name", OpIn, []string{"economy", "politics"}),
			want: `"meta.name" IN ('economy', 'politics')`,
		},
		{
			name: "contains on list field",
			expr: Cmp("meta.topics", OpContains, "history"),
			want: `EXISTS (SELECT 1 FROM json_each("meta.topics") WHERE json_each.value = 'history')`,
		},
		{
			name: "struct member",
			expr: Cmp("meta.author.age", OpGte, 30),
			want: `json_extract("meta.author", '$.age') >= 30`,
		},
		{
			name: "and combination",
			expr: And(
				Cmp("meta.page_number", OpGt, 5),
				Cmp("meta.topics", OpContains, "history"),
			),
			want: `("meta.page_number" > 5) AND (EXISTS (SELECT 1 FROM json_each("meta.topics") WHERE json_each.value = 'history'))`,
		},
		{
			name: "or combination",
			expr: Or(
				Cmp("meta.name", OpEq, "a"),
				Cmp("meta.name", OpEq, "b"),
			),
			want: `("meta.name" = 'a') OR ("meta.name" = 'b')`,
		},
		{
			name: "not single condition",
			expr: Not(Cmp("meta.page_number", OpEq, 100)),
			want: `NOT ("meta.page_number" = 100)`,
		},
		{
			name: "not over conjunction",
			expr: Not(
				Cmp("meta.page_number", OpEq, 100),
				Cmp("meta.name", OpEq, "name_0"),
			),
			want: `NOT (("meta.page_number" = 100) AND ("meta.name" = 'name_0'))`,
		},
		{
			name: "nested logic",
			expr: And(
				Cmp("meta.date", OpGte, 1420066800),
				Or(
					Cmp("meta.name", OpIn, []string{"x"}),
					Cmp("meta.rating", OpGt, 3),
				),
			),
			want: `("meta.date" >= 1420066800) AND (("meta.name" IN ('x')) OR ("meta.rating" > 3))`,
		},
	}

	rs := testRowSchema(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate(tt.expr, rs)
			if err != nil {
				t.Fatalf("Translate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Translate() =\n %s\nwant\n %s", got, tt.want)
			}
		})
	}
}

func TestTranslateUnsupported(t *testing.T) {
	tests := []struct {
		name string
		expr *Expr
	}{
		{name: "ordering on string", expr: Cmp("meta.name", OpGt, "a")},
		{name: "ordering on system string", expr: Cmp("content", OpLt, "a")},
		{name: "ordering on bool", expr: Cmp("meta.published", OpGt, true)},
		{name: "ordering on list", expr: Cmp("meta.topics", OpGt, "a")},
		{name: "equality on list", expr: Cmp("meta.topics", OpEq, "a")},
		{name: "equality on struct", expr: Cmp("meta.author", OpEq, "a")},
		{name: "contains on scalar", expr: Cmp("meta.name", OpContains, "a")},
		{name: "in without list", expr: Cmp("meta.name", OpIn, "a")},
		{name: "in with empty list", expr: Cmp("meta.name", OpIn, []string{})},
		{name: "in with wrong elem type", expr: Cmp("meta.page_number", OpIn, []string{"a"})},
		{name: "unknown field", expr: Cmp("meta.missing", OpEq, "a")},
		{name: "embedding not filterable", expr: Cmp("embedding", OpEq, "a")},
		{name: "value type mismatch", expr: Cmp("meta.page_number", OpEq, "five")},
		{name: "logic without conditions", expr: And()},
		{name: "nil expression", expr: nil},
	}

	rs := testRowSchema(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(tt.expr, rs)
			if !errors.Is(err, ErrUnsupportedFilter) {
				t.Errorf("error = %v, want ErrUnsupportedFilter", err)
			}
		})
	}
}
