package docstore

import "testing"

func TestDocumentIDDeterministic(t *testing.T) {
	meta := map[string]any{"name": "x", "page_number": 3}
	a := DocumentID("some content", meta)
	b := DocumentID("some content", map[string]any{"page_number": 3, "name": "x"})
	if a != b {
		t.Errorf("identical documents produced different identifiers: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("identifier length = %d, want 64 hex chars", len(a))
	}
}

func TestDocumentIDDistinct(t *testing.T) {
	base := DocumentID("some content", map[string]any{"name": "x"})
	tests := []struct {
		name    string
		content string
		meta    map[string]any
	}{
		{name: "different content", content: "other content", meta: map[string]any{"name": "x"}},
		{name: "different meta value", content: "some content", meta: map[string]any{"name": "y"}},
		{name: "extra meta field", content: "some content", meta: map[string]any{"name": "x", "page_number": 1}},
		{name: "no meta", content: "some content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DocumentID(tt.content, tt.meta); got == base {
				t.Error("expected a distinct identifier")
			}
		})
	}
}
