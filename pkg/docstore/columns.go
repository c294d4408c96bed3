package docstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docuvec/docuvec/internal/encoding"
	"github.com/docuvec/docuvec/pkg/schema"
)

// selectColumns returns the quoted column list in the fixed scan order:
// id, content, embedding, then the metadata columns in declared order.
func (s *Store) selectColumns(prefix string) string {
	names := append([]string{schema.ColID, schema.ColContent, schema.ColEmbedding}, s.row.MetaColumns()...)
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = prefix + quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// rowArgs renders a normalized row as driver arguments in selectColumns
// order. Absent metadata fields and a missing embedding bind as NULL.
func (s *Store) rowArgs(row schema.Row) ([]any, error) {
	args := make([]any, 0, 3+len(s.row.Metadata()))
	args = append(args, row.ID, row.Content)

	if row.Embedding == nil {
		args = append(args, nil)
	} else {
		blob, err := encoding.EncodeVector(row.Embedding)
		if err != nil {
			return nil, err
		}
		args = append(args, blob)
	}

	for _, f := range s.row.Metadata() {
		value, ok := row.Meta[f.Name]
		if !ok {
			args = append(args, nil)
			continue
		}
		arg, err := encodeColumnValue(value, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		args = append(args, arg)
	}
	return args, nil
}

// encodeColumnValue maps a normalized metadata value onto its column
// representation: scalars bind directly (bools as 0/1), lists and structs
// as JSON text.
func encodeColumnValue(value any, t schema.FieldType) (any, error) {
	switch t.Kind {
	case schema.KindString:
		return value, nil
	case schema.KindInt, schema.KindTimestamp:
		return value, nil
	case schema.KindFloat:
		return value, nil
	case schema.KindBool:
		if value.(bool) {
			return int64(1), nil
		}
		return int64(0), nil
	case schema.KindList, schema.KindStruct:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s value: %w", t.Kind, err)
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("unsupported column kind %d", t.Kind)
	}
}

// decodeColumnValue maps a scanned column value back into the normalized
// metadata representation. A NULL column means the field is absent.
func decodeColumnValue(raw any, t schema.FieldType) (value any, present bool, err error) {
	if raw == nil {
		return nil, false, nil
	}
	switch t.Kind {
	case schema.KindString:
		s, err := asString(raw)
		return s, true, err
	case schema.KindInt, schema.KindTimestamp:
		n, ok := raw.(int64)
		if !ok {
			return nil, false, fmt.Errorf("column holds %T, expected integer", raw)
		}
		return n, true, nil
	case schema.KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, true, nil
		case int64:
			return float64(v), true, nil
		}
		return nil, false, fmt.Errorf("column holds %T, expected float", raw)
	case schema.KindBool:
		switch v := raw.(type) {
		case int64:
			return v != 0, true, nil
		case bool:
			return v, true, nil
		}
		return nil, false, fmt.Errorf("column holds %T, expected bool", raw)
	case schema.KindList, schema.KindStruct:
		text, err := asString(raw)
		if err != nil {
			return nil, false, err
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil, false, fmt.Errorf("failed to decode %s value: %w", t.Kind, err)
		}
		// Re-normalize so JSON numbers land back in their declared types.
		nv, err := schema.NormalizeValue(decoded, t)
		if err != nil {
			return nil, false, err
		}
		return nv, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported column kind %d", t.Kind)
	}
}

func asString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("column holds %T, expected text", raw)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one result row in selectColumns order. When withRank
// is true an extra trailing rank column is scanned and returned.
func (s *Store) scanDocument(sc rowScanner, withRank bool) (Document, float64, error) {
	meta := s.row.Metadata()

	var (
		id       string
		content  string
		embBytes []byte
		rank     float64
	)
	raws := make([]any, len(meta))
	dest := []any{&id, &content, &embBytes}
	for i := range raws {
		dest = append(dest, &raws[i])
	}
	if withRank {
		dest = append(dest, &rank)
	}
	if err := sc.Scan(dest...); err != nil {
		return Document{}, 0, err
	}

	var emb []float32
	if embBytes != nil {
		vec, err := encoding.DecodeVector(embBytes)
		if err != nil {
			return Document{}, 0, fmt.Errorf("document %q: corrupt embedding: %w", id, err)
		}
		emb = vec
	}

	metaValues := make(map[string]any, len(meta))
	for i, f := range meta {
		value, present, err := decodeColumnValue(raws[i], f.Type)
		if err != nil {
			return Document{}, 0, fmt.Errorf("document %q: field %q: %w", id, f.Name, err)
		}
		if present {
			metaValues[f.Name] = value
		}
	}

	return Document{ID: id, Content: content, Meta: metaValues, Embedding: emb}, rank, nil
}

// collectDocuments drains a result set into documents.
func (s *Store) collectDocuments(rows *sql.Rows) ([]Document, error) {
	var docs []Document
	for rows.Next() {
		doc, _, err := s.scanDocument(rows, false)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
