package docstore

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docuvec/docuvec/pkg/filter"
	"github.com/docuvec/docuvec/pkg/schema"
)

func ftsTablePrefix(table string) string {
	return table + "__fts__"
}

func (s *Store) ftsTableName(field string) string {
	return ftsTablePrefix(s.cfg.Table) + strings.ReplaceAll(field, ".", "_")
}

// textIndexField validates that field names a text-indexable column: the
// content system field or a string-typed metadata column.
func (s *Store) textIndexField(field string) error {
	if field == schema.ColContent {
		return nil
	}
	typ, subpath, err := s.row.ResolveField(field)
	if err != nil {
		return err
	}
	if subpath != "" || typ.Kind != schema.KindString {
		return fmt.Errorf("field %q is not a string column", field)
	}
	return nil
}

// CreateTextIndex builds the engine's full-text index over a text column
// and backfills it with the existing rows. Triggers keep the index in
// sync with subsequent writes and deletes. Creating an index that already
// exists is a no-op.
func (s *Store) CreateTextIndex(ctx context.Context, field string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("create_text_index"); err != nil {
		return err
	}
	if err := s.textIndexField(field); err != nil {
		return wrapErr("create_text_index", err)
	}

	ftsName := s.ftsTableName(field)
	exists, err := s.tableExists(ctx, ftsName)
	if err != nil {
		return wrapErr("create_text_index", err)
	}
	if exists {
		return nil
	}

	table := quoteIdent(s.cfg.Table)
	fts := quoteIdent(ftsName)
	col := quoteIdent(field)

	ddl := fmt.Sprintf(`
	CREATE VIRTUAL TABLE %[1]s USING fts5(body);

	CREATE TRIGGER %[3]s AFTER INSERT ON %[2]s BEGIN
	  INSERT INTO %[1]s(rowid, body) VALUES (new.rowid, new.%[4]s);
	END;
	CREATE TRIGGER %[5]s AFTER DELETE ON %[2]s BEGIN
	  DELETE FROM %[1]s WHERE rowid = old.rowid;
	END;
	CREATE TRIGGER %[6]s AFTER UPDATE ON %[2]s BEGIN
	  DELETE FROM %[1]s WHERE rowid = old.rowid;
	  INSERT INTO %[1]s(rowid, body) VALUES (new.rowid, new.%[4]s);
	END;
	`,
		fts, table,
		quoteIdent(ftsName+"_ai"),
		col,
		quoteIdent(ftsName+"_ad"),
		quoteIdent(ftsName+"_au"),
	)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return wrapErr("create_text_index", fmt.Errorf("failed to create text index: %w", err))
	}

	backfill := fmt.Sprintf("INSERT INTO %s(rowid, body) SELECT rowid, %s FROM %s WHERE %s IS NOT NULL",
		fts, col, table, col)
	if _, err := s.db.ExecContext(ctx, backfill); err != nil {
		return wrapErr("create_text_index", fmt.Errorf("failed to backfill text index: %w", err))
	}

	s.logger.Debug("created text index",
		zap.String("table", s.cfg.Table),
		zap.String("field", field))
	return nil
}

// TextSearch returns the topK best lexical matches for the query against
// the full-text index built on field, optionally constrained by a filter.
//
// The index must have been built with CreateTextIndex beforehand; without
// it the search fails with ErrIndexNotReady rather than returning empty.
// Scores are the negated bm25 rank, so higher is better, consistent with
// SimilaritySearch.
func (s *Store) TextSearch(ctx context.Context, query string, topK int, f *filter.Expr, field string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("text_search"); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, wrapErr("text_search", ErrEmptyQuery)
	}
	if topK <= 0 {
		return nil, wrapErr("text_search", ErrInvalidTopK)
	}
	if field == "" {
		field = schema.ColContent
	}
	if err := s.textIndexField(field); err != nil {
		return nil, wrapErr("text_search", err)
	}

	ftsName := s.ftsTableName(field)
	exists, err := s.tableExists(ctx, ftsName)
	if err != nil {
		return nil, wrapErr("text_search", err)
	}
	if !exists {
		return nil, wrapErr("text_search", fmt.Errorf("%w: no text index on field %q", ErrIndexNotReady, field))
	}

	fts := quoteIdent(ftsName)
	sql := fmt.Sprintf("SELECT %s, bm25(%s) FROM %s AS d JOIN %s ON %s.rowid = d.rowid WHERE %s MATCH ?",
		s.selectColumns("d."), fts, quoteIdent(s.cfg.Table), fts, fts, fts)
	if f != nil {
		pred, err := filter.Translate(f, s.row)
		if err != nil {
			return nil, wrapErr("text_search", err)
		}
		sql += " AND (" + pred + ")"
	}
	sql += fmt.Sprintf(" ORDER BY bm25(%s) ASC, d.rowid ASC LIMIT ?", fts)

	rows, err := s.db.QueryContext(ctx, sql, query, topK)
	if err != nil {
		return nil, wrapErr("text_search", fmt.Errorf("failed to query text index: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		doc, rank, err := s.scanDocument(rows, true)
		if err != nil {
			return nil, wrapErr("text_search", err)
		}
		docs = append(docs, doc.withScore(-rank))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("text_search", err)
	}
	return docs, nil
}
