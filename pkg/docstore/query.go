package docstore

import (
	"context"
	"fmt"

	"github.com/docuvec/docuvec/pkg/filter"
)

// CountDocuments returns the number of rows in the table, optionally
// constrained by a filter expression.
func (s *Store) CountDocuments(ctx context.Context, f *filter.Expr) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("count"); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(s.cfg.Table))
	if f != nil {
		pred, err := filter.Translate(f, s.row)
		if err != nil {
			return 0, wrapErr("count", err)
		}
		query += " WHERE " + pred
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, wrapErr("count", fmt.Errorf("failed to count documents: %w", err))
	}
	return n, nil
}

// FilterDocuments materializes all rows matching the filter as documents,
// eagerly, in insertion order. A nil filter returns every document.
func (s *Store) FilterDocuments(ctx context.Context, f *filter.Expr) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("filter"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", s.selectColumns(""), quoteIdent(s.cfg.Table))
	if f != nil {
		pred, err := filter.Translate(f, s.row)
		if err != nil {
			return nil, wrapErr("filter", err)
		}
		query += " WHERE " + pred
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr("filter", fmt.Errorf("failed to query documents: %w", err))
	}
	defer func() { _ = rows.Close() }()

	docs, err := s.collectDocuments(rows)
	if err != nil {
		return nil, wrapErr("filter", err)
	}
	return docs, nil
}
