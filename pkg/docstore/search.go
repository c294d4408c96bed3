package docstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/docuvec/docuvec/internal/encoding"
	"github.com/docuvec/docuvec/pkg/filter"
	"github.com/docuvec/docuvec/pkg/schema"
)

// SimilaritySearch returns the topK documents nearest to the query
// embedding under the metric, optionally constrained by a filter.
//
// Candidate rows (those carrying an embedding, after the filter) are
// fetched from the engine and scored with the metric's SimilarityFunc.
// Results are ordered by descending score — every metric is normalized to
// higher-is-better, see Metric — with ties broken by insertion order.
// Each returned document carries its score.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, topK int, f *filter.Expr, metric Metric) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen("search"); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, wrapErr("search", ErrEmptyQuery)
	}
	if err := encoding.ValidateVector(query); err != nil {
		return nil, wrapErr("search", err)
	}
	if len(query) != s.row.EmbeddingDims() {
		return nil, wrapErr("search", fmt.Errorf("%w: query has %d dims, table expects %d",
			schema.ErrSchemaMismatch, len(query), s.row.EmbeddingDims()))
	}
	if topK <= 0 {
		return nil, wrapErr("search", ErrInvalidTopK)
	}
	scoreFn, err := metric.Func()
	if err != nil {
		return nil, wrapErr("search", err)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL",
		s.selectColumns(""), quoteIdent(s.cfg.Table), quoteIdent(schema.ColEmbedding))
	if f != nil {
		pred, err := filter.Translate(f, s.row)
		if err != nil {
			return nil, wrapErr("search", err)
		}
		sql += " AND (" + pred + ")"
	}
	sql += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, sql)
	if err != nil {
		return nil, wrapErr("search", fmt.Errorf("failed to fetch candidates: %w", err))
	}
	defer func() { _ = rows.Close() }()

	candidates, err := s.collectDocuments(rows)
	if err != nil {
		return nil, wrapErr("search", err)
	}

	scored := make([]Document, len(candidates))
	for i, doc := range candidates {
		scored[i] = doc.withScore(scoreFn(query, doc.Embedding))
	}
	// Candidates arrive in insertion order; the stable sort keeps that
	// order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Score > *scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
