// Package retriever provides thin, stateless retrieval facades over a
// document store: an embedding retriever for vector similarity and a
// full-text retriever for lexical search.
//
// A retriever holds defaults (topK, filter, metric or text field) that
// individual Retrieve calls may override; call-time values take
// precedence. Retrievers keep no state of their own and have no side
// effects beyond the store call.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/docuvec/docuvec/pkg/docstore"
	"github.com/docuvec/docuvec/pkg/filter"
)

// DefaultTopK is the number of documents retrieved when none is set.
const DefaultTopK = 10

// ErrInvalidTopK is returned when a configured or overriding topK is not
// positive.
var ErrInvalidTopK = errors.New("topK must be greater than 0")

type settings struct {
	topK   int
	filter *filter.Expr
	metric docstore.Metric
	field  string
}

// Option overrides a retriever default, either at construction or per
// Retrieve call.
type Option func(*settings)

// WithTopK sets the maximum number of documents to retrieve.
func WithTopK(topK int) Option {
	return func(s *settings) { s.topK = topK }
}

// WithFilter narrows the search space with a filter expression.
func WithFilter(f *filter.Expr) Option {
	return func(s *settings) { s.filter = f }
}

// WithMetric selects the similarity metric (embedding retriever only).
func WithMetric(m docstore.Metric) Option {
	return func(s *settings) { s.metric = m }
}

// WithField selects the indexed text field (full-text retriever only).
func WithField(field string) Option {
	return func(s *settings) { s.field = field }
}

func (s settings) apply(opts []Option) settings {
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Embedding retrieves documents by vector similarity.
type Embedding struct {
	store    *docstore.Store
	defaults settings
}

// NewEmbedding creates an embedding retriever over the store. Defaults:
// topK 10, no filter, cosine metric.
func NewEmbedding(store *docstore.Store, opts ...Option) (*Embedding, error) {
	if store == nil {
		return nil, fmt.Errorf("retriever: store is required")
	}
	defaults := settings{topK: DefaultTopK, metric: docstore.MetricCosine}.apply(opts)
	if defaults.topK <= 0 {
		return nil, fmt.Errorf("retriever: %w, got %d", ErrInvalidTopK, defaults.topK)
	}
	return &Embedding{store: store, defaults: defaults}, nil
}

// Retrieve returns the documents nearest to the query embedding, ranked
// best first. Options override the retriever defaults for this call only.
func (r *Embedding) Retrieve(ctx context.Context, queryEmbedding []float32, opts ...Option) ([]docstore.Document, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("retriever: query embedding must be a non-empty vector")
	}
	s := r.defaults.apply(opts)
	if s.topK <= 0 {
		return nil, fmt.Errorf("retriever: %w, got %d", ErrInvalidTopK, s.topK)
	}
	return r.store.SimilaritySearch(ctx, queryEmbedding, s.topK, s.filter, s.metric)
}

// FTS retrieves documents by lexical match against a text index.
type FTS struct {
	store    *docstore.Store
	defaults settings
}

// NewFTS creates a full-text retriever over the store. Defaults: topK 10,
// no filter, the content field. The corresponding text index must be
// built before the first Retrieve.
func NewFTS(store *docstore.Store, opts ...Option) (*FTS, error) {
	if store == nil {
		return nil, fmt.Errorf("retriever: store is required")
	}
	defaults := settings{topK: DefaultTopK}.apply(opts)
	if defaults.topK <= 0 {
		return nil, fmt.Errorf("retriever: %w, got %d", ErrInvalidTopK, defaults.topK)
	}
	return &FTS{store: store, defaults: defaults}, nil
}

// Retrieve returns the best lexical matches for the query, ranked best
// first. Options override the retriever defaults for this call only.
func (r *FTS) Retrieve(ctx context.Context, query string, opts ...Option) ([]docstore.Document, error) {
	if query == "" {
		return nil, fmt.Errorf("retriever: query must be a non-empty string")
	}
	s := r.defaults.apply(opts)
	if s.topK <= 0 {
		return nil, fmt.Errorf("retriever: %w, got %d", ErrInvalidTopK, s.topK)
	}
	return r.store.TextSearch(ctx, query, s.topK, s.filter, s.field)
}
