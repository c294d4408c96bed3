package docstore

import (
	"fmt"
	"math"
)

// SimilarityFunc scores two vectors. Every metric is normalized to
// higher-is-better so results can share one ordering convention.
type SimilarityFunc func(a, b []float32) float64

// Metric selects the similarity function for vector search.
type Metric string

const (
	// MetricCosine scores by cosine similarity, in [-1, 1].
	MetricCosine Metric = "cosine"
	// MetricDot scores by dot product.
	MetricDot Metric = "dot"
	// MetricEuclidean scores by negative euclidean distance, so that a
	// smaller distance yields a higher score.
	MetricEuclidean Metric = "euclidean"
)

// Func returns the metric's similarity function.
func (m Metric) Func() (SimilarityFunc, error) {
	switch m {
	case MetricCosine, "":
		return cosineSimilarity, nil
	case MetricDot:
		return dotProduct, nil
	case MetricEuclidean:
		return negEuclideanDistance, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", m)
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var result float64
	for i := 0; i < len(a); i++ {
		result += float64(a[i]) * float64(b[i])
	}
	return result
}

func negEuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(-1)
	}
	var sum float64
	for i := 0; i < len(a); i++ {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return -math.Sqrt(sum)
}
