package docstore

import (
	"math"
	"testing"
)

func TestMetricFunc(t *testing.T) {
	for _, m := range []Metric{MetricCosine, MetricDot, MetricEuclidean, ""} {
		if _, err := m.Func(); err != nil {
			t.Errorf("Func(%q) error = %v", m, err)
		}
	}
	if _, err := Metric("manhattan").Func(); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1.0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0.0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1.0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0.0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDotProduct(t *testing.T) {
	if got := dotProduct([]float32{1, 2, 3}, []float32{4, 5, 6}); got != 32 {
		t.Errorf("dotProduct() = %v, want 32", got)
	}
	if got := dotProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("dotProduct() on mismatched lengths = %v, want 0", got)
	}
}

func TestNegEuclideanDistance(t *testing.T) {
	if got := negEuclideanDistance([]float32{0, 0}, []float32{3, 4}); got != -5 {
		t.Errorf("negEuclideanDistance() = %v, want -5", got)
	}
	if got := negEuclideanDistance([]float32{1, 1}, []float32{1, 1}); got != 0 {
		t.Errorf("negEuclideanDistance() on equal vectors = %v, want 0", got)
	}
	if got := negEuclideanDistance([]float32{1}, []float32{1, 2}); !math.IsInf(got, -1) {
		t.Errorf("negEuclideanDistance() on mismatched lengths = %v, want -Inf", got)
	}
}
