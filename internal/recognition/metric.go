package recognition

import (
	"fmt"
	"math"
	"strings"
)

// Metric selects how embedding distance is computed.
type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
)

// ParseMetric resolves a configured metric name.
func ParseMetric(value string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(value))) {
	case "", MetricEuclidean:
		return MetricEuclidean, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("unsupported distance metric %q", value)
	}
}

// Distance computes the distance between two embeddings. Mismatched or empty
// vectors yield NaN so they never win a best-match comparison.
func (m Metric) Distance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return math.NaN()
	}
	if m == MetricCosine {
		return cosineDistance(a, b)
	}
	return euclideanDistance(a, b)
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// cosineDistance returns 1 - cosine similarity, in [0,2].
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
