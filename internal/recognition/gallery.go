package recognition

import (
	"errors"
	"fmt"
	"strings"
)

// ReferenceIdentity is one loaded gallery entry.
type ReferenceIdentity struct {
	ID        string
	Embedding []float32
}

// Gallery is the immutable set of reference identities, in load order.
type Gallery struct {
	metric     Metric
	identities []ReferenceIdentity
}

// NewGallery builds a gallery. Entries with an empty label or embedding are
// skipped; duplicate labels keep the first entry.
func NewGallery(metric Metric, refs ...ReferenceIdentity) *Gallery {
	if metric == "" {
		metric = MetricEuclidean
	}
	g := &Gallery{metric: metric}
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		id := NormalizeLabel(ref.ID)
		if id == "" || len(ref.Embedding) == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		embedding := make([]float32, len(ref.Embedding))
		copy(embedding, ref.Embedding)
		g.identities = append(g.identities, ReferenceIdentity{ID: id, Embedding: embedding})
	}
	return g
}

// Len returns the number of loaded identities.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.identities)
}

// Empty reports whether no identity is loaded.
func (g *Gallery) Empty() bool { return g.Len() == 0 }

// Metric returns the distance metric.
func (g *Gallery) Metric() Metric {
	if g == nil {
		return MetricEuclidean
	}
	return g.metric
}

// IDs lists identity labels in load order.
func (g *Gallery) IDs() []string {
	if g == nil {
		return nil
	}
	ids := make([]string, 0, len(g.identities))
	for _, ref := range g.identities {
		ids = append(ids, ref.ID)
	}
	return ids
}

// Contains reports whether the label is loaded.
func (g *Gallery) Contains(id string) bool {
	if g == nil {
		return false
	}
	for _, ref := range g.identities {
		if ref.ID == id {
			return true
		}
	}
	return false
}

// Match computes a face's distance to every reference, in load order.
func (g *Gallery) Match(embedding []float32) []Match {
	if g == nil || len(g.identities) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(g.identities))
	for _, ref := range g.identities {
		matches = append(matches, Match{ID: ref.ID, Distance: g.metric.Distance(embedding, ref.Embedding)})
	}
	return matches
}

// Strategy selects how a reference embedding is built from its variants.
type Strategy string

const (
	// StrategySingle keeps the embedding of the unmodified reference image.
	StrategySingle Strategy = "single"
	// StrategyAveraged averages the embeddings of augmented variants.
	StrategyAveraged Strategy = "averaged"
)

// ParseStrategy resolves a configured strategy name.
func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(value))) {
	case "", StrategySingle:
		return StrategySingle, nil
	case StrategyAveraged:
		return StrategyAveraged, nil
	default:
		return "", fmt.Errorf("unsupported gallery strategy %q", value)
	}
}

var errNoVariants = errors.New("no embeddings produced")

// Reduce collapses the variant embeddings of one identity according to the
// strategy. The first variant must be the unmodified image.
func (s Strategy) Reduce(variants [][]float32) ([]float32, error) {
	if len(variants) == 0 || len(variants[0]) == 0 {
		return nil, errNoVariants
	}
	if s != StrategyAveraged {
		out := make([]float32, len(variants[0]))
		copy(out, variants[0])
		return out, nil
	}
	dim := len(variants[0])
	sum := make([]float64, dim)
	used := 0
	for _, v := range variants {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		used++
	}
	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(used))
	}
	return out, nil
}
