package recognition

import "math"

// DefaultThreshold is the confidence a match must exceed to be labelled.
const DefaultThreshold = 0.6

// Confidence converts a raw distance to a confidence in [0,1].
func Confidence(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}
	confidence := 1.0 - distance
	switch {
	case confidence < 0:
		return 0
	case confidence > 1:
		return 1
	}
	return confidence
}

// Classify labels a single distance against a single identity.
func Classify(rawDistance float64, identity string, threshold float64) Candidate {
	confidence := Confidence(rawDistance)
	if identity == "" || confidence <= threshold {
		return Candidate{Label: Unknown, Confidence: confidence}
	}
	return Candidate{Label: identity, Confidence: confidence}
}

// Classifier applies the threshold rule to the best match of each face.
type Classifier struct {
	threshold float64
}

// NewClassifier returns a classifier. The threshold must lie strictly between
// 0 and 1, the range config validation enforces for engine.match_threshold;
// anything else (including NaN) falls back to DefaultThreshold. A threshold
// of 1 or more would accept every face and one of 0 or less would reject all.
func NewClassifier(threshold float64) *Classifier {
	if !(threshold > 0 && threshold < 1) {
		threshold = DefaultThreshold
	}
	return &Classifier{threshold: threshold}
}

// Threshold returns the configured confidence threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// ClassifyFace picks the minimum-distance match, first in gallery order on
// ties, and classifies it. A face with no matches is Unknown with zero
// confidence.
func (c *Classifier) ClassifyFace(face Face) Candidate {
	best, ok := BestMatch(face.Matches)
	if !ok {
		return Candidate{Label: Unknown, Confidence: 0, Box: face.Box}
	}
	candidate := Classify(best.Distance, best.ID, c.threshold)
	candidate.Box = face.Box
	return candidate
}

// ClassifyFrame classifies every face, preserving detector order.
func (c *Classifier) ClassifyFrame(faces []Face) []Candidate {
	if len(faces) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(faces))
	for _, face := range faces {
		out = append(out, c.ClassifyFace(face))
	}
	return out
}

// BestMatch returns the match with the smallest distance. NaN distances are
// never selected.
func BestMatch(matches []Match) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for _, m := range matches {
		if math.IsNaN(m.Distance) {
			continue
		}
		if !found || m.Distance < best.Distance {
			best = m
			found = true
		}
	}
	return best, found
}
