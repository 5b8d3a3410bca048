package recognition

import "image"

// Unknown labels a face that matched no reference above the threshold.
const Unknown = "UNKNOWN"

// Match is the distance between one detected face and one reference identity.
type Match struct {
	ID       string  `json:"id"`
	Distance float64 `json:"distance"`
}

// Face is a detected face with its distances to every gallery reference,
// listed in gallery load order.
type Face struct {
	Box     image.Rectangle `json:"box"`
	Matches []Match         `json:"matches"`
}

// Candidate is the classification of one detected face in one processed frame.
type Candidate struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
}

// Known reports whether the candidate carries a recognised identity.
func (c Candidate) Known() bool {
	return c.Label != "" && c.Label != Unknown
}

// FirstKnown returns the first recognised candidate in detector order.
func FirstKnown(candidates []Candidate) (Candidate, bool) {
	for _, candidate := range candidates {
		if candidate.Known() {
			return candidate, true
		}
	}
	return Candidate{}, false
}
