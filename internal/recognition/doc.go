// Package recognition turns per-reference face distances into labelled
// candidates.
//
// A Gallery holds the reference identities loaded at startup, in load order.
// The Classifier picks the closest reference for each detected face and
// applies the confidence threshold; anything at or below the threshold is
// reported as Unknown. Gallery construction is selected by a Strategy: one
// embedding per identity, or one embedding averaged over augmented variants
// of the reference image.
package recognition
