// Package scheduler drives the capture loop: it decides which captured frames
// are processed, routes detector output through the classifier and the
// decision engine, paces iterations to a target period, and stops on repeated
// capture failure or cancellation.
//
// The scheduler goroutine is the engine's only writer. Manual marks from other
// goroutines are queued and applied at the start of the next iteration, and
// status reads are served from a snapshot taken after every iteration.
package scheduler
