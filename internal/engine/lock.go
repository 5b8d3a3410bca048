package engine

import (
	"image"
	"time"

	"rollcall/internal/recognition"
)

// LockState holds one confirmed identity exclusively until ExpiresAt.
// The zero value is unlocked.
type LockState struct {
	Identity  string          `json:"identity,omitempty"`
	Box       image.Rectangle `json:"box"`
	LockedAt  time.Time       `json:"locked_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NewLock locks identity at box for duration from now.
func NewLock(identity string, box image.Rectangle, now time.Time, duration time.Duration) LockState {
	return LockState{
		Identity:  identity,
		Box:       box,
		LockedAt:  now,
		ExpiresAt: now.Add(duration),
	}
}

// Active reports whether an identity is locked.
func (l LockState) Active() bool { return l.Identity != "" }

// Expired reports whether an active lock has reached its expiry.
func (l LockState) Expired(now time.Time) bool {
	return l.Active() && !now.Before(l.ExpiresAt)
}

// Remaining returns the time left on an active lock.
func (l LockState) Remaining(now time.Time) time.Duration {
	if !l.Active() {
		return 0
	}
	if d := l.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Refresh moves the lock to the locked identity's position in this frame.
// When the identity is absent the last position is kept. Expiry never changes.
func (l LockState) Refresh(candidates []recognition.Candidate) (LockState, bool) {
	if !l.Active() {
		return l, false
	}
	for _, c := range candidates {
		if c.Label == l.Identity {
			l.Box = c.Box
			return l, true
		}
	}
	return l, false
}
