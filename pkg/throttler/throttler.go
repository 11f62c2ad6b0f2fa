// Package throttler contains code to throttle the rate of bulk writes
// against a primary so that replicas can keep up.
package throttler

// Signal is the pacing recommendation returned after each observed batch.
type Signal int

const (
	// SlowDown means batches are taking longer than the target time and
	// the caller should shrink its batch size or insert pauses.
	SlowDown Signal = -1
	// Hold means keep the current pace. Always returned during warm-up.
	Hold Signal = 0
	// SpeedUp means batches are finishing under the target time and the
	// caller can grow its batch size.
	SpeedUp Signal = 1
)

func (s Signal) String() string {
	switch s {
	case SlowDown:
		return "slowDown"
	case Hold:
		return "hold"
	case SpeedUp:
		return "speedUp"
	}
	return "unknown"
}
