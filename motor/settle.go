package motor

import (
	"math"
	"time"
)

// SettleState is the observable state of a SettlingTracker. Settled and
// TimedOut are terminal.
type SettleState int

const (
	Tracking SettleState = iota
	Settled
	TimedOut
)

func (s SettleState) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Settled:
		return "settled"
	case TimedOut:
		return "timed_out"
	}
	return "invalid"
}

// SettlingTracker verifies that a step command has truly come to rest: the
// measured position must stay inside tolerance for a run of consecutive
// samples, not merely touch it once. A single in-tolerance sample is weak
// evidence when feedforward torque is applied, since the shaft can overshoot,
// pause inside tolerance and drift back out.
//
// Create one tracker per settling attempt and discard it once terminal.
type SettlingTracker struct {
	tolerance float64
	timeout   time.Duration
	required  uint

	stable    uint
	startTime time.Time
	state     SettleState
}

// NewSettlingTracker starts a settling attempt at now. settlingTime and
// sampleRateHz together decide how many consecutive in-tolerance samples are
// required; a settlingTime of 0 settles on the first in-tolerance sample.
func NewSettlingTracker(tolerance, settlingTime, timeout float64, sampleRateHz float64, now time.Time) *SettlingTracker {
	required := uint(math.Ceil(settlingTime * sampleRateHz))
	if required < 1 {
		required = 1
	}

	return &SettlingTracker{
		tolerance: tolerance,
		timeout:   time.Duration(timeout * float64(time.Second)),
		required:  required,
		startTime: now,
		state:     Tracking,
	}
}

// Sample feeds one measurement and returns the resulting state. Once
// terminal, further samples are ignored. The deadline is checked before the
// tolerance so a late sample can never settle.
func (t *SettlingTracker) Sample(measured, target float64, now time.Time) SettleState {
	if t.state != Tracking {
		return t.state
	}

	if now.Sub(t.startTime) >= t.timeout {
		t.state = TimedOut
		return t.state
	}

	if math.Abs(measured-target) < t.tolerance {
		t.stable++
		if t.stable >= t.required {
			t.state = Settled
		}
	} else {
		// drifted out, the run starts over
		t.stable = 0
	}

	return t.state
}

// State returns the current state without consuming a sample.
func (t *SettlingTracker) State() SettleState {
	return t.state
}

// RequiredSamples reports how many consecutive in-tolerance samples settle
// this attempt.
func (t *SettlingTracker) RequiredSamples() uint {
	return t.required
}

// Elapsed reports how long this attempt has been running.
func (t *SettlingTracker) Elapsed(now time.Time) time.Duration {
	return now.Sub(t.startTime)
}
