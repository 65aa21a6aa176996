package motor

import (
	"time"
)

// Trajectory is one in-flight point-to-point move. Progression is computed
// from wall-clock time on each tick; the caller owns the loop and simply
// stops calling to cancel.
type Trajectory struct {
	law      TrajectoryLaw
	startPos float64
	target   float64
	duration float64 // s
	kp, kd   *float64
	started  time.Time
}

// Target returns the end position of the move.
func (t *Trajectory) Target() float64 {
	return t.target
}

// Done reports whether the move's time span has elapsed.
func (t *Trajectory) Done(now time.Time) bool {
	return now.Sub(t.started).Seconds() >= t.duration
}

// StartTrajectory begins a timed move from the current measured position to
// target. Durations at or below STEP_THRESHOLD are step commands: the target
// is staged as a plain position intent and nil is returned, with settling
// left to a SettlingTracker if the caller wants proof of arrival.
func (m *Motor) StartTrajectory(target, duration float64, law TrajectoryLaw, opts ...CommandOption) *Trajectory {
	if duration <= STEP_THRESHOLD.Seconds() {
		m.SetPosition(target, opts...)
		return nil
	}

	cmd := PendingCommand{}
	for _, opt := range opts {
		opt(&cmd)
	}

	return &Trajectory{
		law:      law,
		startPos: m.state.Position,
		target:   target,
		duration: duration,
		kp:       cmd.Kp,
		kd:       cmd.Kd,
		started:  m.clock.Now(),
	}
}

// FollowTrajectory performs one tick of a move: evaluate the law at the
// current time, stage the waypoint as an impedance intent carrying both the
// position and velocity targets, and push it out. Call it at the control
// cadence until done is true, then issue one final tick to pin the endpoint.
func (m *Motor) FollowTrajectory(t *Trajectory) (state MotorState, done bool, err error) {
	elapsed := m.clock.Now().Sub(t.started).Seconds()

	pos, vel, err := EvaluateTrajectory(t.law, t.startPos, t.target, elapsed, t.duration)
	if err != nil {
		return m.state, false, err
	}

	kp := m.config.DefaultKp
	if t.kp != nil {
		kp = *t.kp
	}
	kd := m.config.DefaultKd
	if t.kd != nil {
		kd = *t.kd
	}

	m.SetImpedance(pos, vel, kp, kd, 0)
	state, err = m.Update()
	return state, elapsed >= t.duration, err
}
