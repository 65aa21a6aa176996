package motor

import "time"

// DriveCommand is the resolved tuple transmitted to the motor every control
// cycle. All control modes reduce to this.
type DriveCommand struct {
	PositionTarget float64 // rad
	VelocityTarget float64 // rad/s
	Kp             float64 // Nm/rad
	Kd             float64 // Nm/(rad/s)
	Feedforward    float64 // Nm
}

// Feedback is one raw response from the motor, already in physical units.
type Feedback struct {
	Position    float64 // rad
	Velocity    float64 // rad/s
	Torque      float64 // Nm
	Temperature float64 // degC
}

// Transport performs the command/feedback round trips on behalf of a single
// Motor. Implementations own all wire-level encoding; a handle must not be
// shared between motors without external multiplexing.
type Transport interface {
	// Send transmits one drive command and returns the resulting feedback.
	Send(cmd DriveCommand) (Feedback, error)
	// PowerOn transmits the power-on sequence.
	PowerOn() error
	// PowerOff transmits the power-off sequence.
	PowerOff() error
	// Zero persists the current shaft angle as the new zero reference.
	Zero() error
}

// Clock is the monotonic time source used for settling and uptime tracking.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

// SystemClock is the default Clock backed by time.Now.
var SystemClock Clock = wallClock{}
