package motor

import "time"

// MotorState is the latest measured state of the motor. It is overwritten
// wholesale on every feedback ingestion, never field by field.
type MotorState struct {
	Position    float64   `json:"position"`    // rad
	Velocity    float64   `json:"velocity"`    // rad/s
	Torque      float64   `json:"torque"`      // Nm
	Temperature float64   `json:"temperature"` // degC
	OverTemp    bool      `json:"over_temp"`   // advisory, see below
	UpdatedAt   time.Time `json:"updated_at"`
}

// ingest builds the replacement snapshot for a feedback frame. OverTemp is
// advisory only: the caller decides what to do about an overheating motor,
// the core never cuts power on its own.
func ingest(fb Feedback, maxTemp float64, now time.Time) MotorState {
	return MotorState{
		Position:    fb.Position,
		Velocity:    fb.Velocity,
		Torque:      fb.Torque,
		Temperature: fb.Temperature,
		OverTemp:    fb.Temperature >= maxTemp,
		UpdatedAt:   now,
	}
}
