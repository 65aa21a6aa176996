package motor

import (
	merrors "github.com/cpsmotion/akmotor/motor/errors"
)

// ControlMode selects which projection of the impedance equation a pending
// command uses.
type ControlMode int

const (
	ModePosition ControlMode = iota
	ModeVelocity
	ModeTorque
	ModeImpedance
)

func (m ControlMode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeVelocity:
		return "velocity"
	case ModeTorque:
		return "torque"
	case ModeImpedance:
		return "impedance"
	}
	return "invalid"
}

// PendingCommand is the single active control intent. Mode setters replace
// it whole; Update reads it without clearing it, so the last intent keeps
// streaming until overwritten. Kp/Kd of nil resolve to the config defaults
// inside BuildDriveCommand and nowhere else.
type PendingCommand struct {
	Mode        ControlMode
	Position    float64
	Velocity    float64
	Torque      float64
	Kp          *float64
	Kd          *float64
	Feedforward float64
}

// CommandOption adjusts the optional fields of a mode setter.
type CommandOption func(*PendingCommand)

// WithKp overrides the default position gain.
func WithKp(kp float64) CommandOption {
	return func(c *PendingCommand) {
		c.Kp = &kp
	}
}

// WithKd overrides the default velocity gain.
func WithKd(kd float64) CommandOption {
	return func(c *PendingCommand) {
		c.Kd = &kd
	}
}

// WithFeedforward adds a feedforward torque term, typically for gravity or
// load compensation.
func WithFeedforward(tau float64) CommandOption {
	return func(c *PendingCommand) {
		c.Feedforward = tau
	}
}

// BuildDriveCommand projects a pending command onto the drive tuple
//
//	tau = kp*(posTarget - pos) + kd*(velTarget - vel) + feedforward
//
// evaluated by the drive itself. Pure: no I/O, no hidden state, identical
// inputs give identical output. The only rejection is a negative gain.
func BuildDriveCommand(cmd PendingCommand, state MotorState, config *MotorConfig) (DriveCommand, error) {
	kp := config.DefaultKp
	if cmd.Kp != nil {
		kp = *cmd.Kp
	}
	kd := config.DefaultKd
	if cmd.Kd != nil {
		kd = *cmd.Kd
	}

	if kp < 0 {
		return DriveCommand{}, merrors.InvalidGainError{Name: "kp", Value: kp}
	}
	if kd < 0 {
		return DriveCommand{}, merrors.InvalidGainError{Name: "kd", Value: kd}
	}

	switch cmd.Mode {
	case ModeVelocity:
		// track the measured position so the position error term vanishes
		return DriveCommand{
			PositionTarget: state.Position,
			VelocityTarget: cmd.Velocity,
			Kp:             0,
			Kd:             kd,
		}, nil

	case ModeTorque:
		return DriveCommand{
			Feedforward: cmd.Torque,
		}, nil

	case ModeImpedance:
		return DriveCommand{
			PositionTarget: cmd.Position,
			VelocityTarget: cmd.Velocity,
			Kp:             kp,
			Kd:             kd,
			Feedforward:    cmd.Feedforward,
		}, nil

	default: // ModePosition
		return DriveCommand{
			PositionTarget: cmd.Position,
			VelocityTarget: 0,
			Kp:             kp,
			Kd:             kd,
			Feedforward:    cmd.Feedforward,
		}, nil
	}
}
