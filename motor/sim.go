package motor

import "math"

const (
	SIM_INERTIA  = 0.05 // kg m^2
	SIM_FRICTION = 0.1  // Nm/(rad/s)
	SIM_DT       = 0.01 // s, one control period per round trip
	SIM_AMBIENT  = 25.0 // degC
)

// SimTransport is an in-process stand-in for a physical motor: a 1-DOF
// inertia with viscous friction driven by the same impedance law the real
// drive evaluates. It satisfies Transport, so everything above it runs
// unmodified against it.
type SimTransport struct {
	position    float64
	velocity    float64
	torque      float64
	temperature float64
	powered     bool
	sent        int
}

func NewSimTransport() *SimTransport {
	return &SimTransport{temperature: SIM_AMBIENT}
}

func (s *SimTransport) PowerOn() error {
	s.powered = true
	return nil
}

func (s *SimTransport) PowerOff() error {
	s.powered = false
	return nil
}

func (s *SimTransport) Zero() error {
	s.position = 0
	return nil
}

func (s *SimTransport) Send(cmd DriveCommand) (Feedback, error) {
	// impedance law the drive firmware runs
	tau := cmd.Kp*(cmd.PositionTarget-s.position) +
		cmd.Kd*(cmd.VelocityTarget-s.velocity) +
		cmd.Feedforward

	accel := (tau - SIM_FRICTION*s.velocity) / SIM_INERTIA
	s.velocity += accel * SIM_DT
	s.position += s.velocity * SIM_DT
	s.torque = tau

	// crude heating from dissipated torque, cooling towards ambient
	s.temperature += 0.001*math.Abs(tau) - 0.0005*(s.temperature-SIM_AMBIENT)
	s.sent++

	return Feedback{
		Position:    s.position,
		Velocity:    s.velocity,
		Torque:      s.torque,
		Temperature: s.temperature,
	}, nil
}
