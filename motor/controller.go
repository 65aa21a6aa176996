package motor

import (
	"errors"
	"time"

	merrors "github.com/cpsmotion/akmotor/motor/errors"
)

var errNoLink = errors.New("no transport configured")

// Motor is the control core for a single rotary actuator. One caller-owned
// loop drives it: set an intent with a mode setter, then call Update at a
// fixed cadence. Update is the only blocking operation and performs exactly
// one transport round trip. Instances share nothing; run one per motor.
type Motor struct {
	config  *MotorConfig
	link    Transport
	clock   Clock
	power   *powerLifecycle
	state   MotorState
	pending PendingCommand
}

// NewMotor connects a motor on the given transport. The returned motor is in
// PowerOff; call Enable (or use WithPower) before commanding it.
func NewMotor(config *MotorConfig, link Transport) (m *Motor, err error) {
	return NewMotorWithClock(config, link, SystemClock)
}

// NewMotorWithClock is NewMotor with an injectable time source.
func NewMotorWithClock(config *MotorConfig, link Transport, clock Clock) (m *Motor, err error) {
	if err = config.Validate(); err != nil {
		return nil, err
	}

	m = &Motor{
		config: config,
		link:   link,
		clock:  clock,
		power:  newPowerLifecycle(link, clock),
	}

	if err = m.power.connect(); err != nil {
		return nil, err
	}

	return m, nil
}

// Config returns the motor's configuration.
func (m *Motor) Config() *MotorConfig {
	return m.config
}

// State returns the last ingested snapshot without touching the transport.
func (m *Motor) State() MotorState {
	return m.state
}

// PowerState reports the current lifecycle state.
func (m *Motor) PowerState() PowerState {
	return m.power.state
}

// Uptime reports accumulated powered-on time.
func (m *Motor) Uptime() time.Duration {
	return m.power.totalUptime()
}

// Enable powers the drive stage on. Already on is a no-op.
func (m *Motor) Enable() error {
	return m.power.enable()
}

// Disable powers the drive stage off. Already off is a no-op.
func (m *Motor) Disable() error {
	return m.power.disable()
}

// WithPower runs fn with the motor enabled and guarantees a Disable on every
// exit path. This is the sanctioned way to scope power. Calling Enable
// manually and then entering WithPower is a caller misuse: the extra Enable
// is harmless, but the single Disable on exit turns power off while the
// manual caller may still believe it holds it.
func (m *Motor) WithPower(fn func(*Motor) error) (err error) {
	if err = m.Enable(); err != nil {
		return err
	}
	defer func() {
		if derr := m.Disable(); derr != nil && err == nil {
			err = derr
		}
	}()

	return fn(m)
}

// SetPosition stores a position intent. No I/O, never blocks.
func (m *Motor) SetPosition(target float64, opts ...CommandOption) {
	cmd := PendingCommand{
		Mode:     ModePosition,
		Position: target,
	}
	for _, opt := range opts {
		opt(&cmd)
	}
	m.pending = cmd
}

// SetVelocity stores a velocity intent. Only WithKd applies.
func (m *Motor) SetVelocity(target float64, opts ...CommandOption) {
	cmd := PendingCommand{
		Mode:     ModeVelocity,
		Velocity: target,
	}
	for _, opt := range opts {
		opt(&cmd)
	}
	m.pending = cmd
}

// SetTorque stores a pure torque intent.
func (m *Motor) SetTorque(target float64) {
	m.pending = PendingCommand{
		Mode:   ModeTorque,
		Torque: target,
	}
}

// SetImpedance stores a full impedance intent: a virtual spring-damper
// around the given position/velocity plus a feedforward torque.
func (m *Motor) SetImpedance(position, velocity, kp, kd, feedforward float64) {
	m.pending = PendingCommand{
		Mode:        ModeImpedance,
		Position:    position,
		Velocity:    velocity,
		Kp:          &kp,
		Kd:          &kd,
		Feedforward: feedforward,
	}
}

// Pending returns the active intent.
func (m *Motor) Pending() PendingCommand {
	return m.pending
}

// Update performs one control cycle: build the drive command from the
// pending intent, transmit it, ingest the feedback and return the refreshed
// snapshot. Fails with NotPoweredError unless powered on; transport failures
// surface untouched, retry policy belongs to the caller.
func (m *Motor) Update() (MotorState, error) {
	if m.power.state != PowerOn {
		return m.state, merrors.NotPoweredError{State: m.power.state.String()}
	}

	cmd, err := BuildDriveCommand(m.pending, m.state, m.config)
	if err != nil {
		return m.state, err
	}

	fb, err := m.link.Send(cmd)
	if err != nil {
		return m.state, merrors.TransportError{Op: "update", Err: err}
	}

	m.state = ingest(fb, m.config.MaxTemperature, m.clock.Now())
	return m.state, nil
}

// Stop is the emergency stop: command zero torque and push it out now.
func (m *Motor) Stop() error {
	m.SetTorque(0)
	_, err := m.Update()
	return err
}

// ZeroPosition makes the current shaft angle the new zero. The drive needs a
// persistence window before feedback reflects the new frame, so this blocks
// for ZERO_SETTLE_TIME. The pending position target is hard-reset to 0:
// keeping a stale target expressed in the old frame would command an
// immediate jump on the next Update.
func (m *Motor) ZeroPosition() error {
	if m.power.state != PowerOn {
		return merrors.NotPoweredError{State: m.power.state.String()}
	}

	if err := m.link.Zero(); err != nil {
		return merrors.TransportError{Op: "zero", Err: err}
	}

	time.Sleep(ZERO_SETTLE_TIME)

	m.pending.Position = 0
	m.state.Position = 0

	_, err := m.Update()
	return err
}

// CheckConnection issues a lightweight round trip and reports liveness. The
// probe carries zero gains and zero torque so it commands nothing; the
// pending intent is left untouched.
func (m *Motor) CheckConnection() bool {
	if m.power.state != PowerOn {
		return false
	}

	probe := DriveCommand{PositionTarget: m.state.Position}
	fb, err := m.link.Send(probe)
	if err != nil {
		return false
	}

	m.state = ingest(fb, m.config.MaxTemperature, m.clock.Now())
	return true
}

// NewSettlingTracker starts a settling attempt for the current step command
// using the configured tolerance, settling time and timeout.
func (m *Motor) NewSettlingTracker() *SettlingTracker {
	return NewSettlingTracker(
		m.config.StepTolerance,
		m.config.StepSettlingTime,
		m.config.StepTimeout,
		m.config.ControlFrequency,
		m.clock.Now(),
	)
}
