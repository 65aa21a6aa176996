package motor

import (
	"time"

	merrors "github.com/cpsmotion/akmotor/motor/errors"
)

// PowerState is the lifecycle position of a motor's drive stage.
type PowerState int

const (
	Disconnected PowerState = iota
	PowerOff
	PowerOn
)

func (s PowerState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case PowerOff:
		return "power_off"
	case PowerOn:
		return "power_on"
	}
	return "invalid"
}

// powerLifecycle gates whether drive commands may be transmitted at all.
// Disconnected -> PowerOff on connect, PowerOff <-> PowerOn via
// Enable/Disable only. Enable and Disable are idempotent.
type powerLifecycle struct {
	state     PowerState
	link      Transport
	clock     Clock
	poweredAt time.Time
	uptime    time.Duration
}

func newPowerLifecycle(link Transport, clock Clock) *powerLifecycle {
	return &powerLifecycle{
		state: Disconnected,
		link:  link,
		clock: clock,
	}
}

func (p *powerLifecycle) connect() error {
	if p.link == nil {
		return merrors.TransportError{Op: "connect", Err: errNoLink}
	}
	if p.state == Disconnected {
		p.state = PowerOff
	}
	return nil
}

func (p *powerLifecycle) enable() error {
	switch p.state {
	case PowerOn:
		return nil
	case Disconnected:
		return merrors.ConnectionRequiredError{Op: "enable"}
	}

	if err := p.link.PowerOn(); err != nil {
		return merrors.TransportError{Op: "enable", Err: err}
	}

	p.state = PowerOn
	p.poweredAt = p.clock.Now()
	return nil
}

func (p *powerLifecycle) disable() error {
	if p.state != PowerOn {
		return nil
	}

	if err := p.link.PowerOff(); err != nil {
		return merrors.TransportError{Op: "disable", Err: err}
	}

	p.uptime += p.clock.Now().Sub(p.poweredAt)
	p.state = PowerOff
	return nil
}

// totalUptime is the accumulated powered-on time, including the current
// power-on span if still running.
func (p *powerLifecycle) totalUptime() time.Duration {
	total := p.uptime
	if p.state == PowerOn {
		total += p.clock.Now().Sub(p.poweredAt)
	}
	return total
}
