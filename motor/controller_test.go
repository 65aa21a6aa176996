package motor

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	merrors "github.com/cpsmotion/akmotor/motor/errors"
)

// testLink records everything the controller transmits, echoing back a
// canned feedback frame.
type testLink struct {
	txerr     bool
	pwrerr    bool
	txCount   int
	lastTx    DriveCommand
	fb        Feedback
	powerOns  int
	powerOffs int
	zeros     int
}

func (t *testLink) Send(cmd DriveCommand) (Feedback, error) {
	t.lastTx = cmd
	t.txCount++
	if t.txerr {
		return Feedback{}, errors.New("this is a simulated tx error")
	}
	return t.fb, nil
}

func (t *testLink) PowerOn() error {
	if t.pwrerr {
		return errors.New("this is a simulated power error")
	}
	t.powerOns++
	return nil
}

func (t *testLink) PowerOff() error {
	t.powerOffs++
	return nil
}

func (t *testLink) Zero() error {
	t.zeros++
	return nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func createTestMotor() (link *testLink, clock *testClock, m *Motor) {
	link = &testLink{fb: Feedback{Position: 0.5, Velocity: 0.1, Torque: 0.2, Temperature: 30}}
	clock = &testClock{now: time.Unix(5000, 0)}

	m, err := NewMotorWithClock(testConfig(), link, clock)
	if err != nil {
		panic(err)
	}
	return
}

func TestPowerLifecycle(t *testing.T) {
	Convey("a fresh motor is connected but unpowered", t, func() {
		link, clock, m := createTestMotor()

		So(m.PowerState(), ShouldEqual, PowerOff)

		Convey("update while unpowered fails and transmits nothing", func() {
			m.SetTorque(3.5)
			before := m.State()
			_, err := m.Update()

			So(err, ShouldHaveSameTypeAs, merrors.NotPoweredError{})
			So(link.txCount, ShouldEqual, 0)
			So(m.State(), ShouldResemble, before)
		})

		Convey("enable transmits the power-on sequence once", func() {
			So(m.Enable(), ShouldBeNil)
			So(m.PowerState(), ShouldEqual, PowerOn)
			So(link.powerOns, ShouldEqual, 1)

			Convey("a second enable is a no-op", func() {
				So(m.Enable(), ShouldBeNil)
				So(link.powerOns, ShouldEqual, 1)
			})

			Convey("disable transmits power-off and accumulates uptime", func() {
				clock.advance(3 * time.Second)
				So(m.Disable(), ShouldBeNil)
				So(m.PowerState(), ShouldEqual, PowerOff)
				So(link.powerOffs, ShouldEqual, 1)
				So(m.Uptime(), ShouldEqual, 3*time.Second)

				Convey("a second disable is a no-op", func() {
					So(m.Disable(), ShouldBeNil)
					So(link.powerOffs, ShouldEqual, 1)
				})
			})
		})
	})

	Convey("a failed power-on leaves the motor unpowered", t, func() {
		link, _, m := createTestMotor()
		link.pwrerr = true

		So(m.Enable(), ShouldNotBeNil)
		So(m.PowerState(), ShouldEqual, PowerOff)
	})
}

func TestWithPower(t *testing.T) {
	Convey("WithPower releases on every exit path", t, func() {
		link, _, m := createTestMotor()

		Convey("normal return", func() {
			err := m.WithPower(func(m *Motor) error {
				So(m.PowerState(), ShouldEqual, PowerOn)
				return nil
			})
			So(err, ShouldBeNil)
			So(m.PowerState(), ShouldEqual, PowerOff)
			So(link.powerOffs, ShouldEqual, 1)
		})

		Convey("failure inside the block still powers off", func() {
			boom := errors.New("boom")
			err := m.WithPower(func(m *Motor) error {
				return boom
			})
			So(err, ShouldEqual, boom)
			So(m.PowerState(), ShouldEqual, PowerOff)
		})

		Convey("a manual enable before the block is released by the block's single disable", func() {
			So(m.Enable(), ShouldBeNil)
			m.WithPower(func(m *Motor) error { return nil })

			// the caller that enabled manually has now lost power
			So(m.PowerState(), ShouldEqual, PowerOff)
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("with the motor powered", t, func() {
		link, _, m := createTestMotor()
		So(m.Enable(), ShouldBeNil)

		Convey("update transmits the pending command and ingests feedback", func() {
			m.SetPosition(2.0)
			state, err := m.Update()

			So(err, ShouldBeNil)
			So(link.lastTx, ShouldResemble, DriveCommand{
				PositionTarget: 2.0,
				Kp:             10.0,
				Kd:             0.5,
			})
			So(state.Position, ShouldEqual, 0.5)
			So(state.Velocity, ShouldEqual, 0.1)
			So(state.Temperature, ShouldEqual, 30.0)
			So(state.OverTemp, ShouldBeFalse)

			Convey("the pending command keeps streaming until replaced", func() {
				m.Update()
				So(link.lastTx.PositionTarget, ShouldEqual, 2.0)
				So(link.txCount, ShouldEqual, 2)
			})
		})

		Convey("velocity intent pins the position target to the live position", func() {
			m.Update() // ingest one frame so the measured position is 0.5
			m.SetVelocity(2.0)
			_, err := m.Update()

			So(err, ShouldBeNil)
			So(link.lastTx, ShouldResemble, DriveCommand{
				PositionTarget: 0.5,
				VelocityTarget: 2.0,
				Kp:             0,
				Kd:             0.5,
			})
		})

		Convey("crossing max temperature raises the advisory without cutting power", func() {
			link.fb.Temperature = 80
			state, err := m.Update()

			So(err, ShouldBeNil)
			So(state.OverTemp, ShouldBeTrue)
			So(m.PowerState(), ShouldEqual, PowerOn)
		})

		Convey("a transport failure surfaces and keeps the last snapshot", func() {
			m.Update()
			before := m.State()

			link.txerr = true
			_, err := m.Update()

			So(err, ShouldHaveSameTypeAs, merrors.TransportError{})
			So(m.State(), ShouldResemble, before)
		})

		Convey("stop pushes a zero-torque command immediately", func() {
			So(m.Stop(), ShouldBeNil)
			So(link.lastTx, ShouldResemble, DriveCommand{})
		})
	})
}

func TestZeroPosition(t *testing.T) {
	Convey("zeroing requires power", t, func() {
		link, _, m := createTestMotor()

		So(m.ZeroPosition(), ShouldHaveSameTypeAs, merrors.NotPoweredError{})
		So(link.zeros, ShouldEqual, 0)
	})

	Convey("zeroing hard-resets the stale position target", t, func() {
		link, _, m := createTestMotor()
		So(m.Enable(), ShouldBeNil)
		m.SetPosition(1.57)
		m.Update()

		link.fb = Feedback{} // motor now reports the new zero frame
		So(m.ZeroPosition(), ShouldBeNil)
		So(link.zeros, ShouldEqual, 1)

		// the next update must not chase the pre-zero target
		m.Update()
		So(link.lastTx.PositionTarget, ShouldEqual, 0)
	})
}

func TestCheckConnection(t *testing.T) {
	Convey("an unpowered motor reports not alive", t, func() {
		_, _, m := createTestMotor()

		So(m.CheckConnection(), ShouldBeFalse)
	})

	Convey("a live round trip reports alive and preserves the intent", t, func() {
		link, _, m := createTestMotor()
		So(m.Enable(), ShouldBeNil)
		m.SetTorque(1.0)

		So(m.CheckConnection(), ShouldBeTrue)
		So(link.lastTx.Kp, ShouldEqual, 0)
		So(link.lastTx.Feedforward, ShouldEqual, 0)
		So(m.Pending().Mode, ShouldEqual, ModeTorque)
		So(m.Pending().Torque, ShouldEqual, 1.0)

		Convey("and not alive once the link dies", func() {
			link.txerr = true
			So(m.CheckConnection(), ShouldBeFalse)
		})
	})
}

func TestFollowTrajectory(t *testing.T) {
	Convey("a timed move streams waypoints and finishes on the target", t, func() {
		link, clock, m := createTestMotor()
		link.fb = Feedback{}
		So(m.Enable(), ShouldBeNil)

		traj := m.StartTrajectory(1.0, 2.0, MinimumJerk)
		So(traj, ShouldNotBeNil)

		var done bool
		var err error
		for i := 0; i < 201 && !done; i++ {
			clock.advance(10 * time.Millisecond)
			_, done, err = m.FollowTrajectory(traj)
			So(err, ShouldBeNil)
		}

		So(done, ShouldBeTrue)
		So(link.lastTx.PositionTarget, ShouldEqual, 1.0)
		So(link.lastTx.VelocityTarget, ShouldEqual, 0)
	})

	Convey("a short duration is a step command", t, func() {
		_, _, m := createTestMotor()

		traj := m.StartTrajectory(1.0, 0.0, MinimumJerk)
		So(traj, ShouldBeNil)
		So(m.Pending().Mode, ShouldEqual, ModePosition)
		So(m.Pending().Position, ShouldEqual, 1.0)
	})
}
