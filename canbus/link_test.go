package canbus

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/cpsmotion/akmotor/motor"
)

type testBus struct {
	txerr     bool
	rxecho    bool
	echoAfter int // reply only from the Nth send onwards
	txCount   int
	lastTx    CANMsg
	feedback  []byte
	listeners map[uint32]chan CANMsg
}

func (t *testBus) AddListener(motorId uint32, rxchan chan CANMsg) {
	t.listeners[motorId] = rxchan
}

func (t *testBus) SendMsg(msg CANMsg) error {
	t.lastTx = msg
	t.txCount++
	if t.txerr {
		return errors.New("this is a simulated tx error")
	}

	if t.rxecho || (t.echoAfter > 0 && t.txCount >= t.echoAfter) {
		c, ok := t.listeners[uint32(t.feedback[0])]
		if !ok || c == nil {
			return errors.New("unable to find listener")
		}
		c <- CANMsg{ID: 0, Data: t.feedback}
	}

	return nil
}

func createTestLink() (tBus *testBus, link *MotorLink) {
	tBus = &testBus{
		listeners: make(map[uint32]chan CANMsg),
		// mid-scale rest frame for motor id 2
		feedback: []byte{0x02, 0x7F, 0xFF, 0x7F, 0xF7, 0xFF, 30, 0},
	}

	link, err := NewMotorLink(tBus, 2, "AK80-6")
	if err != nil {
		panic(err)
	}
	return
}

func TestMotorLink(t *testing.T) {
	Convey("a round trip decodes the feedback frame", t, func() {
		tBus, link := createTestLink()
		tBus.rxecho = true

		fb, err := link.Send(motor.DriveCommand{PositionTarget: 1.0})

		So(err, ShouldBeNil)
		So(tBus.lastTx.ID, ShouldEqual, uint32(2))
		So(len(tBus.lastTx.Data), ShouldEqual, 8)
		So(fb.Temperature, ShouldEqual, 30.0)
	})

	Convey("send retries until LINK_MAX_RETRIES before giving up", t, func() {
		tBus, link := createTestLink()

		_, err := link.Send(motor.DriveCommand{})

		So(err, ShouldEqual, ERR_MAX_RETRIES)
		So(tBus.txCount, ShouldEqual, LINK_MAX_RETRIES)
	})

	Convey("a reply to the final retransmission is still received", t, func() {
		tBus, link := createTestLink()
		tBus.echoAfter = LINK_MAX_RETRIES

		fb, err := link.Send(motor.DriveCommand{})

		So(err, ShouldBeNil)
		So(tBus.txCount, ShouldEqual, LINK_MAX_RETRIES)
		So(fb.Temperature, ShouldEqual, 30.0)
	})

	Convey("a bus tx failure surfaces immediately", t, func() {
		tBus, link := createTestLink()
		tBus.txerr = true

		_, err := link.Send(motor.DriveCommand{})
		So(err, ShouldNotBeNil)
		So(tBus.txCount, ShouldEqual, 1)
	})

	Convey("power and zero sequences transmit their mode frames", t, func() {
		tBus, link := createTestLink()
		tBus.rxecho = true

		So(link.PowerOn(), ShouldBeNil)
		So(tBus.lastTx.Data[7], ShouldEqual, byte(modeEnter))

		So(link.PowerOff(), ShouldBeNil)
		So(tBus.lastTx.Data[7], ShouldEqual, byte(modeExit))

		So(link.Zero(), ShouldBeNil)
		So(tBus.lastTx.Data[7], ShouldEqual, byte(modeZero))
	})

	Convey("an unknown model is refused", t, func() {
		tBus := &testBus{listeners: make(map[uint32]chan CANMsg)}
		_, err := NewMotorLink(tBus, 1, "AK99-1")
		So(err, ShouldNotBeNil)
	})
}
