package canbus

import (
	"errors"
	"time"

	"github.com/cpsmotion/akmotor/motor"
)

const (
	LINK_MAX_RETRIES = 5
	LINK_TIMEOUT     = 5 * time.Millisecond
)

var (
	ERR_MAX_RETRIES = errors.New("LINK_MAX_RETRIES reached while awaiting feedback")
)

// MotorLink adapts one motor on a CAN bus to the Transport contract. Every
// round trip is send-one-frame, await-one-feedback-frame; frames that get no
// reply within LINK_TIMEOUT are retransmitted up to LINK_MAX_RETRIES times.
// A link must not be shared between motors.
type MotorLink struct {
	bus    CANBusInterface
	id     uint32
	params ModelParams
	rx     chan CANMsg
}

// NewMotorLink registers a listener for the motor's feedback frames. The
// model name selects the packing ranges the firmware uses.
func NewMotorLink(bus CANBusInterface, id uint32, model string) (l *MotorLink, err error) {
	params, err := LookupModel(model)
	if err != nil {
		return nil, err
	}

	l = &MotorLink{
		bus:    bus,
		id:     id,
		params: params,
		rx:     make(chan CANMsg, 4),
	}
	bus.AddListener(id, l.rx)

	return l, nil
}

func (l *MotorLink) Send(cmd motor.DriveCommand) (fb motor.Feedback, err error) {
	msg := CANMsg{ID: l.id, Data: encodeCommand(cmd, l.params)}

	resp, err := l.roundTrip(msg)
	if err != nil {
		return fb, err
	}

	return decodeFeedback(resp.Data, l.params)
}

func (l *MotorLink) PowerOn() error {
	_, err := l.roundTrip(CANMsg{ID: l.id, Data: modeFrame(modeEnter)})
	return err
}

func (l *MotorLink) PowerOff() error {
	_, err := l.roundTrip(CANMsg{ID: l.id, Data: modeFrame(modeExit)})
	return err
}

func (l *MotorLink) Zero() error {
	_, err := l.roundTrip(CANMsg{ID: l.id, Data: modeFrame(modeZero)})
	return err
}

// roundTrip sends a frame and waits for the next feedback frame, resending
// on timeout until LINK_MAX_RETRIES sends have each had a receive window.
func (l *MotorLink) roundTrip(msg CANMsg) (resp CANMsg, err error) {
	for i := 0; i < LINK_MAX_RETRIES; i++ {
		if err = l.bus.SendMsg(msg); err != nil {
			return resp, err
		}

		select {
		case resp = <-l.rx:
			return resp, nil

		case <-time.After(LINK_TIMEOUT):
		}
	}

	return resp, ERR_MAX_RETRIES
}
