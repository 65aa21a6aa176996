package canbus

import (
	"errors"
)

const (
	// classic CAN payload limit; every MIT mode frame uses the full 8 bytes
	CANMaxData = 8
)

// errors
var (
	ERR_DATA_TOO_LONG = errors.New("data length exceeds 8 bytes")
	ERR_BUS_CLOSED    = errors.New("bus is closed")
)

// CANMsg is one frame on the bus. For command frames ID is the motor's CAN
// id; feedback frames carry the motor id in Data[0] instead.
type CANMsg struct {
	ID   uint32 // arbitration id
	Data []byte // raw payload up to 8 bytes. DLC is taken from len(Data).
}

type CANBusInterface interface {
	SendMsg(msg CANMsg) error
	AddListener(motorId uint32, rxchan chan CANMsg)
}

// framePayload slices the data bytes out of a raw socket frame. The DLC byte
// comes off the wire, so it is clamped to CANMaxData before slicing.
func framePayload(raw []byte) []byte {
	dlc := int(raw[4])
	if dlc > CANMaxData {
		dlc = CANMaxData
	}
	return raw[8 : 8+dlc]
}
