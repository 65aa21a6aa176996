package canbus

import "errors"

// SocketCAN does not exist on darwin; this stub keeps the package compiling
// for development machines. Use the simulated transport instead.

type CANBus struct{}

func NewCANBus(ifname string) (bus *CANBus, err error) {
	return nil, errors.New("SocketCAN is only available on linux")
}

func (c *CANBus) AddListener(motorId uint32, rxchan chan CANMsg) {}

func (c *CANBus) SendMsg(msg CANMsg) error {
	return errors.New("SocketCAN is only available on linux")
}

func (c *CANBus) Close() error {
	return nil
}
