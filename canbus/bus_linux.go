package canbus

import (
	"encoding/binary"
	"net"

	"golang.org/x/sys/unix"
)

const (
	frameSize = 16 // struct can_frame

	// raw socket options; x/sys/unix does not export these
	solCANRaw      = 101 // SOL_CAN_BASE + CAN_RAW
	canRawLoopback = 3   // CAN_RAW_LOOPBACK
)

// CANBus is a SocketCAN connection to one interface. Feedback frames are
// routed to listeners by the motor id in the first payload byte, since MIT
// mode replies all arrive under the master arbitration id.
type CANBus struct {
	fd   int
	rx   map[uint32]chan CANMsg
	tx   chan CANMsg
	open bool
}

func NewCANBus(ifname string) (bus *CANBus, err error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return
	}

	bus = new(CANBus)
	bus.fd, err = unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return
	}
	unix.SetsockoptInt(bus.fd, solCANRaw, canRawLoopback, 0)

	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err = unix.Bind(bus.fd, addr); err != nil {
		return
	}

	bus.rx = make(map[uint32]chan CANMsg)
	bus.tx = make(chan CANMsg)

	bus.open = true
	go bus.reader()
	go bus.writer()

	return
}

func (c *CANBus) AddListener(motorId uint32, rxchan chan CANMsg) {
	c.rx[motorId] = rxchan
}

func (c *CANBus) SendMsg(msg CANMsg) error {
	if !c.open {
		return ERR_BUS_CLOSED
	}
	if len(msg.Data) > CANMaxData {
		return ERR_DATA_TOO_LONG
	}

	c.tx <- msg
	return nil
}

func (c *CANBus) Close() error {
	c.open = false
	return unix.Close(c.fd)
}

func (c *CANBus) writer() {
	for c.open {
		msg := <-c.tx

		raw := make([]byte, frameSize)
		binary.LittleEndian.PutUint32(raw[0:4], msg.ID)
		raw[4] = byte(len(msg.Data))
		copy(raw[8:], msg.Data)

		unix.Write(c.fd, raw)
	}
}

func (c *CANBus) reader() {
	for c.open {
		raw := make([]byte, frameSize)
		n, err := unix.Read(c.fd, raw)
		if err != nil || n < frameSize {
			continue
		}

		msg := CANMsg{
			ID:   binary.LittleEndian.Uint32(raw[0:4]) & unix.CAN_SFF_MASK,
			Data: framePayload(raw),
		}

		// route by the motor id embedded in the payload
		if len(msg.Data) > 0 {
			if ch, ok := c.rx[uint32(msg.Data[0])]; ok {
				ch <- msg
				continue
			}
		}
		if ch, ok := c.rx[msg.ID]; ok {
			ch <- msg
		}
	}
}
