//go:build linux

package canbus

import (
	"log"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// CANBus talks to a SocketCAN interface such as can0.
type CANBus struct {
	listeners

	fd        int
	tx        chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewCANBus(ifname string) (bus *CANBus, err error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return
	}

	// our own frames are not interesting to us, and reads wake up often
	// enough to notice Close
	if err = unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_LOOPBACK, 0); err != nil {
		unix.Close(fd)
		return nil, err
	}
	tv := unix.Timeval{Usec: 100000}
	if err = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err = unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, err
	}

	bus = &CANBus{
		fd:   fd,
		tx:   make(chan []byte, 64),
		done: make(chan struct{}),
	}

	go bus.reader()
	go bus.writer()

	return
}

func (c *CANBus) SendMsg(msg CANMsg) error {
	raw, err := msg.toByteArray()
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ERR_BUS_CLOSED
	default:
	}

	select {
	case c.tx <- raw:
		return nil
	case <-c.done:
		return ERR_BUS_CLOSED
	}
}

func (c *CANBus) Close() error {
	err := ERR_BUS_CLOSED
	c.closeOnce.Do(func() {
		close(c.done)
		err = unix.Close(c.fd)
	})
	return err
}

func (c *CANBus) writer() {
	for {
		select {
		case raw := <-c.tx:
			if _, err := unix.Write(c.fd, raw); err != nil {
				log.Printf("canbus: write failed: %v", err)
			}
		case <-c.done:
			return
		}
	}
}

func (c *CANBus) reader() {
	raw := make([]byte, CAN_MTU)
	for {
		n, err := unix.Read(c.fd, raw)

		select {
		case <-c.done:
			return
		default:
		}

		if err == unix.EAGAIN || err == unix.EINTR {
			continue
		} else if err != nil {
			log.Printf("canbus: read failed: %v", err)
			continue
		}

		msg, err := msgFromByteArray(raw[:n])
		if err != nil {
			continue
		}
		c.dispatch(*msg)
	}
}
