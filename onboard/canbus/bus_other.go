//go:build !linux

package canbus

import "errors"

var ERR_UNSUPPORTED = errors.New("SocketCAN is only available on linux, use a serial bus")

// CANBus is only implemented on linux.
type CANBus struct {
	listeners
}

func NewCANBus(ifname string) (*CANBus, error) {
	return nil, ERR_UNSUPPORTED
}

func (c *CANBus) SendMsg(msg CANMsg) error {
	return ERR_UNSUPPORTED
}

func (c *CANBus) Close() error {
	return ERR_UNSUPPORTED
}
