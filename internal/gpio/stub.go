//go:build !linux

package gpio

import "errors"

// RealBoard is not available on non-Linux platforms.
type RealBoard struct{}

// NewRealBoard returns an error on non-Linux platforms.
func NewRealBoard(rev string) (*RealBoard, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetFanMotor is not implemented on non-Linux platforms.
func (b *RealBoard) SetFanMotor(on bool) error {
	return errors.New("gpio: not supported")
}

// SetDoorLED is not implemented on non-Linux platforms.
func (b *RealBoard) SetDoorLED(on bool) error {
	return errors.New("gpio: not supported")
}

// DoorLED is not implemented on non-Linux platforms.
func (b *RealBoard) DoorLED() bool {
	return false
}

// DoorEvents is not implemented on non-Linux platforms.
func (b *RealBoard) DoorEvents() <-chan DoorEvent {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (b *RealBoard) Close() error {
	return nil
}
