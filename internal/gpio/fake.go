package gpio

import "time"

// FakeBoard is a test double recording output writes and letting tests
// inject door-switch presses.
type FakeBoard struct {
	// FanWrites contains every value written to the fan motor, in order.
	FanWrites []bool

	// LEDWrites contains every value written to the door LED, in order.
	LEDWrites []bool

	// SetFanError, if set, will be returned by SetFanMotor.
	SetFanError error

	// SetLEDError, if set, will be returned by SetDoorLED.
	SetLEDError error

	// Closed tracks if Close was called.
	Closed bool

	ledOn  bool
	events chan DoorEvent
}

// NewFakeBoard creates a FakeBoard for testing.
func NewFakeBoard() *FakeBoard {
	return &FakeBoard{events: make(chan DoorEvent, 8)}
}

// SetFanMotor records the fan write.
func (f *FakeBoard) SetFanMotor(on bool) error {
	if f.SetFanError != nil {
		return f.SetFanError
	}
	f.FanWrites = append(f.FanWrites, on)
	return nil
}

// SetDoorLED records the LED write.
func (f *FakeBoard) SetDoorLED(on bool) error {
	if f.SetLEDError != nil {
		return f.SetLEDError
	}
	f.LEDWrites = append(f.LEDWrites, on)
	f.ledOn = on
	return nil
}

// DoorLED reports the last LED write.
func (f *FakeBoard) DoorLED() bool {
	return f.ledOn
}

// DoorEvents delivers presses injected with PressDoorSwitch.
func (f *FakeBoard) DoorEvents() <-chan DoorEvent {
	return f.events
}

// PressDoorSwitch simulates one debounced press of the door button.
func (f *FakeBoard) PressDoorSwitch(at time.Time) {
	f.events <- DoorEvent{Time: at}
}

// Close marks the board as closed.
func (f *FakeBoard) Close() error {
	f.Closed = true
	return nil
}

// LastFan returns the last fan write, or false if none happened.
func (f *FakeBoard) LastFan() bool {
	if len(f.FanWrites) == 0 {
		return false
	}
	return f.FanWrites[len(f.FanWrites)-1]
}
