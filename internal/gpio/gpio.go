// Package gpio abstracts the carrier-board peripherals: the door push
// button, the door LED and the fan-motor indicator.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// DoorEvent is a debounced rising edge on the door switch.
type DoorEvent struct {
	Time time.Time
}

// Board drives the carrier-board peripherals.
type Board interface {
	// SetFanMotor drives the fan-motor indicator output.
	SetFanMotor(on bool) error

	// SetDoorLED drives the door LED output.
	SetDoorLED(on bool) error

	// DoorLED reports the last value written to the door LED.
	// The door toggle handler inverts this to decide the new door state.
	DoorLED() bool

	// DoorEvents delivers debounced door-switch presses.
	DoorEvents() <-chan DoorEvent

	// Close releases GPIO resources.
	Close() error
}

// Pins is the line-offset mapping for one board revision.
type Pins struct {
	DoorSwitch int
	DoorLED    int
	FanMotor   int
}

// Line offsets of the IoT expansion slot, per carrier board revision.
var pinsByRev = map[string]Pins{
	"A": {DoorSwitch: 24, DoorLED: 25, FanMotor: 26},
	"B": {DoorSwitch: 7, DoorLED: 8, FanMotor: 13},
}

// PinsForRev returns the pin mapping for a board revision.
// Unknown revisions fall back to rev A.
func PinsForRev(rev string) Pins {
	if p, ok := pinsByRev[rev]; ok {
		return p
	}
	return pinsByRev["A"]
}

// DebouncePeriod is the hardware debounce applied to the door switch.
const DebouncePeriod = 100 * time.Millisecond
