//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const chipName = "gpiochip0"

// RealBoard drives actual hardware through the Linux GPIO character device.
type RealBoard struct {
	chip       *gpiocdev.Chip
	doorSwitch *gpiocdev.Line
	doorLED    *gpiocdev.Line
	fanMotor   *gpiocdev.Line

	// last values written; only mutated from the run loop goroutine
	ledOn bool

	events chan DoorEvent
}

// NewRealBoard opens the carrier-board lines for the given revision.
// The door switch is requested with pull-up and rising-edge detection
// (push button to ground), both outputs start low.
func NewRealBoard(rev string) (*RealBoard, error) {
	pins := PinsForRev(rev)

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealBoard{
		chip:   chip,
		events: make(chan DoorEvent, 8),
	}

	b.doorSwitch, err = chip.RequestLine(pins.DoorSwitch,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithDebounce(DebouncePeriod),
		gpiocdev.WithEventHandler(b.onDoorEdge))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request door switch pin %d: %w", pins.DoorSwitch, err)
	}

	b.doorLED, err = chip.RequestLine(pins.DoorLED, gpiocdev.AsOutput(0))
	if err != nil {
		b.doorSwitch.Close()
		chip.Close()
		return nil, fmt.Errorf("request door LED pin %d: %w", pins.DoorLED, err)
	}

	b.fanMotor, err = chip.RequestLine(pins.FanMotor, gpiocdev.AsOutput(0))
	if err != nil {
		b.doorLED.Close()
		b.doorSwitch.Close()
		chip.Close()
		return nil, fmt.Errorf("request fan motor pin %d: %w", pins.FanMotor, err)
	}

	return b, nil
}

// onDoorEdge runs on the gpiocdev event goroutine. The channel is buffered;
// presses arriving while the loop is busy beyond that are dropped.
func (b *RealBoard) onDoorEdge(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventRisingEdge {
		return
	}
	select {
	case b.events <- DoorEvent{Time: time.Now()}:
	default:
	}
}

// SetFanMotor drives the fan-motor indicator output.
func (b *RealBoard) SetFanMotor(on bool) error {
	if err := b.fanMotor.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set fan motor: %w", err)
	}
	return nil
}

// SetDoorLED drives the door LED output.
func (b *RealBoard) SetDoorLED(on bool) error {
	if err := b.doorLED.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set door LED: %w", err)
	}
	b.ledOn = on
	return nil
}

// DoorLED reports the last value written to the door LED.
func (b *RealBoard) DoorLED() bool {
	return b.ledOn
}

// DoorEvents delivers debounced door-switch presses.
func (b *RealBoard) DoorEvents() <-chan DoorEvent {
	return b.events
}

// Close turns both outputs off and releases GPIO resources.
func (b *RealBoard) Close() error {
	var errs []error

	if b.fanMotor != nil {
		if err := b.fanMotor.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear fan motor: %w", err))
		}
		if err := b.fanMotor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close fan motor: %w", err))
		}
	}
	if b.doorLED != nil {
		if err := b.doorLED.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear door LED: %w", err))
		}
		if err := b.doorLED.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close door LED: %w", err))
		}
	}
	if b.doorSwitch != nil {
		if err := b.doorSwitch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close door switch: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
