package sim

import "time"

// Truck simulates the refrigerated compartment of a single truck.
//
// With the fan on and the door closed the temperature converges toward the
// target temperature; once the target is reached the fan stops by itself.
// With the fan off or the door open the temperature converges toward the
// outside air temperature.
type Truck struct {
	settings Settings
	state    State
}

// New creates a truck with the given settings and starting temperature.
// The fan starts on and the door closed, matching the scenario baseline.
func New(settings Settings, startTemp float64) *Truck {
	return &Truck{
		settings: settings,
		state: State{
			FanOn:       true,
			Temperature: startTemp,
		},
	}
}

// State returns a copy of the current truck state.
func (t *Truck) State() State {
	return t.state
}

// Settings returns a copy of the current settings.
func (t *Truck) Settings() Settings {
	return t.settings
}

// SetSettings replaces the settings. Interval changes only affect the
// timers owned by the caller; the simulation itself is tick-based.
func (t *Truck) SetSettings(s Settings) {
	t.settings = s
}

// Tick advances the simulation by one data-gen period and returns the
// sample to accumulate plus any events caused by the tick (the fan stops
// itself when the target temperature is reached).
func (t *Truck) Tick(now time.Time) (Sample, []Event) {
	var events []Event

	if t.state.FanOn && !t.state.DoorOpen {
		converge(t.settings.TargetTemp, TempStep, &t.state.Temperature)

		if t.state.Temperature <= t.settings.TargetTemp {
			events = append(events, t.SetFan(false, now)...)
		}
	} else {
		converge(float64(t.settings.OutsideTemp), TempStep, &t.state.Temperature)
	}

	if t.state.FanOn {
		t.state.FanDuration += FanDurationStep
	}

	return Sample{
		TimestampMs: now.UnixMilli(),
		Temperature: t.state.Temperature,
		FanDuration: t.state.FanDuration,
	}, events
}

// SetFan switches the fan on or off. Stopping the fan resets the duration
// counter. Returns the transition event, or nothing for a no-op.
func (t *Truck) SetFan(on bool, now time.Time) []Event {
	if t.state.FanOn == on {
		return nil
	}
	t.state.FanOn = on
	typ := EventFanStarted
	if !on {
		t.state.FanDuration = 0
		typ = EventFanStopped
	}
	return []Event{{Timestamp: now, Type: typ, State: t.state}}
}

// SetDoor opens or closes the door. Returns the transition event, or
// nothing for a no-op.
func (t *Truck) SetDoor(open bool, now time.Time) []Event {
	if t.state.DoorOpen == open {
		return nil
	}
	t.state.DoorOpen = open
	typ := EventDoorClosed
	if open {
		typ = EventDoorOpened
	}
	return []Event{{Timestamp: now, Type: typ, State: t.state}}
}

// ToggleDoor inverts the door state (push-button behavior).
func (t *Truck) ToggleDoor(now time.Time) []Event {
	return t.SetDoor(!t.state.DoorOpen, now)
}

// converge moves value one step toward target. The value may oscillate
// around the target by up to one step; the caller decides when "reached"
// means anything (the fan cut-off uses value <= target).
func converge(target, step float64, value *float64) {
	if *value < target {
		*value += step
	} else {
		*value -= step
	}
}
