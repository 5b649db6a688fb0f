// Package sim contains the pure simulation model for the refrigerated truck.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package sim

import "time"

// Simulation constants.
const (
	// DefaultStartTemp is the truck temperature on a first-ever start.
	DefaultStartTemp = 4.2
	// RestoredStartTemp is the truck temperature when settings were restored
	// from a previous run.
	RestoredStartTemp = 5.2
	// TempStep is the temperature increment applied per data-gen tick.
	TempStep = 0.4
	// FanDurationStep is the fan-duration increment per tick while the fan runs.
	FanDurationStep = 5
)

// Settings holds the cloud-writable, persisted truck settings.
type Settings struct {
	TargetTemp       float64       // regulated temperature, °C
	OutsideTemp      int           // outside air temperature, °C
	DataGenInterval  time.Duration // simulation / sample-accumulation period
	DataPushInterval time.Duration // fan/door state push period
	BoardRev         string        // carrier board revision (pin mapping)
}

// DefaultSettings returns the factory settings used when no config exists.
func DefaultSettings() Settings {
	return Settings{
		TargetTemp:       2.2,
		OutsideTemp:      27,
		DataGenInterval:  5 * time.Second,
		DataPushInterval: 20 * time.Second,
		BoardRev:         "A",
	}
}

// State is the mutable truck state.
type State struct {
	FanOn       bool
	FanDuration int // accumulated while the fan runs, reset when it stops
	Temperature float64
	DoorOpen    bool
}

// EventType represents a state transition.
type EventType string

const (
	EventFanStarted EventType = "FAN_STARTED"
	EventFanStopped EventType = "FAN_STOPPED"
	EventDoorOpened EventType = "DOOR_OPENED"
	EventDoorClosed EventType = "DOOR_CLOSED"
)

// Event represents a state transition together with the resulting state.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
}

// Sample is one time-series datapoint collected on a data-gen tick.
type Sample struct {
	TimestampMs int64 // epoch milliseconds
	Temperature float64
	FanDuration int
}
