// Package telemetry exchanges data with the cloud device-management
// service over MQTT, with abstraction for testing.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nhonchu/fridge-truck/internal/position"
	"github.com/nhonchu/fridge-truck/internal/sim"
)

// ErrNotConnected reports a publish that was not attempted because the
// broker connection is down. Series batches get it instead of being held in
// the volatile outbox, so the caller can spool them durably.
var ErrNotConnected = errors.New("telemetry: not connected to broker")

// topicRoot prefixes every topic of every truck in the fleet.
const topicRoot = "fleet/trucks"

// Topics holds the MQTT topics for one truck.
type Topics struct {
	State       string // fan/door state pushes
	Series      string // time-series batches
	Position    string // position fixes
	System      string // lifecycle events (startup, shutdown, offline will)
	Settings    string // retained echo of current settings
	SettingsSet string // subscribed: cloud-initiated setting writes
	Command     string // subscribed: cloud-initiated commands
	CommandAck  string // command execution results
}

// TopicsFor returns the topic set for a truck ID.
func TopicsFor(truckID string) Topics {
	root := topicRoot + "/" + truckID
	return Topics{
		State:       root + "/state",
		Series:      root + "/series",
		Position:    root + "/position",
		System:      root + "/system",
		Settings:    root + "/settings",
		SettingsSet: root + "/settings/set",
		Command:     root + "/cmd",
		CommandAck:  root + "/cmd/ack",
	}
}

// Publisher publishes truck data to the cloud service.
type Publisher interface {
	// PublishState sends the fan/door state (data-push tick, fan auto-stop,
	// door toggle).
	PublishState(st sim.State, now time.Time) error

	// PublishSeries sends a flushed time-series batch.
	PublishSeries(s Series) error

	// PublishPosition sends a position fix (pushed when a batch opens).
	PublishPosition(fix position.Fix) error

	// PublishSettings sends the retained settings echo.
	PublishSettings(set sim.Settings) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(event SystemEvent) error

	// PublishCommandAck reports a command execution result.
	PublishCommandAck(ack CommandAck) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the cloud connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// StatePayload is the envelope for fan/door state messages.
type StatePayload struct {
	Truck TruckState `json:"truck"`
}

// TruckState contains the reported state.
type TruckState struct {
	Timestamp string    `json:"timestamp"`
	Fan       FanState  `json:"fan"`
	Door      DoorState `json:"door"`
}

// FanState reports the fan.
type FanState struct {
	IsOn     bool `json:"is_on"`
	Duration int  `json:"duration"`
}

// DoorState reports the door.
type DoorState struct {
	IsOpen bool `json:"is_open"`
}

// FormatState creates the JSON payload for a state push.
func FormatState(st sim.State, now time.Time) ([]byte, error) {
	payload := StatePayload{
		Truck: TruckState{
			Timestamp: now.UTC().Format(time.RFC3339),
			Fan:       FanState{IsOn: st.FanOn, Duration: st.FanDuration},
			Door:      DoorState{IsOpen: st.DoorOpen},
		},
	}
	return json.Marshal(payload)
}

// Series is one time-series batch: up to MaxSamples timestamped samples
// flushed together.
type Series struct {
	BatchID  string         `json:"batch_id"`
	TruckID  string         `json:"truck_id"`
	OpenedAt string         `json:"opened_at"`
	ClosedAt string         `json:"closed_at"`
	Samples  []SeriesSample `json:"samples"`
}

// SeriesSample is one datapoint inside a batch.
type SeriesSample struct {
	TimestampMs int64   `json:"ts_ms"`
	Temperature float64 `json:"temperature"`
	FanDuration int     `json:"fan_duration"`
}

// FormatSeries creates the JSON payload for a batch.
func FormatSeries(s Series) ([]byte, error) {
	return json.Marshal(s)
}

// PositionPayload is the envelope for position messages.
type PositionPayload struct {
	Position PositionInner `json:"position"`
}

// PositionInner contains the fix details.
type PositionInner struct {
	Timestamp string  `json:"timestamp"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Quality   string  `json:"quality"`
}

// FormatPosition creates the JSON payload for a position fix.
func FormatPosition(fix position.Fix) ([]byte, error) {
	payload := PositionPayload{
		Position: PositionInner{
			Timestamp: fix.Time.UTC().Format(time.RFC3339),
			Lat:       fix.Lat,
			Lon:       fix.Lon,
			Quality:   fix.Quality,
		},
	}
	return json.Marshal(payload)
}

// SettingsPayload is the envelope for the retained settings echo.
type SettingsPayload struct {
	Settings SettingsInner `json:"settings"`
}

// SettingsInner mirrors the cloud-writable settings. Intervals are
// reported in whole seconds, as the cloud writes them.
type SettingsInner struct {
	TargetTemp      float64 `json:"target_temp"`
	OutsideTemp     int     `json:"outside_temp"`
	DataGenSeconds  int     `json:"datagen_s"`
	DataPushSeconds int     `json:"datapush_s"`
	BoardRev        string  `json:"board_rev"`
}

// FormatSettings creates the JSON payload for the settings echo.
func FormatSettings(set sim.Settings) ([]byte, error) {
	payload := SettingsPayload{
		Settings: SettingsInner{
			TargetTemp:      set.TargetTemp,
			OutsideTemp:     set.OutsideTemp,
			DataGenSeconds:  int(set.DataGenInterval / time.Second),
			DataPushSeconds: int(set.DataPushInterval / time.Second),
			BoardRev:        set.BoardRev,
		},
	}
	return json.Marshal(payload)
}

// SystemEvent represents a lifecycle event (startup, shutdown, offline).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted payload; if set, used as-is
	Retained   bool
}

// SystemPayload is the envelope for simple system events.
type SystemPayload struct {
	System SystemInner `json:"system"`
}

// SystemInner contains the system event details.
type SystemInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// RawPayload, when set, is returned directly (used for status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	payload := SystemPayload{
		System: SystemInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Command ack results.
const (
	AckOK    = "OK"
	AckError = "ERROR"
)

// CommandAck reports the outcome of a cloud-initiated command.
type CommandAck struct {
	Command   string
	Result    string
	Detail    string
	Timestamp time.Time
}

// AckPayload is the envelope for command acks.
type AckPayload struct {
	Ack AckInner `json:"ack"`
}

// AckInner contains the ack details.
type AckInner struct {
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
	Result    string `json:"result"`
	Detail    string `json:"detail,omitempty"`
}

// FormatCommandAck creates the JSON payload for a command ack.
func FormatCommandAck(ack CommandAck) ([]byte, error) {
	payload := AckPayload{
		Ack: AckInner{
			Timestamp: ack.Timestamp.UTC().Format(time.RFC3339),
			Command:   ack.Command,
			Result:    ack.Result,
			Detail:    ack.Detail,
		},
	}
	return json.Marshal(payload)
}

// Kind distinguishes the two cloud-initiated message types.
type Kind string

const (
	KindSettingWrite Kind = "setting"
	KindCommand      Kind = "command"
)

// Inbound is one cloud-initiated message, delivered to the run loop so
// that all state mutation stays on a single goroutine.
type Inbound struct {
	Kind  Kind
	Name  string          // setting field or command name
	Value json.RawMessage // setting value; nil for commands
	Time  time.Time
}

// Float64 decodes the setting value as a float.
func (i Inbound) Float64() (float64, error) {
	var v float64
	if err := json.Unmarshal(i.Value, &v); err != nil {
		return 0, fmt.Errorf("setting %q: decode float: %w", i.Name, err)
	}
	return v, nil
}

// Int decodes the setting value as an integer.
func (i Inbound) Int() (int, error) {
	var v int
	if err := json.Unmarshal(i.Value, &v); err != nil {
		return 0, fmt.Errorf("setting %q: decode int: %w", i.Name, err)
	}
	return v, nil
}

// Seconds decodes the setting value as a whole-second duration.
func (i Inbound) Seconds() (time.Duration, error) {
	v, err := i.Int()
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("setting %q: interval must be positive, got %d", i.Name, v)
	}
	return time.Duration(v) * time.Second, nil
}

// Text decodes the setting value as a string.
func (i Inbound) Text() (string, error) {
	var v string
	if err := json.Unmarshal(i.Value, &v); err != nil {
		return "", fmt.Errorf("setting %q: decode string: %w", i.Name, err)
	}
	return v, nil
}

// settingWriteMsg is the wire format on the settings/set topic.
type settingWriteMsg struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// commandMsg is the wire format on the cmd topic.
type commandMsg struct {
	Command string `json:"command"`
}
