package telemetry

import (
	"time"

	"github.com/nhonchu/fridge-truck/internal/position"
	"github.com/nhonchu/fridge-truck/internal/sim"
)

// FakePublisher records everything published, for test assertions.
type FakePublisher struct {
	// States contains every state push (with its timestamp).
	States []StatePush

	// Series contains every published batch.
	Series []Series

	// Positions contains every published fix.
	Positions []position.Fix

	// SettingsEchoes contains every settings echo.
	SettingsEchoes []sim.Settings

	// SystemEvents contains every lifecycle event.
	SystemEvents []SystemEvent

	// Acks contains every command ack.
	Acks []CommandAck

	// StateError, SeriesError, etc., if set, are returned by the
	// corresponding Publish method.
	StateError    error
	SeriesError   error
	PositionError error
	SettingsError error
	SystemError   error
	AckError      error

	// Connected controls IsConnected and whether PublishSeries accepts
	// batches.
	Connected bool

	// Closed tracks if Close was called.
	Closed bool
}

// StatePush pairs a recorded state with its publish time.
type StatePush struct {
	State sim.State
	Time  time.Time
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

// PublishState records the state push.
func (f *FakePublisher) PublishState(st sim.State, now time.Time) error {
	if f.StateError != nil {
		return f.StateError
	}
	f.States = append(f.States, StatePush{State: st, Time: now})
	return nil
}

// PublishSeries records the batch. While Connected is false it returns
// ErrNotConnected without recording, mirroring the real client's refusal to
// hold batches in the volatile outbox.
func (f *FakePublisher) PublishSeries(s Series) error {
	if f.SeriesError != nil {
		return f.SeriesError
	}
	if !f.Connected {
		return ErrNotConnected
	}
	f.Series = append(f.Series, s)
	return nil
}

// PublishPosition records the fix.
func (f *FakePublisher) PublishPosition(fix position.Fix) error {
	if f.PositionError != nil {
		return f.PositionError
	}
	f.Positions = append(f.Positions, fix)
	return nil
}

// PublishSettings records the echo.
func (f *FakePublisher) PublishSettings(set sim.Settings) error {
	if f.SettingsError != nil {
		return f.SettingsError
	}
	f.SettingsEchoes = append(f.SettingsEchoes, set)
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.SystemError != nil {
		return f.SystemError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// PublishCommandAck records the ack.
func (f *FakePublisher) PublishCommandAck(ack CommandAck) error {
	if f.AckError != nil {
		return f.AckError
	}
	f.Acks = append(f.Acks, ack)
	return nil
}

// IsConnected reports the scripted connection state.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// Reset clears all recorded messages and errors.
func (f *FakePublisher) Reset() {
	f.States = nil
	f.Series = nil
	f.Positions = nil
	f.SettingsEchoes = nil
	f.SystemEvents = nil
	f.Acks = nil
	f.StateError = nil
	f.SeriesError = nil
	f.PositionError = nil
	f.SettingsError = nil
	f.SystemError = nil
	f.AckError = nil
	f.Closed = false
	f.Connected = true
}
