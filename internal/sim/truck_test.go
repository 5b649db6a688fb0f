package sim

import (
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	truck := New(DefaultSettings(), DefaultStartTemp)

	st := truck.State()
	if !st.FanOn {
		t.Error("fan should start on")
	}
	if st.DoorOpen {
		t.Error("door should start closed")
	}
	if st.Temperature != DefaultStartTemp {
		t.Errorf("expected start temp %v, got %v", DefaultStartTemp, st.Temperature)
	}
	if st.FanDuration != 0 {
		t.Errorf("expected zero fan duration, got %d", st.FanDuration)
	}
}

func TestTickConvergesToTarget(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	truck := New(DefaultSettings(), RestoredStartTemp) // 5.2 toward 2.2

	sample, events := truck.Tick(now)
	if len(events) != 0 {
		t.Fatalf("expected no events on first tick, got %d", len(events))
	}
	if got, want := sample.Temperature, 4.8; !closeTo(got, want) {
		t.Errorf("temperature: got %v, want %v", got, want)
	}
	if sample.FanDuration != FanDurationStep {
		t.Errorf("fan duration: got %d, want %d", sample.FanDuration, FanDurationStep)
	}
	if sample.TimestampMs != now.UnixMilli() {
		t.Errorf("timestamp: got %d, want %d", sample.TimestampMs, now.UnixMilli())
	}
}

func TestFanStopsAtTarget(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	settings := DefaultSettings()
	truck := New(settings, RestoredStartTemp)

	var stopped *Event
	// 5.2 -> 2.2 at 0.4/tick: stops within 8 ticks.
	for i := 0; i < 10; i++ {
		_, events := truck.Tick(now.Add(time.Duration(i) * settings.DataGenInterval))
		for j := range events {
			if events[j].Type == EventFanStopped {
				stopped = &events[j]
			}
		}
		if stopped != nil {
			break
		}
	}

	if stopped == nil {
		t.Fatal("fan never stopped")
	}
	if stopped.State.FanOn {
		t.Error("event state should have fan off")
	}
	if stopped.State.FanDuration != 0 {
		t.Errorf("fan duration should reset on stop, got %d", stopped.State.FanDuration)
	}
	if stopped.State.Temperature > settings.TargetTemp {
		t.Errorf("temperature %v should be at or below target %v",
			stopped.State.Temperature, settings.TargetTemp)
	}
}

func TestTickConvergesToOutsideWhenFanOff(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	truck := New(DefaultSettings(), DefaultStartTemp)
	truck.SetFan(false, now)

	before := truck.State().Temperature
	sample, events := truck.Tick(now)
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if sample.Temperature <= before {
		t.Errorf("temperature should rise toward outside temp: %v -> %v", before, sample.Temperature)
	}
	if sample.FanDuration != 0 {
		t.Errorf("fan duration should not accumulate with fan off, got %d", sample.FanDuration)
	}
}

func TestTickConvergesToOutsideWhenDoorOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	truck := New(DefaultSettings(), DefaultStartTemp)
	truck.SetDoor(true, now)

	before := truck.State().Temperature
	sample, _ := truck.Tick(now)
	if sample.Temperature <= before {
		t.Errorf("open door should warm the truck: %v -> %v", before, sample.Temperature)
	}
	// Fan still runs while the door is open, so duration accumulates.
	if sample.FanDuration != FanDurationStep {
		t.Errorf("fan duration: got %d, want %d", sample.FanDuration, FanDurationStep)
	}
}

func TestSetFanNoOp(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	truck := New(DefaultSettings(), DefaultStartTemp)

	if events := truck.SetFan(true, now); len(events) != 0 {
		t.Errorf("expected no events for fan no-op, got %d", len(events))
	}
	if events := truck.SetDoor(false, now); len(events) != 0 {
		t.Errorf("expected no events for door no-op, got %d", len(events))
	}
}

func TestFanRestartResetsNothing(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	truck := New(DefaultSettings(), DefaultStartTemp)

	truck.Tick(now) // duration 5
	events := truck.SetFan(false, now)
	if len(events) != 1 || events[0].Type != EventFanStopped {
		t.Fatalf("expected FAN_STOPPED, got %v", events)
	}

	events = truck.SetFan(true, now)
	if len(events) != 1 || events[0].Type != EventFanStarted {
		t.Fatalf("expected FAN_STARTED, got %v", events)
	}
	if truck.State().FanDuration != 0 {
		t.Errorf("duration should still be zero after restart, got %d", truck.State().FanDuration)
	}
}

func TestToggleDoor(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	truck := New(DefaultSettings(), DefaultStartTemp)

	events := truck.ToggleDoor(now)
	if len(events) != 1 || events[0].Type != EventDoorOpened {
		t.Fatalf("expected DOOR_OPENED, got %v", events)
	}
	events = truck.ToggleDoor(now)
	if len(events) != 1 || events[0].Type != EventDoorClosed {
		t.Fatalf("expected DOOR_CLOSED, got %v", events)
	}
}

func TestConvergeOscillatesAroundTarget(t *testing.T) {
	value := 2.0
	converge(2.2, TempStep, &value)
	if !closeTo(value, 2.4) {
		t.Errorf("got %v, want 2.4", value)
	}
	converge(2.2, TempStep, &value)
	if !closeTo(value, 2.0) {
		t.Errorf("got %v, want 2.0", value)
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
