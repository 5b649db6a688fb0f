package telemetry

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nhonchu/fridge-truck/internal/sim"
)

// MaxSamples is the number of samples accumulated before a batch is pushed.
const MaxSamples = 6

// ErrSeriesFull is returned when appending to an already-full batch; the
// caller must drain and retry.
var ErrSeriesFull = errors.New("telemetry: series batch full")

// Accumulator collects simulation samples into time-series batches.
// Not safe for concurrent use — the run loop owns it.
type Accumulator struct {
	truckID  string
	batchID  string
	openedAt time.Time
	samples  []SeriesSample
}

// NewAccumulator creates an accumulator for a truck.
func NewAccumulator(truckID string) *Accumulator {
	return &Accumulator{truckID: truckID}
}

// Empty reports whether no batch is open.
func (a *Accumulator) Empty() bool {
	return len(a.samples) == 0
}

// Len returns the number of pending samples.
func (a *Accumulator) Len() int {
	return len(a.samples)
}

// Append adds a sample, opening a new batch when none is pending.
// The returned flag is true once the batch holds MaxSamples and must be
// drained. Appending past that returns ErrSeriesFull.
func (a *Accumulator) Append(s sim.Sample, now time.Time) (bool, error) {
	if len(a.samples) >= MaxSamples {
		return true, ErrSeriesFull
	}

	if len(a.samples) == 0 {
		a.batchID = uuid.NewString()
		a.openedAt = now
	}

	a.samples = append(a.samples, SeriesSample{
		TimestampMs: s.TimestampMs,
		Temperature: s.Temperature,
		FanDuration: s.FanDuration,
	})

	return len(a.samples) >= MaxSamples, nil
}

// Drain returns the pending batch and resets the accumulator.
func (a *Accumulator) Drain(now time.Time) Series {
	s := Series{
		BatchID:  a.batchID,
		TruckID:  a.truckID,
		OpenedAt: a.openedAt.UTC().Format(time.RFC3339),
		ClosedAt: now.UTC().Format(time.RFC3339),
		Samples:  a.samples,
	}
	a.batchID = ""
	a.openedAt = time.Time{}
	a.samples = nil
	return s
}
