// Package status provides a thread-safe status tracker for the fridge-truck
// daemon. It is read by the HTTP handlers, the websocket feed, and the
// system-event payloads.
package status

import (
	"sync"
	"time"

	"github.com/nhonchu/fridge-truck/internal/position"
	"github.com/nhonchu/fridge-truck/internal/sim"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker     string
	TruckID    string
	HTTPAddr   string
	DBPath     string
	ConfigPath string
}

// Counters tracks batch accounting since startup.
type Counters struct {
	BatchesSent    int
	BatchesSpooled int
	StatePushes    int
	CommandsServed int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	State          sim.State
	Settings       sim.Settings
	PendingSamples int
	Counters       Counters
	LastFix        *position.Fix
	MQTTConnected  bool
	StartTime      time.Time
	Now            time.Time
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the truck state and pending-sample count.
// Called from the run loop after every mutation.
func (t *Tracker) Update(st sim.State, pendingSamples int) {
	t.mu.Lock()
	t.snap.State = st
	t.snap.PendingSamples = pendingSamples
	t.mu.Unlock()
}

// SetSettings records the active settings.
func (t *Tracker) SetSettings(set sim.Settings) {
	t.mu.Lock()
	t.snap.Settings = set
	t.mu.Unlock()
}

// SetCounters records the batch accounting.
func (t *Tracker) SetCounters(c Counters) {
	t.mu.Lock()
	t.snap.Counters = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the cloud connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetFix records the last position fix.
func (t *Tracker) SetFix(fix position.Fix) {
	t.mu.Lock()
	f := fix
	t.snap.LastFix = &f
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
