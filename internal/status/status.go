// Package status provides a thread-safe status tracker for the
// controller. The control loop writes it on its display-refresh
// deadline; the HTTP handlers read it.
package status

import (
	"sync"
	"time"
)

// Config contains static daemon configuration for display.
type Config struct {
	Broker     string
	HTTPAddr   string
	ConfigPath string
}

// Reading is the loop's view of the system at one display refresh.
type Reading struct {
	GateState  string
	GateOpen   bool
	SpotState  string
	Occupied   bool
	Assist     bool
	DistanceCm float64
	GasRaw     int
	GasAlarm   bool
	Lux        float64
	LightMode  string
}

// Snapshot is a point-in-time view of daemon state. It is a value
// type, safe to use after the lock is released.
type Snapshot struct {
	Reading
	MQTTConnected bool
	StartTime     time.Time
	Now           time.Time
	Config        Config
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

// Update stores the latest reading.
func (t *Tracker) Update(r Reading) {
	t.mu.Lock()
	t.snap.Reading = r
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state. The Now
// field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
