// Package status provides a thread-safe status tracker for the temp-logger
// daemon. It is the single source the HTTP status page and the view cadence
// read from.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	LogIntervalSec  int
	ViewIntervalSec int
	Broker          string
	HTTPAddr        string
	ResultsFolder   string
}

// SessionInfo is the displayed identity of the current session.
type SessionInfo struct {
	Name      string
	Counter   int
	Token     string
	StartTime time.Time
	Folder    string
	Rows      int
}

// ChannelValue is one channel's last displayed value, absent when Valid is
// false.
type ChannelValue struct {
	ID    string
	Name  string
	Temp  float64
	Valid bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	State         string // "idle", "waiting", "running", "exporting"
	Sensors       int
	LastReading   []ChannelValue
	LastSample    time.Time
	Session       *SessionInfo
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
			State:     "idle",
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetState records the lifecycle state.
func (t *Tracker) SetState(state string) {
	t.mu.Lock()
	t.snap.State = state
	t.mu.Unlock()
}

// SetSensors records how many channels were discovered.
func (t *Tracker) SetSensors(n int) {
	t.mu.Lock()
	t.snap.Sensors = n
	t.mu.Unlock()
}

// SetReading records the latest sweep with display names resolved. The view
// cadence republishes the stored values untouched rather than sampling again.
func (t *Tracker) SetReading(sampledAt time.Time, values []ChannelValue) {
	t.mu.Lock()
	t.snap.LastReading = values
	t.snap.LastSample = sampledAt
	t.mu.Unlock()
}

// SetSession records the current session identity, or clears it with nil.
func (t *Tracker) SetSession(info *SessionInfo) {
	t.mu.Lock()
	t.snap.Session = info
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.LastReading = append([]ChannelValue(nil), t.snap.LastReading...)
	if t.snap.Session != nil {
		info := *t.snap.Session
		s.Session = &info
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
