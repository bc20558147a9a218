package onewire

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/temp-logger/internal/logic"
	"github.com/sweeney/temp-logger/internal/metrics"
)

const (
	// ReadAttempts bounds the retries for one channel in one sweep.
	ReadAttempts = 5
	// ReadRetryDelay is the pause between attempts.
	ReadRetryDelay = 100 * time.Millisecond
)

// Channel is one physical sensor: stable hardware id, user-assigned display
// name, and an enable flag. The id never changes once discovered.
type Channel struct {
	ID      string
	Name    string
	Enabled bool
}

// Sampler tracks the known channels and performs full sweep reads with
// per-channel retry. Safe for concurrent use.
type Sampler struct {
	reader Reader

	mu       sync.Mutex
	channels []Channel

	// sleep is swapped out in tests so retry delays cost nothing.
	sleep func(time.Duration)
}

// NewSampler creates a Sampler over the given reader. Call Init to discover
// channels.
func NewSampler(reader Reader) *Sampler {
	return &Sampler{
		reader: reader,
		sleep:  time.Sleep,
	}
}

// Init enumerates the bus and rebuilds the channel list. Previously-known
// channels are forgotten; names default to "Sensor_<n>" in discovery order
// and every channel starts enabled. Zero channels found is reported, not an
// error — the rest of the system degrades gracefully.
func (s *Sampler) Init() (int, error) {
	ids, err := s.reader.Enumerate()
	if err != nil {
		return 0, fmt.Errorf("enumerate sensors: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels = make([]Channel, 0, len(ids))
	for i, id := range ids {
		s.channels = append(s.channels, Channel{
			ID:      id,
			Name:    fmt.Sprintf("Sensor_%d", i+1),
			Enabled: true,
		})
	}

	if len(ids) == 0 {
		log.Printf("onewire: no sensors found")
	} else {
		log.Printf("onewire: found %d sensors", len(ids))
	}
	return len(ids), nil
}

// Channels returns a copy of the current channel list in discovery order.
func (s *Sampler) Channels() []Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// IDs returns the channel ids in discovery order.
func (s *Sampler) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.channels))
	for i, c := range s.channels {
		ids[i] = c.ID
	}
	return ids
}

// SetEnabled flips one channel's enable flag.
func (s *Sampler) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.channels {
		if s.channels[i].ID == id {
			s.channels[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("unknown sensor id %q", id)
}

// ToggleAll enables every channel if none is enabled, otherwise disables
// every channel. Returns the new state.
func (s *Sampler) ToggleAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	anyEnabled := false
	for _, c := range s.channels {
		if c.Enabled {
			anyEnabled = true
			break
		}
	}
	newState := !anyEnabled
	for i := range s.channels {
		s.channels[i].Enabled = newState
	}
	return newState
}

// Rename sets a channel's display name. The name is sanitized and, if it
// collides with another channel's name, suffixed with _1, _2, ... until
// unique. The channel id never changes. Returns the name actually applied.
func (s *Sampler) Rename(id, name string) (string, error) {
	clean := logic.SanitizeName(name)
	if clean == "" {
		return "", fmt.Errorf("name %q is empty after sanitizing", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.channels {
		if s.channels[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("unknown sensor id %q", id)
	}

	applied := clean
	for n := 1; s.nameTakenLocked(applied, id); n++ {
		applied = fmt.Sprintf("%s_%d", clean, n)
	}
	s.channels[idx].Name = applied
	return applied, nil
}

func (s *Sampler) nameTakenLocked(name, exceptID string) bool {
	for _, c := range s.channels {
		if c.ID != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

// ApplyConfig applies saved enable flags and display names, typically from a
// loaded rule file. Unknown ids in the config are ignored; known channels not
// listed in active are disabled.
func (s *Sampler) ApplyConfig(active []string, names map[string]string) {
	activeSet := make(map[string]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.channels {
		s.channels[i].Enabled = activeSet[s.channels[i].ID]
		if name, ok := names[s.channels[i].ID]; ok {
			if clean := logic.SanitizeName(name); clean != "" {
				s.channels[i].Name = clean
			}
		}
	}
}

// ReadAll performs one full sweep and returns a Reading with exactly one
// entry per known channel. Disabled channels map to absent without touching
// the hardware. Enabled channels retry transient faults up to ReadAttempts
// with ReadRetryDelay between attempts; exhaustion yields absent. A failure
// on one channel never aborts the rest of the sweep.
func (s *Sampler) ReadAll(now time.Time) logic.Reading {
	channels := s.Channels()

	values := make(map[string]logic.Value, len(channels))
	for _, c := range channels {
		if !c.Enabled {
			values[c.ID] = logic.Value{}
			continue
		}
		temp, ok := s.readWithRetry(c.ID)
		if ok {
			values[c.ID] = logic.Value{Temp: temp, Valid: true}
			metrics.Temperature.WithLabelValues(c.ID).Set(temp)
		} else {
			values[c.ID] = logic.Value{}
			metrics.ReadFailuresTotal.Inc()
		}
	}

	metrics.SamplesTotal.Inc()
	return logic.Reading{Timestamp: now, Values: values}
}

// readWithRetry is the explicit bounded-retry loop: the absent-on-exhaustion
// outcome is a normal data value for the caller, not an error. Only
// ErrNotReady is worth retrying; any other failure is not going to clear in
// 100 ms.
func (s *Sampler) readWithRetry(id string) (float64, bool) {
	for attempt := 1; attempt <= ReadAttempts; attempt++ {
		temp, err := s.reader.ReadTemperature(id)
		if err == nil {
			return temp, true
		}
		if !errors.Is(err, ErrNotReady) {
			log.Printf("onewire: sensor %s read failed: %v", id, err)
			return 0, false
		}
		if attempt < ReadAttempts {
			s.sleep(ReadRetryDelay)
			continue
		}
		log.Printf("onewire: sensor %s read failed after %d attempts: %v", id, ReadAttempts, err)
	}
	return 0, false
}
