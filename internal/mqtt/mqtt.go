// Package mqtt publishes live readings and lifecycle events with abstraction
// for testing. The broker is optional: the daemon runs fine without one.
package mqtt

import (
	"encoding/json"
	"time"
)

// TopicReadings is the MQTT topic for temperature readings.
const TopicReadings = "energy/templog/readings"

// TopicSystem is the MQTT topic for lifecycle events.
const TopicSystem = "energy/templog/system"

// Publisher publishes readings and lifecycle events to MQTT.
type Publisher interface {
	// PublishReading sends one sweep to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishReading(event ReadingEvent) error

	// PublishSystem sends a lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ChannelReading is one channel's value inside a ReadingEvent.
type ChannelReading struct {
	ID    string
	Name  string
	Temp  float64
	Valid bool
}

// ReadingEvent represents one published sweep.
type ReadingEvent struct {
	Timestamp time.Time
	Kind      string // "LOG" or "VIEW"
	Seconds   float64
	Values    []ChannelReading
}

// SystemEvent represents a lifecycle event (startup, shutdown, measurement
// started/stopped).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g. "STARTUP", "MEASUREMENT_STARTED", "MEASUREMENT_STOPPED"
	Reason    string // e.g. "USER", "CONDITION", "DURATION", "SIGTERM"
	Retained  bool   // Whether the message should be retained by the broker
}

// ReadingPayload is the MQTT message payload structure for readings.
type ReadingPayload struct {
	Reading ReadingInner `json:"reading"`
}

// ReadingInner contains the reading details. Absent channels are explicit
// nulls keyed by display name.
type ReadingInner struct {
	Timestamp string              `json:"timestamp"`
	Type      string              `json:"type"`
	Seconds   float64             `json:"seconds"`
	Values    map[string]*float64 `json:"values"`
}

// FormatReadingPayload creates the JSON payload for a reading event.
func FormatReadingPayload(event ReadingEvent) ([]byte, error) {
	values := make(map[string]*float64, len(event.Values))
	for _, v := range event.Values {
		if v.Valid {
			temp := v.Temp
			values[v.Name] = &temp
		} else {
			values[v.Name] = nil
		}
	}
	payload := ReadingPayload{
		Reading: ReadingInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Type:      event.Kind,
			Seconds:   event.Seconds,
			Values:    values,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for lifecycle events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the lifecycle event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a lifecycle event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
