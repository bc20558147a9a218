package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	State         string        `json:"state"`
	Sensors       int           `json:"sensors"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	LastSample    string        `json:"last_sample,omitempty"`
	Reading       []ReadingJSON `json:"reading"`
	Session       *SessionJSON  `json:"session,omitempty"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Config        ConfigJSON    `json:"config"`
}

// ReadingJSON is one channel's last value; temp is omitted when absent.
type ReadingJSON struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Temp *float64 `json:"temp,omitempty"`
}

// SessionJSON is the JSON representation of the current session.
type SessionJSON struct {
	Name      string `json:"name"`
	Counter   int    `json:"counter"`
	Token     string `json:"token"`
	StartTime string `json:"start_time"`
	Folder    string `json:"folder"`
	Rows      int    `json:"rows"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LogIntervalSec  int    `json:"log_interval_sec"`
	ViewIntervalSec int    `json:"view_interval_sec"`
	Broker          string `json:"broker,omitempty"`
	HTTPAddr        string `json:"http_addr"`
	ResultsFolder   string `json:"results_folder"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         snap.State,
		Sensors:       snap.Sensors,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			LogIntervalSec:  snap.Config.LogIntervalSec,
			ViewIntervalSec: snap.Config.ViewIntervalSec,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
			ResultsFolder:   snap.Config.ResultsFolder,
		},
	}
	if !snap.LastSample.IsZero() {
		inner.LastSample = snap.LastSample.UTC().Format(time.RFC3339)
	}
	inner.Reading = make([]ReadingJSON, 0, len(snap.LastReading))
	for _, v := range snap.LastReading {
		rj := ReadingJSON{ID: v.ID, Name: v.Name}
		if v.Valid {
			temp := v.Temp
			rj.Temp = &temp
		}
		inner.Reading = append(inner.Reading, rj)
	}
	if snap.Session != nil {
		inner.Session = &SessionJSON{
			Name:      snap.Session.Name,
			Counter:   snap.Session.Counter,
			Token:     snap.Session.Token,
			StartTime: snap.Session.StartTime.UTC().Format(time.RFC3339),
			Folder:    snap.Session.Folder,
			Rows:      snap.Session.Rows,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
